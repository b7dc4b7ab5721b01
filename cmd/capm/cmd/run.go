package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aristath/capm/internal/di"
)

// runCmd runs one selection
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one selection and exit",
	Long: `Loads benchmarks and market data for the configured window, selects the
top stocks per group, writes the report, persists the run and publishes the
report when a bucket is configured.`,
	RunE: runSelection,
}

func runSelection(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, _, err := di.Wire(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to wire dependencies: %w", err)
	}
	defer container.Close()

	result, err := container.Runner.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Selection run failed")
		return err
	}

	fmt.Fprintf(os.Stdout, "run %s: %d records in %d groups, report %s\n",
		result.RunID, result.Records, result.Groups, result.ReportPath)
	if result.Location != "" {
		fmt.Fprintf(os.Stdout, "published to %s\n", result.Location)
	}

	return nil
}
