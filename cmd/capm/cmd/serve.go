package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/capm/internal/di"
	"github.com/aristath/capm/internal/server"
)

var devMode bool

// serveCmd serves the API and scheduled runs
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the runs API and scheduled selections",
	Long: `Starts the HTTP API on the configured port and, when a schedule is
configured, runs the selection on that cron schedule. Ctrl+C stops it.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&devMode, "dev", false, "disable response compression")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, _, err := di.Wire(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to wire dependencies: %w", err)
	}
	defer container.Close()

	srv := server.New(server.Config{
		Log:       log,
		Databases: container.Databases(),
		Runner:    container.Runner,
		Runs:      container.SnapshotRepo,
		Jobs:      container.Scheduler,
		Port:      cfg.Port,
		DevMode:   devMode,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	container.Scheduler.Start()
	log.Info().Int("port", cfg.Port).Str("schedule", cfg.Schedule).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server failed")
		container.Scheduler.Stop()
		return err
	}

	log.Info().Msg("Shutting down server...")

	container.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
	return nil
}
