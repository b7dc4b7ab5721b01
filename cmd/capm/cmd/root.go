// Package cmd - capm CLI commands
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/capm/internal/config"
	"github.com/aristath/capm/pkg/logger"
)

var (
	// Common flags
	cfgFile string
	verbose bool

	// Loaded by the root command before any subcommand runs
	cfg *config.Config
	log zerolog.Logger
)

// rootCmd is the root command
var rootCmd = &cobra.Command{
	Use:   "capm",
	Short: "CAPM risk/return stock selector",
	Long: `CAPM risk/return stock selector

Computes excess and residual return, risk and Sharpe ratios for every stock in
the configured market, keeps the best N per industry group and writes the
resulting portfolio report.

Commands:
    run      - Run one selection and exit
    serve    - Serve the runs API and scheduled selections
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./capm.yaml or ./config/capm.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

// initConfig loads configuration and sets up logging. Invalid configuration
// fails here, before any database is opened.
func initConfig() error {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Error().Err(err).Msg("Failed to load configuration")
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg = loaded

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}

	log = logger.New(logger.Config{
		Level:         level,
		Pretty:        cfg.LogPretty,
		File:          cfg.LogFile,
		MaxSizeMB:     cfg.LogMaxSizeMB,
		RetentionDays: cfg.LogRetentionDays,
	})
	logger.SetGlobalLogger(log)

	log.Debug().Int("pid", os.Getpid()).Str("data_dir", cfg.DataDir).Msg("Configuration loaded")

	return nil
}
