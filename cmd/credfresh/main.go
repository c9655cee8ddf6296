package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/systmms/credfresh/cmd/credfresh/commands"
	"github.com/systmms/credfresh/internal/config"
	"github.com/systmms/credfresh/internal/logging"
	"github.com/systmms/credfresh/internal/secure"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	defer secure.Purge()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile     string
		noColor        bool
		debug          bool
		nonInteractive bool
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "credfresh",
		Short: "Credential freshness and refresh orchestration for unattended collection jobs",
		Long: `credfresh tracks the age and expiry of per-service credential bundles
(cookies, tokens), decides when they need refreshing, and drives the
per-service refresh procedure before downstream jobs start failing.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize logger with parsed flags
			logger := logging.New(debug, noColor)

			// Update config with parsed values
			cfg.Path = configFile
			cfg.Logger = logger
			cfg.NonInteractive = nonInteractive
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "credfresh.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Non-interactive mode")

	// Add commands
	rootCmd.AddCommand(
		commands.NewCheckCommand(cfg),
		commands.NewRefreshCommand(cfg),
		commands.NewBackupCommand(cfg),
		commands.NewServicesCommand(cfg),
		commands.NewHistoryCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	// A run is cancellable between per-service iterations; the orchestrator
	// checks the context so an interrupted run still reports what it did.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}
