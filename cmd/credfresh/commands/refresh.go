package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/systmms/credfresh/internal/config"
	"github.com/systmms/credfresh/internal/history"
	"github.com/systmms/credfresh/internal/refresh"
	"github.com/systmms/credfresh/internal/report"
)

// NewRefreshCommand creates the refresh command
func NewRefreshCommand(cfg *config.Config) *cobra.Command {
	var (
		refreshService string
		noInteractive  bool
		refreshForce   bool
	)

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh credential bundles that need it",
		Long: `Assess every configured credential bundle and run the per-service
refresh procedure for the ones that need it, most stale first.

The previous bundle is always backed up before an attempt, and replaced
only after the new bundle passes validation. One service's failure never
blocks the others.

With --no-interactive, services whose refresh requires a human login are
reported as failed instead of prompting.`,
		Example: `  # Refresh everything that needs it
  credfresh refresh

  # Unattended run (cron)
  credfresh refresh --no-interactive

  # Force one service regardless of status
  credfresh refresh --service youtube --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := buildStore(ctx, cfg)
			if err != nil {
				return err
			}

			services, err := selectServices(cfg, refreshService)
			if err != nil {
				return err
			}

			mode := refresh.ModeInteractive
			if noInteractive || cfg.NonInteractive {
				mode = refresh.ModeAutomated
			}

			refresh.InitMetrics()
			hist := history.NewFileStore(history.DefaultHistoryDir())
			registry := refresh.NewRegistry(cfg.Logger)
			orch := refresh.NewOrchestrator(cfg.Definition, st, registry, hist, cfg.Logger)

			outcomes, runErr := orch.Run(ctx, services, mode, refreshForce)

			if len(outcomes) == 0 {
				if runErr != nil {
					return runErr
				}
				cfg.Logger.Info("All credential bundles are fresh; nothing to refresh")
				return nil
			}

			summary := report.Summarize(outcomes, time.Now())
			deliverSummary(ctx, cfg, summary)

			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}
			if !summary.AllSucceeded() {
				return fmt.Errorf("%d of %d refresh attempts failed", len(summary.Failed), summary.Total())
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&refreshService, "service", "", "Refresh a single service")
	cmd.Flags().BoolVar(&noInteractive, "no-interactive", false, "Fail services that require a human login instead of prompting")
	cmd.Flags().BoolVar(&refreshForce, "force", false, "Refresh selected services even if their bundles are still fresh")

	return cmd
}

// deliverSummary sends the batch report to every configured channel.
// Delivery problems are logged, never turned into refresh failures.
func deliverSummary(ctx context.Context, cfg *config.Config, summary report.Summary) {
	providers := []report.Provider{
		report.NewWriterProvider("stdout", os.Stdout),
	}
	if n := cfg.Definition.Notifications; n != nil && n.Webhook != nil {
		providers = append(providers, report.NewWebhookProvider(*n.Webhook))
	}
	report.Deliver(ctx, summary, providers, cfg.Logger)
}
