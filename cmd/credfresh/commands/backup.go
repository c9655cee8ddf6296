package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/credfresh/internal/config"
	"github.com/systmms/credfresh/internal/store"
)

// NewBackupCommand creates the backup command
func NewBackupCommand(cfg *config.Config) *cobra.Command {
	var backupService string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up credential bundles without assessing or refreshing",
		Long: `Copy the current credential bundle (and any adjacent session-state
artifact) for each service to a timestamped backup location. The live
bundles are never touched, and earlier backups are never overwritten.

A service with no bundle yet is reported and skipped; only a real I/O
failure fails the process.`,
		Example: `  # Back up everything
  credfresh backup

  # Back up one service
  credfresh backup --service youtube`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := buildStore(ctx, cfg)
			if err != nil {
				return err
			}

			services, err := selectServices(cfg, backupService)
			if err != nil {
				return err
			}

			failures := 0
			for _, service := range services {
				policy, err := cfg.GetService(service)
				if err != nil {
					return err
				}

				for _, account := range policy.BundleAccounts() {
					subject := service
					if account != "" {
						subject = service + "/" + account
					}

					ref, err := st.Backup(ctx, service, account)
					switch {
					case err == nil:
						cfg.Logger.Info("Backed up %s to %s", subject, ref.Location)
					case errors.Is(err, store.ErrNoFilesToBackup):
						cfg.Logger.Info("Nothing to back up for %s", subject)
					default:
						cfg.Logger.Error("Backup failed for %s: %v", subject, err)
						failures++
					}
				}
			}

			if failures > 0 {
				return fmt.Errorf("%d backup(s) failed", failures)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&backupService, "service", "", "Back up a single service")

	return cmd
}
