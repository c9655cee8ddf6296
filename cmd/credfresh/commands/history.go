package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/systmms/credfresh/internal/config"
	"github.com/systmms/credfresh/internal/history"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand(cfg *config.Config) *cobra.Command {
	var historyLimit int

	cmd := &cobra.Command{
		Use:   "history [service]",
		Short: "Show recent refresh outcomes",
		Long: `Display recorded refresh outcomes, newest first. With a service name,
only that service's history is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			var services []string
			if len(args) > 0 {
				if _, err := cfg.GetService(args[0]); err != nil {
					return err
				}
				services = []string{args[0]}
			} else {
				services = cfg.ServiceNames()
			}

			hist := history.NewFileStore(history.DefaultHistoryDir())

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "TIME\tSERVICE\tACCOUNT\tRESULT\tSTRATEGY\tREASON")

			shown := 0
			for _, service := range services {
				entries, err := hist.History(service, historyLimit)
				if err != nil {
					return err
				}
				for _, e := range entries {
					result := "failed"
					if e.Success {
						result = "ok"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						e.Timestamp.Format(time.DateTime), e.Service,
						accountLabel(e.Account), result, e.Strategy, e.Reason)
					shown++
				}
			}

			if shown == 0 {
				cfg.Logger.Info("No refresh history recorded yet")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum entries per service")

	return cmd
}
