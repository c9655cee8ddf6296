package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/systmms/credfresh/internal/config"
)

// NewServicesCommand creates the services command
func NewServicesCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "services",
		Short: "List configured services and their freshness policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			defer w.Flush()

			fmt.Fprintln(w, "SERVICE\tMAX AGE\tCRITICAL\tACCOUNTS\tSTRATEGY")

			for _, name := range cfg.ServiceNames() {
				policy := cfg.Definition.Services[name]

				accounts := "-"
				if len(policy.Accounts) > 0 {
					accounts = strings.Join(policy.Accounts, ", ")
				}

				strategy := policy.Refresh.Strategy
				if strategy == "" {
					strategy = "none"
				}

				fmt.Fprintf(w, "%s\t%dd\t%v\t%s\t%s\n",
					name, policy.ExpirationDays, policy.Critical, accounts, strategy)
			}
			return nil
		},
	}
	return cmd
}
