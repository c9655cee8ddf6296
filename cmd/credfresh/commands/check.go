package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/systmms/credfresh/internal/config"
	"github.com/systmms/credfresh/internal/freshness"
	"github.com/systmms/credfresh/internal/refresh"
	"gopkg.in/yaml.v3"
)

// NewCheckCommand creates the check command
func NewCheckCommand(cfg *config.Config) *cobra.Command {
	var (
		checkService string
		checkVerbose bool
		checkFormat  string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show credential bundle freshness per service and account",
		Long: `Classify every configured credential bundle and print one status line
per (service, account) pair.

Status values:
  valid     comfortably within all thresholds
  warning   expiry approaching the warning threshold
  critical  expiry inside the critical threshold
  expired   an item expired, the bundle aged out, or the bundle is empty
  unknown   no bundle exists (or it could not be read)

Checking never fails the process; use 'credfresh refresh' to act on the
results.`,
		Example: `  # Check all services
  credfresh check

  # Check one service, with details
  credfresh check --service youtube --verbose`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}

			ctx := cmd.Context()
			st, err := buildStore(ctx, cfg)
			if err != nil {
				return err
			}

			services, err := selectServices(cfg, checkService)
			if err != nil {
				return err
			}

			refresh.InitMetrics()
			registry := refresh.NewRegistry(cfg.Logger)
			orch := refresh.NewOrchestrator(cfg.Definition, st, registry, nil, cfg.Logger)

			assessments, err := orch.Assess(ctx, services)
			if err != nil {
				return err
			}

			switch checkFormat {
			case "json":
				return outputCheckJSON(assessments)
			case "yaml":
				return outputCheckYAML(assessments)
			default:
				return outputCheckTable(cfg, assessments, checkVerbose)
			}
		},
	}

	cmd.Flags().StringVar(&checkService, "service", "", "Check a single service")
	cmd.Flags().BoolVarP(&checkVerbose, "verbose", "v", false, "Show age, expired items and bundle origin")
	cmd.Flags().StringVar(&checkFormat, "format", "table", "Output format: table, json, yaml")

	return cmd
}

func outputCheckTable(cfg *config.Config, assessments []refresh.Assessment, verbose bool) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	defer w.Flush()

	now := time.Now()

	if verbose {
		fmt.Fprintln(w, "SERVICE\tACCOUNT\tSTATUS\tDAYS LEFT\tITEMS\tEXPIRED\tAGE\tLAST REFRESH\tORIGIN")
	} else {
		fmt.Fprintln(w, "SERVICE\tACCOUNT\tSTATUS\tDAYS LEFT\tITEMS\tLAST REFRESH")
	}

	for _, a := range assessments {
		r := a.Report
		if verbose {
			origin := r.Origin
			if origin == "" {
				origin = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%dd\t%s\t%s\n",
				a.Service, accountLabel(a.Account), formatStatus(r.Status),
				formatDays(r.DaysLeft), r.ItemCount, r.ExpiredCount, r.AgeDays,
				formatTimestamp(r.LastModified, now), origin)
		} else {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				a.Service, accountLabel(a.Account), formatStatus(r.Status),
				formatDays(r.DaysLeft), r.ItemCount,
				formatTimestamp(r.LastModified, now))
		}

		if verbose && r.Warning != "" {
			cfg.Logger.Warn("%s: %s", a.Subject(), r.Warning)
		}
	}
	return nil
}

func formatStatus(s freshness.Status) string {
	return strings.ToUpper(string(s))
}

func outputCheckJSON(assessments []refresh.Assessment) error {
	reports := collectReports(assessments)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func outputCheckYAML(assessments []refresh.Assessment) error {
	reports := collectReports(assessments)
	data, err := yaml.Marshal(reports)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func collectReports(assessments []refresh.Assessment) []freshness.Report {
	reports := make([]freshness.Report, 0, len(assessments))
	for _, a := range assessments {
		reports = append(reports, a.Report)
	}
	return reports
}
