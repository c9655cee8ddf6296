package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/systmms/credfresh/internal/config"
	"github.com/systmms/credfresh/internal/store"
)

// buildStore constructs the configured credential store backend.
func buildStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	return store.New(ctx, cfg.Definition.Store, cfg.Logger)
}

// selectServices resolves the --service flag against the configuration:
// empty means every configured service.
func selectServices(cfg *config.Config, serviceFlag string) ([]string, error) {
	if serviceFlag == "" {
		return cfg.ServiceNames(), nil
	}
	if _, err := cfg.GetService(serviceFlag); err != nil {
		return nil, err
	}
	return []string{serviceFlag}, nil
}

// formatDays renders a nullable day count for table output.
func formatDays(days *int) string {
	if days == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *days)
}

// formatTimestamp renders a timestamp relative to now for table output.
func formatTimestamp(t *time.Time, now time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	age := now.Sub(*t)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}

// accountLabel renders the sub-account column.
func accountLabel(account string) string {
	if account == "" {
		return "-"
	}
	return account
}
