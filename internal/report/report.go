// Package report aggregates refresh outcomes into a transport-agnostic
// summary and delivers it through pluggable channels.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/systmms/credfresh/internal/refresh"
)

// Summary is the rendered-report source: outcomes grouped by result, with
// failures on critical services pulled out for emphasis. Pure data; the
// delivery channel decides what to do with it.
type Summary struct {
	GeneratedAt      time.Time         `json:"generated_at"`
	Succeeded        []refresh.Outcome `json:"succeeded"`
	Failed           []refresh.Outcome `json:"failed"`
	CriticalFailures []refresh.Outcome `json:"critical_failures"`
}

// Summarize groups a batch of outcomes. Pure: no I/O, no mutation of the
// input.
func Summarize(outcomes []refresh.Outcome, now time.Time) Summary {
	summary := Summary{GeneratedAt: now}
	for _, o := range outcomes {
		if o.Success {
			summary.Succeeded = append(summary.Succeeded, o)
			continue
		}
		summary.Failed = append(summary.Failed, o)
		if o.Critical {
			summary.CriticalFailures = append(summary.CriticalFailures, o)
		}
	}
	return summary
}

// AllSucceeded reports whether every attempted refresh succeeded.
func (s Summary) AllSucceeded() bool {
	return len(s.Failed) == 0
}

// Total returns the number of outcomes in the batch.
func (s Summary) Total() int {
	return len(s.Succeeded) + len(s.Failed)
}

// Render produces the human-readable report text.
func (s Summary) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Credential refresh report at %s\n", s.GeneratedAt.Format(time.RFC1123))
	fmt.Fprintf(&b, "%d attempted, %d succeeded, %d failed\n", s.Total(), len(s.Succeeded), len(s.Failed))

	if len(s.CriticalFailures) > 0 {
		b.WriteString("\nCRITICAL SERVICES STILL UNRESOLVED:\n")
		for _, o := range s.CriticalFailures {
			fmt.Fprintf(&b, "  !! %s: %s\n", o.Subject(), o.Reason)
		}
	}

	if len(s.Failed) > 0 {
		b.WriteString("\nFailed:\n")
		for _, o := range s.Failed {
			fmt.Fprintf(&b, "  ✗ %s: %s\n", o.Subject(), o.Reason)
		}
	}

	if len(s.Succeeded) > 0 {
		b.WriteString("\nSucceeded:\n")
		for _, o := range s.Succeeded {
			line := fmt.Sprintf("  ✓ %s: %s", o.Subject(), o.Reason)
			if o.Backup != nil {
				line += fmt.Sprintf(" (previous bundle backed up to %s)", o.Backup.Location)
			}
			b.WriteString(line + "\n")
		}
	}

	return b.String()
}
