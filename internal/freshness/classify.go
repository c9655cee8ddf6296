// Package freshness classifies credential bundles into an actionable
// status from two independent expiration signals: bundle age against the
// per-service budget, and per-item expiry instants.
package freshness

import (
	"time"

	"github.com/systmms/credfresh/internal/config"
	"github.com/systmms/credfresh/pkg/bundle"
)

// Status is the classified health of a credential bundle.
type Status string

const (
	// StatusUnknown means no bundle exists for the pair. Critical services
	// treat it like StatusExpired when deciding whether to refresh, but the
	// value stays distinct for observability.
	StatusUnknown Status = "unknown"

	// StatusValid means the bundle is comfortably within all thresholds.
	StatusValid Status = "valid"

	// StatusWarning means expiry is approaching the warning threshold.
	StatusWarning Status = "warning"

	// StatusCritical means expiry is within the critical threshold.
	StatusCritical Status = "critical"

	// StatusExpired means at least one item has expired, the bundle is
	// older than the service's budget, or the bundle is empty.
	StatusExpired Status = "expired"
)

// Severity orders statuses from healthiest to most urgent, for
// most-stale-first scheduling.
func (s Status) Severity() int {
	switch s {
	case StatusValid:
		return 0
	case StatusWarning:
		return 1
	case StatusCritical:
		return 2
	case StatusUnknown:
		return 3
	case StatusExpired:
		return 4
	default:
		return 0
	}
}

// Thresholds holds the global warning/critical day thresholds.
type Thresholds struct {
	WarningDays  int
	CriticalDays int
}

// Report is one classification result. Ephemeral: recomputed on every
// check, never persisted independently of the bundle it describes.
type Report struct {
	Service      string     `json:"service"`
	Account      string     `json:"account,omitempty"`
	Status       Status     `json:"status"`
	DaysLeft     *int       `json:"days_left,omitempty"`
	ExpiredCount int        `json:"expired_count"`
	ItemCount    int        `json:"item_count"`
	AgeDays      int        `json:"age_days"`
	LastModified *time.Time `json:"last_modified,omitempty"`
	Origin       string     `json:"origin,omitempty"`

	// Warning carries a side-channel note, e.g. a parse failure that was
	// folded into StatusUnknown.
	Warning string `json:"warning,omitempty"`
}

// Classify derives a freshness report for one bundle under one policy.
// Pure: same bundle, policy, thresholds and now always yield the same
// report. A nil bundle means none exists.
func Classify(b *bundle.Bundle, policy config.ServicePolicy, th Thresholds, now time.Time) Report {
	report := Report{Status: StatusUnknown}
	if b == nil {
		return report
	}

	report.ItemCount = len(b.Items)
	report.AgeDays = b.AgeDays(now)
	report.Origin = b.Origin
	if !b.ModifiedAt.IsZero() {
		t := b.ModifiedAt
		report.LastModified = &t
	} else if !b.SavedAt.IsZero() {
		t := b.SavedAt
		report.LastModified = &t
	}

	// An empty bundle cannot authenticate, whatever its age.
	if len(b.Items) == 0 {
		report.Status = StatusExpired
		return report
	}

	report.ExpiredCount = b.ExpiredCount(now)

	// Item-level expiry wins over the age budget when both are present;
	// the age budget still participates in the expired decision.
	if soonest := b.SoonestExpiry(now); soonest != nil {
		days := daysUntil(*soonest, now)
		report.DaysLeft = &days
	} else {
		days := policy.ExpirationDays - report.AgeDays
		report.DaysLeft = &days
	}

	if report.ExpiredCount > 0 || report.AgeDays > policy.ExpirationDays {
		report.Status = StatusExpired
		return report
	}

	switch {
	case *report.DaysLeft <= th.CriticalDays:
		report.Status = StatusCritical
	case *report.DaysLeft <= th.WarningDays:
		report.Status = StatusWarning
	default:
		report.Status = StatusValid
	}
	return report
}

// daysUntil truncates the delta to whole days, never rounding up, so an
// expiry 23 hours away reports 0 days left and escalates early.
func daysUntil(t, now time.Time) int {
	d := t.Sub(now)
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}
