// Package refresh implements the refresh strategies and the orchestrator
// that sequences assessment, backup, attempt and reporting per service.
package refresh

import (
	"context"
	"errors"
	"time"

	"github.com/systmms/credfresh/internal/config"
	"github.com/systmms/credfresh/internal/store"
	"github.com/systmms/credfresh/pkg/bundle"
)

// Mode selects how a refresh attempt may interact with the operator.
type Mode string

const (
	// ModeInteractive allows the strategy to wait on a human step
	// (browser login, 2FA) within the configured timeout.
	ModeInteractive Mode = "interactive"

	// ModeAutomated forbids human interaction; strategies that cannot
	// refresh unattended must fail fast with ErrUnsupportedMode.
	ModeAutomated Mode = "automated"
)

// ErrUnsupportedMode indicates the strategy cannot satisfy the requested
// mode. Reported, never retried.
var ErrUnsupportedMode = errors.New("refresh strategy does not support requested mode")

// ErrTimeout indicates the attempt exceeded its bound, typically while
// waiting on a human step. Reported, never retried within the run.
var ErrTimeout = errors.New("refresh attempt timed out")

// Request describes one refresh attempt.
type Request struct {
	Service string
	Account string
	Mode    Mode
	Policy  config.ServicePolicy
}

// Strategy is the per-service refresh procedure. Fetch reaches the external
// authentication agent and returns the new bundle without touching the
// store; persistence is the orchestrator's job so the previous bundle stays
// intact until the new one is validated.
type Strategy interface {
	// Name returns the stable strategy identifier used in configuration.
	Name() string

	// SupportsMode reports whether the strategy can run in the given mode.
	SupportsMode(mode Mode) bool

	// Fetch obtains a fresh bundle from the service's authentication agent.
	// The context bounds the whole attempt, including any human wait.
	Fetch(ctx context.Context, req Request) (*bundle.Bundle, error)
}

// Outcome is the result of one orchestration attempt for one
// (service, account) pair.
type Outcome struct {
	Service   string           `json:"service"`
	Account   string           `json:"account,omitempty"`
	Success   bool             `json:"success"`
	Reason    string           `json:"reason"`
	Err       error            `json:"-"`
	Backup    *store.BackupRef `json:"backup,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Duration  time.Duration    `json:"duration"`
	Strategy  string           `json:"strategy,omitempty"`

	// Critical mirrors the service policy so reports can highlight
	// pipeline-blocking failures without re-reading configuration.
	Critical bool `json:"critical"`
}

// Subject formats the (service, account) pair for logs and reports.
func (o Outcome) Subject() string {
	if o.Account == "" {
		return o.Service
	}
	return o.Service + "/" + o.Account
}
