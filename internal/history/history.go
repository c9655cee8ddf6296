// Package history records refresh outcomes per service so later runs and
// operators can see when a bundle was last refreshed and how it went.
package history

import (
	"errors"
	"time"
)

// ErrNoHistory indicates no outcome has been recorded for the pair yet.
var ErrNoHistory = errors.New("no refresh history recorded")

// Entry represents a single refresh attempt outcome.
type Entry struct {
	ID        string        `json:"id"`
	Service   string        `json:"service"`
	Account   string        `json:"account,omitempty"`
	Success   bool          `json:"success"`
	Reason    string        `json:"reason"`
	Strategy  string        `json:"strategy,omitempty"`
	Backup    string        `json:"backup,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// Recorder accepts outcome entries. The orchestrator only needs this side.
type Recorder interface {
	Record(entry Entry) error
}

// Store adds the read side used by the status and history commands.
type Store interface {
	Recorder

	// Last returns the most recent entry for a (service, account) pair,
	// or ErrNoHistory.
	Last(service, account string) (*Entry, error)

	// History returns up to limit entries for a service, newest first.
	History(service string, limit int) ([]Entry, error)
}
