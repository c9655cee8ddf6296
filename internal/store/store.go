// Package store implements the credential store accessor: loading, backing
// up and atomically replacing credential bundles across backends.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/systmms/credfresh/internal/config"
	"github.com/systmms/credfresh/internal/logging"
	"github.com/systmms/credfresh/pkg/bundle"
)

// ErrNotFound indicates no bundle exists for the (service, account) pair.
// Recoverable: the classifier maps it to an UNKNOWN status.
var ErrNotFound = errors.New("credential bundle not found")

// ErrNoFilesToBackup indicates a backup was requested but there is nothing
// to copy. A valid terminal state of the backup sub-step, not a failure.
var ErrNoFilesToBackup = errors.New("no credential files to back up")

// ParseError indicates a bundle exists but could not be decoded. Treated as
// NotFound for classification; surfaced distinctly so the corruption is not
// silently swallowed.
type ParseError struct {
	Origin string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unreadable credential bundle at %s: %v", e.Origin, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// BackupRef identifies one backup artifact.
type BackupRef struct {
	Service   string    `json:"service"`
	Account   string    `json:"account,omitempty"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the accessor contract over a credential store backend.
//
// Load returns ErrNotFound when no bundle exists and *ParseError when one
// exists but cannot be decoded. Backup copies the current bundle (and any
// adjacent session-state artifact) to a timestamped location without
// touching the original; it returns ErrNoFilesToBackup when there is
// nothing to copy. Replace writes the new bundle all-or-nothing: the
// previous bundle stays intact unless the write fully succeeds.
type Store interface {
	Load(ctx context.Context, service, account string) (*bundle.Bundle, error)
	Backup(ctx context.Context, service, account string) (*BackupRef, error)
	Replace(ctx context.Context, service, account string, b *bundle.Bundle) error
}

// New builds the store backend selected by the configuration.
func New(ctx context.Context, cfg config.StoreConfig, logger *logging.Logger) (Store, error) {
	switch cfg.Type {
	case "", "file":
		dir := cfg.Path
		if dir == "" {
			dir = DefaultBundleDir()
		}
		return NewFileStore(dir, logger), nil
	case "keyring":
		return NewKeyringStore(cfg.Prefix, logger), nil
	case "aws-secretsmanager":
		return NewAWSStore(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Type)
	}
}
