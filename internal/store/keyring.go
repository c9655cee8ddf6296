package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/systmms/credfresh/internal/logging"
	"github.com/systmms/credfresh/pkg/bundle"
	"github.com/zalando/go-keyring"
)

// keyringClient abstracts the OS keychain so tests can run without a
// Secret Service daemon.
type keyringClient interface {
	Get(service, user string) (string, error)
	Set(service, user, value string) error
}

type osKeyring struct{}

func (osKeyring) Get(service, user string) (string, error) { return keyring.Get(service, user) }
func (osKeyring) Set(service, user, value string) error    { return keyring.Set(service, user, value) }

// KeyringStore keeps bundles in the OS keychain (Secret Service on Linux,
// Keychain on macOS, Credential Manager on Windows). Bundle age is derived
// from the envelope's saved_at since keychains expose no mtime.
type KeyringStore struct {
	prefix string
	logger *logging.Logger
	client keyringClient
	now    func() time.Time
}

// NewKeyringStore creates a keychain-backed credential store.
func NewKeyringStore(prefix string, logger *logging.Logger) *KeyringStore {
	return &KeyringStore{
		prefix: prefix,
		logger: logger,
		client: osKeyring{},
		now:    time.Now,
	}
}

// keyName returns the keychain service entry for a credfresh service.
func (ks *KeyringStore) keyName(service string) string {
	return ks.prefix + ":" + service
}

// userName returns the keychain user field for an account.
func userName(account string) string {
	if account == "" {
		return "default"
	}
	return account
}

// Load reads and decodes the bundle for a (service, account) pair.
func (ks *KeyringStore) Load(_ context.Context, service, account string) (*bundle.Bundle, error) {
	origin := fmt.Sprintf("keyring:%s/%s", ks.keyName(service), userName(account))

	data, err := ks.client.Get(ks.keyName(service), userName(account))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", origin, err)
	}

	b, err := bundle.Parse([]byte(data))
	if err != nil {
		return nil, &ParseError{Origin: origin, Err: err}
	}

	b.Origin = origin
	b.ModifiedAt = b.SavedAt
	return b, nil
}

// Backup writes a timestamped copy of the current entry under a distinct
// keychain user name, leaving the live entry untouched.
func (ks *KeyringStore) Backup(_ context.Context, service, account string) (*BackupRef, error) {
	data, err := ks.client.Get(ks.keyName(service), userName(account))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNoFilesToBackup
		}
		return nil, fmt.Errorf("read keyring entry for backup: %w", err)
	}

	now := ks.now()
	backupUser := fmt.Sprintf("%s@%s.%d", userName(account), now.Format("20060102-150405"), now.Nanosecond())
	if err := ks.client.Set(ks.keyName(service), backupUser, data); err != nil {
		return nil, fmt.Errorf("write keyring backup: %w", err)
	}

	ks.logger.Debug("Backed up keyring entry %s/%s", ks.keyName(service), backupUser)
	return &BackupRef{
		Service:   service,
		Account:   account,
		Location:  fmt.Sprintf("keyring:%s/%s", ks.keyName(service), backupUser),
		CreatedAt: now,
	}, nil
}

// Replace overwrites the live entry with the new bundle. Keychain writes are
// atomic per entry, so the previous bundle survives any failure to encode.
func (ks *KeyringStore) Replace(_ context.Context, service, account string, b *bundle.Bundle) error {
	if b.SavedAt.IsZero() {
		b.SavedAt = ks.now()
	}
	data, err := b.Marshal()
	if err != nil {
		return err
	}

	if err := ks.client.Set(ks.keyName(service), userName(account), string(data)); err != nil {
		return fmt.Errorf("write keyring entry: %w", err)
	}
	return nil
}
