package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/credfresh/internal/logging"
	"github.com/systmms/credfresh/pkg/bundle"
	"github.com/zalando/go-keyring"
)

// fakeKeyring implements keyringClient in memory.
type fakeKeyring struct {
	entries map[string]string
}

func newFakeKeyring() *fakeKeyring {
	return &fakeKeyring{entries: make(map[string]string)}
}

func (f *fakeKeyring) key(service, user string) string { return service + "\x00" + user }

func (f *fakeKeyring) Get(service, user string) (string, error) {
	v, ok := f.entries[f.key(service, user)]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}

func (f *fakeKeyring) Set(service, user, value string) error {
	f.entries[f.key(service, user)] = value
	return nil
}

func newTestKeyringStore() (*KeyringStore, *fakeKeyring) {
	fake := newFakeKeyring()
	ks := NewKeyringStore("credfresh", logging.New(false, true))
	ks.client = fake
	return ks, fake
}

func TestKeyringStore_Load_NotFound(t *testing.T) {
	ks, _ := newTestKeyringStore()

	_, err := ks.Load(context.Background(), "github", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeyringStore_ReplaceLoadRoundTrip(t *testing.T) {
	ks, _ := newTestKeyringStore()
	now := time.Now().UTC().Truncate(time.Second)

	in := &bundle.Bundle{
		SavedAt: now,
		Items:   []bundle.Item{{Name: "pat", Value: "ghp_secret"}},
	}
	require.NoError(t, ks.Replace(context.Background(), "github", "bot", in))

	out, err := ks.Load(context.Background(), "github", "bot")
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "ghp_secret", out.Items[0].Value)
	// Keychains expose no mtime; saved_at stands in for bundle age.
	assert.True(t, out.ModifiedAt.Equal(now))
	assert.Contains(t, out.Origin, "keyring:")
}

func TestKeyringStore_Load_ParseFailure(t *testing.T) {
	ks, fake := newTestKeyringStore()
	require.NoError(t, fake.Set("credfresh:github", "default", "{corrupt"))

	_, err := ks.Load(context.Background(), "github", "")
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestKeyringStore_Backup(t *testing.T) {
	ks, fake := newTestKeyringStore()
	require.NoError(t, fake.Set("credfresh:github", "default", `{"items":[{"name":"a","value":"1"}]}`))

	ref, err := ks.Backup(context.Background(), "github", "")
	require.NoError(t, err)
	assert.Contains(t, ref.Location, "keyring:credfresh:github/default@")

	// Live entry untouched, backup entry present.
	assert.Len(t, fake.entries, 2)
}

func TestKeyringStore_Backup_NothingToBackUp(t *testing.T) {
	ks, _ := newTestKeyringStore()

	_, err := ks.Backup(context.Background(), "github", "")
	assert.ErrorIs(t, err, ErrNoFilesToBackup)
}

func TestKeyringStore_BackupTwiceDistinct(t *testing.T) {
	ks, fake := newTestKeyringStore()
	require.NoError(t, fake.Set("credfresh:github", "default", `{"items":[{"name":"a","value":"1"}]}`))
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 999, time.UTC)
	ks.now = func() time.Time { return fixed }

	first, err := ks.Backup(context.Background(), "github", "")
	require.NoError(t, err)
	fixed = fixed.Add(time.Nanosecond)
	second, err := ks.Backup(context.Background(), "github", "")
	require.NoError(t, err)

	assert.NotEqual(t, first.Location, second.Location)
}
