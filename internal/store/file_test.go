package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/credfresh/internal/logging"
	"github.com/systmms/credfresh/pkg/bundle"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(t.TempDir(), logging.New(false, true))
}

func writeLiveBundle(t *testing.T, fs *FileStore, service, account, content string) string {
	t.Helper()
	path := fs.bundlePath(service, account)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const validBundleJSON = `{
  "saved_at": "2026-08-01T00:00:00Z",
  "items": [{"name": "session", "value": "abc123secret"}]
}`

func TestFileStore_Load_NotFound(t *testing.T) {
	fs := newTestFileStore(t)

	_, err := fs.Load(context.Background(), "youtube", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_Load_ParseFailure(t *testing.T) {
	fs := newTestFileStore(t)
	writeLiveBundle(t, fs, "youtube", "", "{not json")

	_, err := fs.Load(context.Background(), "youtube", "")
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Origin, "youtube.json")
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestFileStore_Load_SetsOriginAndModTime(t *testing.T) {
	fs := newTestFileStore(t)
	path := writeLiveBundle(t, fs, "youtube", "", validBundleJSON)

	mtime := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(path, mtime, mtime))

	b, err := fs.Load(context.Background(), "youtube", "")
	require.NoError(t, err)
	assert.Equal(t, path, b.Origin)
	assert.WithinDuration(t, mtime, b.ModifiedAt, time.Second)
	assert.Len(t, b.Items, 1)
}

func TestFileStore_AccountLayout(t *testing.T) {
	fs := newTestFileStore(t)
	writeLiveBundle(t, fs, "youtube", "studio", validBundleJSON)

	b, err := fs.Load(context.Background(), "youtube", "studio")
	require.NoError(t, err)
	assert.Contains(t, b.Origin, filepath.Join("youtube", "studio.json"))

	// The anonymous account is a different bundle entirely.
	_, err = fs.Load(context.Background(), "youtube", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_ReplaceRoundTrip(t *testing.T) {
	fs := newTestFileStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	in := &bundle.Bundle{
		SavedAt: now,
		Items:   []bundle.Item{{Name: "token", Value: "tok-1"}},
	}
	require.NoError(t, fs.Replace(context.Background(), "stripe", "", in))

	out, err := fs.Load(context.Background(), "stripe", "")
	require.NoError(t, err)
	assert.True(t, out.SavedAt.Equal(now))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "tok-1", out.Items[0].Value)

	// No staging leftovers next to the live bundle.
	entries, err := os.ReadDir(fs.baseDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_Backup_NoFiles(t *testing.T) {
	fs := newTestFileStore(t)

	_, err := fs.Backup(context.Background(), "youtube", "")
	assert.ErrorIs(t, err, ErrNoFilesToBackup)
}

func TestFileStore_Backup_CopiesBundleAndAdjacentState(t *testing.T) {
	fs := newTestFileStore(t)
	livePath := writeLiveBundle(t, fs, "youtube", "", validBundleJSON)
	statePath := filepath.Join(fs.baseDir, "youtube.state.json")
	require.NoError(t, os.WriteFile(statePath, []byte(`{"window":"w1"}`), 0600))

	ref, err := fs.Backup(context.Background(), "youtube", "")
	require.NoError(t, err)
	require.NotEmpty(t, ref.Location)

	// Originals untouched.
	live, err := os.ReadFile(livePath)
	require.NoError(t, err)
	assert.Equal(t, validBundleJSON, string(live))

	// Backup of the bundle is byte-identical.
	backed, err := os.ReadFile(ref.Location)
	require.NoError(t, err)
	assert.Equal(t, validBundleJSON, string(backed))

	// The state artifact rode along.
	backups, err := os.ReadDir(filepath.Join(fs.baseDir, "backups"))
	require.NoError(t, err)
	assert.Len(t, backups, 2)
}

func TestFileStore_Backup_TwiceProducesDistinctArtifacts(t *testing.T) {
	fs := newTestFileStore(t)
	fixed := time.Date(2026, 8, 1, 12, 0, 0, 12345, time.UTC)
	fs.now = func() time.Time { return fixed }

	writeLiveBundle(t, fs, "youtube", "", validBundleJSON)

	first, err := fs.Backup(context.Background(), "youtube", "")
	require.NoError(t, err)
	second, err := fs.Backup(context.Background(), "youtube", "")
	require.NoError(t, err)

	assert.NotEqual(t, first.Location, second.Location)
	assert.FileExists(t, first.Location)
	assert.FileExists(t, second.Location)
}

func TestFileStore_BackupThenReplace(t *testing.T) {
	fs := newTestFileStore(t)
	writeLiveBundle(t, fs, "youtube", "", validBundleJSON)

	ref, err := fs.Backup(context.Background(), "youtube", "")
	require.NoError(t, err)

	fresh := &bundle.Bundle{
		SavedAt: time.Now(),
		Items:   []bundle.Item{{Name: "session", Value: "new-secret"}},
	}
	require.NoError(t, fs.Replace(context.Background(), "youtube", "", fresh))

	// Prior bundle retrievable from the backup, unmodified.
	backed, err := os.ReadFile(ref.Location)
	require.NoError(t, err)
	assert.Equal(t, validBundleJSON, string(backed))

	// Live bundle is exactly the new one.
	live, err := fs.Load(context.Background(), "youtube", "")
	require.NoError(t, err)
	require.Len(t, live.Items, 1)
	assert.Equal(t, "new-secret", live.Items[0].Value)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "a_b", sanitizeName("a/b"))
	assert.Equal(t, "a_b", sanitizeName("a:b"))
	assert.NotContains(t, sanitizeName(".."), "..")
}

func TestFileStore_ErrNoFilesToBackupIsNotAnIOFailure(t *testing.T) {
	fs := newTestFileStore(t)
	_, err := fs.Backup(context.Background(), "ghost", "")
	assert.True(t, errors.Is(err, ErrNoFilesToBackup))
}
