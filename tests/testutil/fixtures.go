// Package testutil provides shared fixtures for credfresh tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/systmms/credfresh/pkg/bundle"
)

// WriteConfig writes a credfresh.yaml into dir and returns its path.
func WriteConfig(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "credfresh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// Item builds a credential item with an expiry offset from now; zero
// offset means no expiry instant.
func Item(name, value string, expiresIn time.Duration, now time.Time) bundle.Item {
	item := bundle.Item{Name: name, Value: value}
	if expiresIn != 0 {
		t := now.Add(expiresIn)
		item.ExpiresAt = &t
	}
	return item
}

// WriteBundle writes a bundle file for a (service, account) pair into the
// file-store layout rooted at dir, backdating its mtime by age.
func WriteBundle(t *testing.T, dir, service, account string, b *bundle.Bundle, age time.Duration) string {
	t.Helper()

	var path string
	if account == "" {
		path = filepath.Join(dir, service+".json")
	} else {
		path = filepath.Join(dir, service, account+".json")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	}

	if b.SavedAt.IsZero() {
		b.SavedAt = time.Now().Add(-age)
	}
	data, err := b.Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))

	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}
