package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/systmms/credfresh/internal/logging"
	"github.com/systmms/credfresh/pkg/bundle"
)

// FileStore keeps one bundle file per (service, account) pair under a base
// directory, with backups in a side directory that is never pruned by
// refresh operations.
//
// Layout:
//
//	<dir>/<service>.json              single-account service
//	<dir>/<service>/<account>.json    sub-accounts
//	<dir>/<service>.state.json        adjacent session-state artifact
//	<dir>/backups/<name>-<ts>.json    timestamped copies
type FileStore struct {
	baseDir string
	logger  *logging.Logger

	// now is swappable for backup-timestamp tests
	now func() time.Time
}

// NewFileStore creates a file-backed credential store rooted at baseDir.
func NewFileStore(baseDir string, logger *logging.Logger) *FileStore {
	return &FileStore{
		baseDir: baseDir,
		logger:  logger,
		now:     time.Now,
	}
}

// DefaultBundleDir returns the default bundle directory.
func DefaultBundleDir() string {
	if testDir := os.Getenv("CREDFRESH_BUNDLE_DIR"); testDir != "" {
		return testDir
	}

	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "credfresh", "bundles")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "credfresh", "bundles")
	}

	return filepath.Join(os.TempDir(), "credfresh", "bundles")
}

// bundlePath returns the live bundle file for a (service, account) pair.
func (fs *FileStore) bundlePath(service, account string) string {
	if account == "" {
		return filepath.Join(fs.baseDir, sanitizeName(service)+".json")
	}
	return filepath.Join(fs.baseDir, sanitizeName(service), sanitizeName(account)+".json")
}

// artifacts returns the live bundle plus adjacent session-state files.
// Adjacent artifacts share the bundle's stem: <stem>.json, <stem>.state.json.
func (fs *FileStore) artifacts(service, account string) ([]string, error) {
	path := fs.bundlePath(service, account)
	stem := strings.TrimSuffix(path, ".json")

	matches, err := filepath.Glob(stem + ".*")
	if err != nil {
		return nil, fmt.Errorf("scan bundle artifacts: %w", err)
	}

	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	return files, nil
}

// Load reads and decodes the bundle for a (service, account) pair.
func (fs *FileStore) Load(_ context.Context, service, account string) (*bundle.Bundle, error) {
	path := fs.bundlePath(service, account)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read bundle %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat bundle %s: %w", path, err)
	}

	b, err := bundle.Parse(data)
	if err != nil {
		return nil, &ParseError{Origin: path, Err: err}
	}

	b.Origin = path
	b.ModifiedAt = info.ModTime()
	return b, nil
}

// Backup copies the live bundle and adjacent artifacts to the backups
// directory under timestamped names. The originals are left untouched, and
// earlier backups are never overwritten.
func (fs *FileStore) Backup(_ context.Context, service, account string) (*BackupRef, error) {
	files, err := fs.artifacts(service, account)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoFilesToBackup
	}

	backupDir := filepath.Join(fs.baseDir, "backups")
	if err := os.MkdirAll(backupDir, 0700); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}

	now := fs.now()
	stamp := now.Format("20060102-150405")

	ref := &BackupRef{
		Service:   service,
		Account:   account,
		CreatedAt: now,
	}

	for _, src := range files {
		name := filepath.Base(src)
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		if account != "" {
			base = sanitizeName(service) + "-" + base
		}

		dst := filepath.Join(backupDir, fmt.Sprintf("%s-%s%s", base, stamp, ext))
		// Two backups within the same second get distinct names.
		if _, err := os.Stat(dst); err == nil {
			dst = filepath.Join(backupDir, fmt.Sprintf("%s-%s.%d%s", base, stamp, now.Nanosecond(), ext))
		}

		if err := copyFile(src, dst); err != nil {
			return nil, fmt.Errorf("back up %s: %w", src, err)
		}

		if src == fs.bundlePath(service, account) {
			ref.Location = dst
		}
		fs.logger.Debug("Backed up %s to %s", src, dst)
	}

	if ref.Location == "" && len(files) > 0 {
		ref.Location = backupDir
	}
	return ref, nil
}

// Replace writes the new bundle next to the live one and renames it into
// place, so a failure at any point leaves the previous bundle intact.
func (fs *FileStore) Replace(_ context.Context, service, account string, b *bundle.Bundle) error {
	path := fs.bundlePath(service, account)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create bundle directory: %w", err)
	}

	if b.SavedAt.IsZero() {
		b.SavedAt = fs.now()
	}
	data, err := b.Marshal()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write staging file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod staging file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close staging file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace bundle %s: %w", path, err)
	}
	return nil
}

// copyFile copies src to dst with restrictive permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// sanitizeName makes a service or account name safe for use as a filename.
func sanitizeName(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return replacer.Replace(name)
}
