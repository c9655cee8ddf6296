package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileStore implements Store using the filesystem
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a new file-based history store
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{
		baseDir: baseDir,
	}
}

// DefaultHistoryDir returns the default history directory
func DefaultHistoryDir() string {
	if testDir := os.Getenv("CREDFRESH_HISTORY_DIR"); testDir != "" {
		return testDir
	}

	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "credfresh", "history")
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "credfresh", "history")
	}

	return filepath.Join(os.TempDir(), "credfresh", "history")
}

func pairKey(service, account string) string {
	if account == "" {
		return sanitize(service)
	}
	return sanitize(service) + "--" + sanitize(account)
}

func sanitize(name string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return replacer.Replace(name)
}

// Record writes the entry as the pair's latest outcome and appends it to
// the service's history.
func (fs *FileStore) Record(entry Entry) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.ID == "" {
		entry.ID = fmt.Sprintf("%d-%s", entry.Timestamp.UnixNano(), pairKey(entry.Service, entry.Account))
	}

	lastDir := filepath.Join(fs.baseDir, "last")
	if err := os.MkdirAll(lastDir, 0700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	lastFile := filepath.Join(lastDir, pairKey(entry.Service, entry.Account)+".json")
	if err := os.WriteFile(lastFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write last-outcome file: %w", err)
	}

	entryDir := filepath.Join(fs.baseDir, "entries", sanitize(entry.Service))
	if err := os.MkdirAll(entryDir, 0700); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	entryFile := filepath.Join(entryDir, fmt.Sprintf("%d.json", entry.Timestamp.UnixNano()))
	if err := os.WriteFile(entryFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write history entry: %w", err)
	}

	return nil
}

// Last returns the most recent entry for a (service, account) pair.
func (fs *FileStore) Last(service, account string) (*Entry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	lastFile := filepath.Join(fs.baseDir, "last", pairKey(service, account)+".json")
	data, err := os.ReadFile(lastFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoHistory
		}
		return nil, fmt.Errorf("failed to read last-outcome file: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history entry: %w", err)
	}
	return &entry, nil
}

// History returns up to limit entries for a service, newest first.
func (fs *FileStore) History(service string, limit int) ([]Entry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entryDir := filepath.Join(fs.baseDir, "entries", sanitize(service))
	files, err := os.ReadDir(entryDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read history directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".json") {
			names = append(names, f.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(entryDir, name))
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
