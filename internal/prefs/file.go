package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileStore persists committed preferences as a flat YAML document.
//
// Another process (the settings surface) may rewrite the file; Snapshot and
// the typed getters pick such changes up by comparing the file's mtime and size.
type FileStore struct {
	MemoryStore

	path    string
	modTime time.Time
	size    int64
}

// OpenFileStore loads path if it exists. A missing file is an empty store.
func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("preference file path is empty")
	}
	store := &FileStore{MemoryStore: MemoryStore{committed: Values{}, pending: Values{}}, path: filepath.Clean(path)}
	if err := store.reloadIfChanged(); err != nil {
		return nil, err
	}
	return store, nil
}

func (store *FileStore) Path() string { return store.path }

func (store *FileStore) Bool(key string, def bool) bool {
	return store.Snapshot().Bool(key, def)
}

func (store *FileStore) String(key string, def string) string {
	return store.Snapshot().String(key, def)
}

func (store *FileStore) Snapshot() Values {
	// Best-effort: a transient read error keeps serving the last good values.
	_ = store.reloadIfChanged()
	return store.MemoryStore.Snapshot()
}

// Commit applies staged writes and atomically replaces the file on disk.
func (store *FileStore) Commit() error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.applyPendingLocked()
	raw, err := yaml.Marshal(map[string]any(store.committed))
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(store.path), 0o755); err != nil {
		return fmt.Errorf("create preference dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(store.path), ".prefs-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp preference file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close preferences: %w", err)
	}
	if err := os.Rename(tmp.Name(), store.path); err != nil {
		return fmt.Errorf("replace %s: %w", store.path, err)
	}
	if st, err := os.Stat(store.path); err == nil {
		store.modTime = st.ModTime()
		store.size = st.Size()
	}
	return nil
}

func (store *FileStore) reloadIfChanged() error {
	st, err := os.Stat(store.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", store.path, err)
	}

	store.mu.RLock()
	unchanged := st.ModTime().Equal(store.modTime) && st.Size() == store.size
	store.mu.RUnlock()
	if unchanged {
		return nil
	}

	raw, err := os.ReadFile(store.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", store.path, err)
	}
	values := Values{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("decode %s: %w", store.path, err)
	}
	if values == nil {
		values = Values{}
	}

	store.mu.Lock()
	store.committed = values
	store.modTime = st.ModTime()
	store.size = st.Size()
	store.mu.Unlock()
	return nil
}
