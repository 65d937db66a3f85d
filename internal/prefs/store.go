// Package prefs is the key/value preference store shared by the watch face
// engine and the companion settings surface.
//
// Writes are staged with SetBool/SetString and become visible to readers
// only after Commit, matching an editor/commit style store.
package prefs

import (
	"sort"
	"sync"
)

// Reader reads typed values, falling back to def when a key is absent or
// holds a value of another type.
type Reader interface {
	Bool(key string, def bool) bool
	String(key string, def string) string
}

type Store interface {
	Reader
	SetBool(key string, value bool)
	SetString(key string, value string)
	Commit() error
	// Snapshot returns an immutable view of the committed values so that
	// several keys can be read consistently.
	Snapshot() Values
}

// Values is an immutable set of committed preferences.
type Values map[string]any

func (v Values) Bool(key string, def bool) bool {
	if b, ok := v[key].(bool); ok {
		return b
	}
	return def
}

func (v Values) String(key string, def string) string {
	if s, ok := v[key].(string); ok {
		return s
	}
	return def
}

func (v Values) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (v Values) clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// MemoryStore keeps preferences in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	committed Values
	pending   Values
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{committed: Values{}, pending: Values{}}
}

func (store *MemoryStore) Bool(key string, def bool) bool {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.committed.Bool(key, def)
}

func (store *MemoryStore) String(key string, def string) string {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.committed.String(key, def)
}

func (store *MemoryStore) SetBool(key string, value bool) {
	store.mu.Lock()
	store.pending[key] = value
	store.mu.Unlock()
}

func (store *MemoryStore) SetString(key string, value string) {
	store.mu.Lock()
	store.pending[key] = value
	store.mu.Unlock()
}

func (store *MemoryStore) Commit() error {
	store.mu.Lock()
	store.applyPendingLocked()
	store.mu.Unlock()
	return nil
}

func (store *MemoryStore) Snapshot() Values {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.committed.clone()
}

func (store *MemoryStore) applyPendingLocked() {
	if len(store.pending) == 0 {
		return
	}
	next := store.committed.clone()
	for k, v := range store.pending {
		next[k] = v
	}
	store.committed = next
	store.pending = Values{}
}
