package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps records in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	texts map[string]int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store, optionally seeded.
func NewMemoryStore(seed ...TextRecord) *MemoryStore {
	m := &MemoryStore{texts: make(map[string]int, len(seed))}
	for _, rec := range seed {
		m.texts[rec.Text] = rec.Fingerprint
	}
	return m
}

// LoadAll returns every record ordered by text.
func (m *MemoryStore) LoadAll(_ context.Context) ([]TextRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]TextRecord, 0, len(m.texts))
	for text, fp := range m.texts {
		out = append(out, TextRecord{Text: text, Fingerprint: fp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out, nil
}

// Save stores rec unless its text is present.
func (m *MemoryStore) Save(_ context.Context, rec TextRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.texts[rec.Text]; ok {
		return ErrAlreadyExists
	}
	m.texts[rec.Text] = rec.Fingerprint
	return nil
}

// Count returns the number of stored records.
func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.texts), nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
