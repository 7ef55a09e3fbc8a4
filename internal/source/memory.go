package source

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. Useful for tests and dry runs.
type MemoryStore struct {
	mu      sync.Mutex
	sources []Source
}

// NewMemoryStore creates a MemoryStore holding a copy of sources.
func NewMemoryStore(sources ...Source) *MemoryStore {
	return &MemoryStore{sources: append([]Source(nil), sources...)}
}

// Load returns a copy of the stored sources.
func (m *MemoryStore) Load(_ context.Context) ([]Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Source(nil), m.sources...), nil
}

// Save replaces the stored sources with a copy of sources.
func (m *MemoryStore) Save(_ context.Context, sources []Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append([]Source(nil), sources...)
	return nil
}
