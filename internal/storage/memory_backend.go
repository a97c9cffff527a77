package storage

import (
	"context"
	"sync"

	"github.com/strata-re/strata-go/internal/analysis"
	"github.com/strata-re/strata-go/internal/component"
)

// MemoryBackend is an in-memory implementation of Backend for testing.
type MemoryBackend struct {
	mu          sync.RWMutex
	snap        snapshot
	index       *symbolIndex
	initialized bool
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Initialize implements Backend.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = newSymbolIndex(m.snap)
	m.initialized = true
	return nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snapshot{}
	m.index = nil
	m.initialized = false
	return nil
}

// SaveSnapshot implements Backend.
func (m *MemoryBackend) SaveSnapshot(ctx context.Context, db *analysis.Database, store *component.Store) error {
	snap := makeSnapshot(db, store)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = snap
	m.index = newSymbolIndex(snap)
	return nil
}

// LoadSnapshot implements Backend.
func (m *MemoryBackend) LoadSnapshot(ctx context.Context) (*analysis.Database, *component.Store, error) {
	m.mu.RLock()
	snap := m.snap
	m.mu.RUnlock()
	return buildSnapshot(snap)
}

// FindSymbols implements Backend.
func (m *MemoryBackend) FindSymbols(ctx context.Context, query string, limit int) ([]SymbolMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.index == nil {
		return nil, nil
	}
	return m.index.search(query, limit), nil
}

// FunctionCount implements Backend.
func (m *MemoryBackend) FunctionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snap.Functions)
}

// ComponentCount implements Backend.
func (m *MemoryBackend) ComponentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snap.Components)
}

// IsInitialized returns true if the backend has been initialized.
func (m *MemoryBackend) IsInitialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}
