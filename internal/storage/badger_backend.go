package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/strata-re/strata-go/internal/analysis"
	"github.com/strata-re/strata-go/internal/component"
)

// Key prefixes for different record types. Records are keyed by a
// zero-padded sequence number so badger's key order is the snapshot's
// insertion order.
const (
	prefixFunction  = "f:"
	prefixDataVar   = "v:"
	prefixType      = "t:"
	prefixComponent = "c:"
)

// BadgerBackend is a BadgerDB-backed storage implementation.
type BadgerBackend struct {
	mu          sync.RWMutex
	db          *badger.DB
	index       *symbolIndex
	funcCount   int
	compCount   int
	initialized bool
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithNumMemtables(5).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}
	b.initialized = true

	snap, err := b.readSnapshot()
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}
	b.refreshIndex(snap)
	return nil
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	b.index = nil
	b.initialized = false
	return err
}

// SaveSnapshot replaces the persisted state with the current contents
// of the database and its component tree.
func (b *BadgerBackend) SaveSnapshot(ctx context.Context, db *analysis.Database, store *component.Store) error {
	snap := makeSnapshot(db, store)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return fmt.Errorf("backend not initialized")
	}
	if err := b.db.DropAll(); err != nil {
		return fmt.Errorf("clearing previous snapshot: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	write := func(prefix string, seq int, rec any) error {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		key := fmt.Sprintf("%s%08d", prefix, seq)
		if err := wb.Set([]byte(key), data); err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
		return nil
	}

	for i, rec := range snap.Functions {
		if err := write(prefixFunction, i, rec); err != nil {
			return err
		}
	}
	for i, rec := range snap.DataVars {
		if err := write(prefixDataVar, i, rec); err != nil {
			return err
		}
	}
	for i, rec := range snap.Types {
		if err := write(prefixType, i, rec); err != nil {
			return err
		}
	}
	for i, rec := range snap.Components {
		if err := write(prefixComponent, i, rec); err != nil {
			return err
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flushing snapshot: %w", err)
	}

	b.refreshIndex(snap)
	return nil
}

// LoadSnapshot rebuilds a database and component store from the
// persisted state.
func (b *BadgerBackend) LoadSnapshot(ctx context.Context) (*analysis.Database, *component.Store, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.db == nil {
		return nil, nil, fmt.Errorf("backend not initialized")
	}
	snap, err := b.readSnapshot()
	if err != nil {
		return nil, nil, err
	}
	return buildSnapshot(snap)
}

// readSnapshot scans all record prefixes. Caller holds at least a
// read lock.
func (b *BadgerBackend) readSnapshot() (snapshot, error) {
	var snap snapshot

	err := b.db.View(func(txn *badger.Txn) error {
		if err := scanPrefix(txn, prefixFunction, func(val []byte) error {
			var rec functionRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return err
			}
			snap.Functions = append(snap.Functions, rec)
			return nil
		}); err != nil {
			return err
		}
		if err := scanPrefix(txn, prefixDataVar, func(val []byte) error {
			var rec dataVarRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return err
			}
			snap.DataVars = append(snap.DataVars, rec)
			return nil
		}); err != nil {
			return err
		}
		if err := scanPrefix(txn, prefixType, func(val []byte) error {
			var rec typeRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return err
			}
			snap.Types = append(snap.Types, rec)
			return nil
		}); err != nil {
			return err
		}
		return scanPrefix(txn, prefixComponent, func(val []byte) error {
			var rec componentRecord
			if err := json.Unmarshal(val, &rec); err != nil {
				return err
			}
			snap.Components = append(snap.Components, rec)
			return nil
		})
	})
	if err != nil {
		return snapshot{}, fmt.Errorf("scanning records: %w", err)
	}
	return snap, nil
}

func scanPrefix(txn *badger.Txn, prefix string, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

// refreshIndex rebuilds the in-memory symbol index and counts.
// Caller holds the write lock.
func (b *BadgerBackend) refreshIndex(snap snapshot) {
	b.index = newSymbolIndex(snap)
	b.funcCount = len(snap.Functions)
	b.compCount = len(snap.Components)
}

// FindSymbols performs token-index search over persisted symbol names.
func (b *BadgerBackend) FindSymbols(ctx context.Context, query string, limit int) ([]SymbolMatch, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.index == nil {
		return nil, nil
	}
	return b.index.search(query, limit), nil
}

// FunctionCount returns the number of persisted functions.
func (b *BadgerBackend) FunctionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.funcCount
}

// ComponentCount returns the number of persisted components.
func (b *BadgerBackend) ComponentCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.compCount
}

// IsInitialized returns true if the backend has been initialized.
func (b *BadgerBackend) IsInitialized() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.initialized
}
