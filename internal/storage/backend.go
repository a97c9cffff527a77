// Package storage provides persistence backends for Strata.
//
// It defines the Backend interface that all storage implementations
// must satisfy. A backend persists one snapshot of an analysis
// database together with its component tree and serves name lookups
// over the persisted symbols. Persistence is a database concern: the
// component subsystem itself never touches disk.
package storage

import (
	"context"

	"github.com/strata-re/strata-go/internal/analysis"
	"github.com/strata-re/strata-go/internal/component"
)

// SymbolMatch is one result from a symbol name search.
type SymbolMatch struct {
	// Kind is "function" or "component".
	Kind string

	// Name is the symbol's display name.
	Name string

	// Addr is the entry address for function matches.
	Addr uint64

	// GUID is the component identifier for component matches.
	GUID string

	// Score is the relevance score (higher is better).
	Score float64
}

// Backend defines the interface for storage implementations.
//
// Implementations must be thread-safe and support concurrent access.
type Backend interface {
	// Lifecycle methods

	// Initialize opens or creates the storage backend at the given path.
	// If readOnly is true, the backend is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the backend.
	Close() error

	// Snapshot operations

	// SaveSnapshot replaces the persisted state with the current
	// contents of the database and its component tree.
	SaveSnapshot(ctx context.Context, db *analysis.Database, store *component.Store) error

	// LoadSnapshot rebuilds a database and component store from the
	// persisted state. Returns an empty database when nothing has
	// been saved yet.
	LoadSnapshot(ctx context.Context) (*analysis.Database, *component.Store, error)

	// Search

	// FindSymbols performs token-index search over function and
	// component names.
	FindSymbols(ctx context.Context, query string, limit int) ([]SymbolMatch, error)

	// Stats

	// FunctionCount returns the number of persisted functions.
	FunctionCount() int

	// ComponentCount returns the number of persisted components,
	// excluding the root.
	ComponentCount() int
}
