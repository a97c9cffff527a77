// Package component provides the component tree for Strata.
//
// Components are named nodes overlaid on an analysis database. Each
// node owns an ordered set of child components and an ordered set of
// direct function members; data-variable and type references are
// derived from the members on every query rather than stored. Nodes
// are identified by GUID, so two handles for the same component
// always compare equal through Equal regardless of how they were
// obtained.
package component

import (
	"sync"

	"github.com/google/uuid"

	"github.com/strata-re/strata-go/internal/analysis"
)

// RootName is the display name of the implicit root component.
const RootName = "<root>"

// Store is the database-scoped registry of component nodes.
//
// The store guarantees a single canonical node per GUID. Its mutex is
// the structural lock for the whole tree: every mutation and every
// traversal of parent/children/member state takes it. The store locks
// before the database, never the other way around.
//
// Iterating a node's Components or Functions snapshots state when the
// loop starts; mutating the tree during iteration is safe but the
// running loop keeps seeing the snapshot.
type Store struct {
	mu sync.RWMutex

	db      *analysis.Database
	nodes   map[uuid.UUID]*Component
	root    *Component
	invalid bool
}

// NewStore creates the component store for a database and registers
// its teardown hook: closing the database invalidates every node.
func NewStore(db *analysis.Database) *Store {
	s := &Store{
		db:    db,
		nodes: make(map[uuid.UUID]*Component),
	}
	s.root = &Component{
		store: s,
		guid:  uuid.New(),
		name:  RootName,
	}
	db.OnClose(s.invalidateAll)
	return s
}

// Database returns the analysis database this store is scoped to.
func (s *Store) Database() *analysis.Database {
	return s.db
}

// Root returns the implicit top-level component. Every node that is
// not attached under another component is a child of the root. The
// root cannot be renamed, re-parented, destroyed, or given direct
// function members.
func (s *Store) Root() *Component {
	return s.root
}

// Create allocates a new component with a fresh GUID, no children and
// no members, attached under the root. The name may be empty.
func (s *Store) Create(name string) *Component {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.invalid {
		return nil
	}

	c := &Component{
		store:     s,
		guid:      uuid.New(),
		name:      name,
		parent:    s.root,
		memberSet: make(map[uint64]struct{}),
	}
	s.nodes[c.guid] = c
	s.root.children = append(s.root.children, c)
	return c
}

// CreateWithGUID allocates a component with a caller-provided GUID.
// Used when restoring a persisted tree. Returns false if the GUID is
// already registered.
func (s *Store) CreateWithGUID(guid uuid.UUID, name string) (*Component, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.invalid || guid == uuid.Nil || guid == s.root.guid {
		return nil, false
	}
	if _, exists := s.nodes[guid]; exists {
		return nil, false
	}

	c := &Component{
		store:     s,
		guid:      guid,
		name:      name,
		parent:    s.root,
		memberSet: make(map[uint64]struct{}),
	}
	s.nodes[guid] = c
	s.root.children = append(s.root.children, c)
	return c, true
}

// Lookup returns the canonical node for a GUID, or nil if the GUID is
// unknown or the node has been destroyed.
func (s *Store) Lookup(guid uuid.UUID) *Component {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes[guid]
}

// Count returns the number of live components, excluding the root.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Destroy removes a node from the tree and invalidates its GUID.
// The node's children are orphaned: they re-attach under the root
// with their subtrees intact. Returns false if the node is the root,
// already destroyed, or unknown to this store.
func (s *Store) Destroy(c *Component) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyLocked(c, false)
}

// DestroyRecursive removes a node and its entire subtree.
func (s *Store) DestroyRecursive(c *Component) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyLocked(c, true)
}

func (s *Store) destroyLocked(c *Component, recursive bool) bool {
	if c == nil || c.destroyed || c == s.root {
		return false
	}
	if s.nodes[c.guid] != c {
		return false
	}

	c.parent.removeChild(c)

	if recursive {
		s.destroySubtreeLocked(c)
		return true
	}

	// Orphaned children return to root scope, preserving order.
	for _, child := range c.children {
		child.parent = s.root
		s.root.children = append(s.root.children, child)
	}
	s.invalidateNodeLocked(c)
	return true
}

func (s *Store) destroySubtreeLocked(c *Component) {
	for _, child := range c.children {
		s.destroySubtreeLocked(child)
	}
	s.invalidateNodeLocked(c)
}

func (s *Store) invalidateNodeLocked(c *Component) {
	delete(s.nodes, c.guid)
	c.destroyed = true
	c.parent = nil
	c.children = nil
	c.members = nil
	c.memberSet = nil
}

// invalidateAll tears down every node. Runs as the database close
// hook; afterwards all operations on any node fail cleanly.
func (s *Store) invalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.nodes {
		c.destroyed = true
		c.parent = nil
		c.children = nil
		c.members = nil
		c.memberSet = nil
	}
	s.nodes = make(map[uuid.UUID]*Component)
	s.root.children = nil
	s.invalid = true
}

// Valid reports whether the store's database is still open.
func (s *Store) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.invalid
}
