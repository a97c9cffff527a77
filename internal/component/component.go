package component

import (
	"iter"

	"github.com/google/uuid"

	"github.com/strata-re/strata-go/internal/analysis"
)

// Component is one node in the component tree.
//
// A node owns a mutable name, an insertion-ordered list of child
// components, and an insertion-ordered list of direct function
// members. The parent link is non-owning and always consistent with
// the parent's child list. A destroyed node answers false or empty to
// every operation.
type Component struct {
	store *Store
	guid  uuid.UUID

	// Guarded by store.mu.
	name      string
	parent    *Component
	children  []*Component
	members   []uint64 // function entry addresses, insertion order
	memberSet map[uint64]struct{}
	destroyed bool
}

// GUID returns the component's stable identifier.
func (c *Component) GUID() uuid.UUID {
	return c.guid
}

// Equal reports whether two handles name the same component. Equality
// is GUID equality, never pointer identity.
func (c *Component) Equal(other *Component) bool {
	return other != nil && c.guid == other.guid
}

// Name returns the component's display name.
func (c *Component) Name() string {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	return c.name
}

// SetName renames the component. Returns false for the root or a
// destroyed node.
func (c *Component) SetName(name string) bool {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if c.destroyed || c == c.store.root {
		return false
	}
	c.name = name
	return true
}

// Parent returns the component this node is attached under, or nil
// when the node sits at root scope or has been destroyed.
func (c *Component) Parent() *Component {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	if c.destroyed || c.parent == c.store.root {
		return nil
	}
	return c.parent
}

// Destroyed reports whether the node's GUID has been invalidated.
func (c *Component) Destroyed() bool {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	return c.destroyed
}

// AddFunction registers f as a direct member. Idempotent: re-adding a
// member returns true without duplicating it. Returns false if the
// node is destroyed or the root, or if f does not belong to the
// store's database.
func (c *Component) AddFunction(f *analysis.Function) bool {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if c.destroyed || c == c.store.root || !c.ownsFunction(f) {
		return false
	}
	if _, ok := c.memberSet[f.Addr()]; ok {
		return true
	}
	c.members = append(c.members, f.Addr())
	c.memberSet[f.Addr()] = struct{}{}
	return true
}

// RemoveFunction unregisters f. Derived data-variable and type
// references contributed by f drop out of the next query, because
// derived sets are recomputed from the remaining members on every
// call. Returns false if f was not a direct member.
func (c *Component) RemoveFunction(f *analysis.Function) bool {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if c.destroyed || !c.ownsFunction(f) {
		return false
	}
	if _, ok := c.memberSet[f.Addr()]; !ok {
		return false
	}
	delete(c.memberSet, f.Addr())
	for i, addr := range c.members {
		if addr == f.Addr() {
			c.members = append(c.members[:i], c.members[i+1:]...)
			break
		}
	}
	return true
}

// ContainsFunction reports whether f is a direct member
// (non-recursive).
func (c *Component) ContainsFunction(f *analysis.Function) bool {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	if c.destroyed || !c.ownsFunction(f) {
		return false
	}
	_, ok := c.memberSet[f.Addr()]
	return ok
}

// ownsFunction checks that f is a live handle from the store's
// database. Caller holds store.mu.
func (c *Component) ownsFunction(f *analysis.Function) bool {
	if f == nil || f.Database() != c.store.db {
		return false
	}
	return c.store.db.FunctionAt(f.Addr()) == f
}

// AddComponent attaches child under this node. If the child is
// already attached elsewhere it is silently detached first, so a node
// never has two parents. Returns false, with no mutation, if the
// attachment would create a cycle, if child is this node or the root,
// or if either node is destroyed or from another store.
func (c *Component) AddComponent(child *Component) bool {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if c.destroyed || child == nil || child.destroyed {
		return false
	}
	if child.store != c.store || child == c.store.root || child == c {
		return false
	}

	// Reject if this node lives inside child's subtree.
	for p := c; p != nil; p = p.parent {
		if p == child {
			return false
		}
	}

	if child.parent == c {
		return true
	}
	child.parent.removeChild(child)
	child.parent = c
	c.children = append(c.children, child)
	return true
}

// RemoveComponent detaches child from this node. The child's subtree
// is unaffected and returns to root scope. Returns false if child is
// not a direct child of this node.
func (c *Component) RemoveComponent(child *Component) bool {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if c.destroyed || child == nil || child.destroyed || child.parent != c {
		return false
	}
	if c == c.store.root {
		// Already at root scope; nothing to detach from.
		return true
	}
	c.removeChild(child)
	child.parent = c.store.root
	c.store.root.children = append(c.store.root.children, child)
	return true
}

// ContainsComponent reports whether other is anywhere in this node's
// subtree, matched by GUID.
func (c *Component) ContainsComponent(other *Component) bool {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	if c.destroyed || other == nil || other.destroyed {
		return false
	}
	return c.subtreeContains(other.guid)
}

// subtreeContains walks the subtree below c. Caller holds store.mu.
func (c *Component) subtreeContains(guid uuid.UUID) bool {
	for _, child := range c.children {
		if child.guid == guid || child.subtreeContains(guid) {
			return true
		}
	}
	return false
}

// removeChild drops child from c's child list, preserving the order
// of the remaining children. Caller holds store.mu.
func (c *Component) removeChild(child *Component) {
	for i, ch := range c.children {
		if ch == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			return
		}
	}
}

// Components returns a restartable sequence over the direct children.
// The child list is snapshotted when iteration starts; re-ranging the
// sequence re-reads current state.
func (c *Component) Components() iter.Seq[*Component] {
	return func(yield func(*Component) bool) {
		for _, child := range c.childSnapshot() {
			if !yield(child) {
				return
			}
		}
	}
}

// Functions returns a restartable sequence over the direct function
// members, resolved against the database at iteration start.
func (c *Component) Functions() iter.Seq[*analysis.Function] {
	return func(yield func(*analysis.Function) bool) {
		for _, addr := range c.memberSnapshot() {
			f := c.store.db.FunctionAt(addr)
			if f == nil {
				continue
			}
			if !yield(f) {
				return
			}
		}
	}
}

func (c *Component) childSnapshot() []*Component {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	if c.destroyed {
		return nil
	}
	out := make([]*Component, len(c.children))
	copy(out, c.children)
	return out
}

func (c *Component) memberSnapshot() []uint64 {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	if c.destroyed {
		return nil
	}
	out := make([]uint64, len(c.members))
	copy(out, c.members)
	return out
}

// subtreeMembers collects member addresses for c and, when recursive,
// its whole subtree in depth-first order. Caller holds store.mu.
func (c *Component) subtreeMembers(recursive bool, out []uint64) []uint64 {
	out = append(out, c.members...)
	if recursive {
		for _, child := range c.children {
			out = child.subtreeMembers(true, out)
		}
	}
	return out
}

// ReferencedDataVariables returns the data variables referenced by
// the direct members, or by the whole subtree's members when
// recursive is true. The result is deduplicated, ordered by first
// reference, and recomputed from scratch on every call. A destroyed
// node returns an empty result.
func (c *Component) ReferencedDataVariables(recursive bool) []analysis.DataVariable {
	addrs := c.collectMembers(recursive)

	var out []analysis.DataVariable
	seen := make(map[uint64]struct{})
	for _, addr := range addrs {
		f := c.store.db.FunctionAt(addr)
		if f == nil {
			continue
		}
		for _, ref := range f.DataRefs() {
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			if dv, ok := c.store.db.DataVariableAt(ref); ok {
				out = append(out, dv)
			}
		}
	}
	return out
}

// ReferencedTypes returns the types used by the direct members, or by
// the whole subtree's members when recursive is true. Same dedup and
// ordering rules as ReferencedDataVariables.
func (c *Component) ReferencedTypes(recursive bool) []analysis.Type {
	addrs := c.collectMembers(recursive)

	var out []analysis.Type
	seen := make(map[string]struct{})
	for _, addr := range addrs {
		f := c.store.db.FunctionAt(addr)
		if f == nil {
			continue
		}
		for _, name := range f.TypeRefs() {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			if t, ok := c.store.db.TypeByName(name); ok {
				out = append(out, t)
			}
		}
	}
	return out
}

// collectMembers snapshots member addresses under the store lock so
// the database resolution afterwards runs without holding it.
func (c *Component) collectMembers(recursive bool) []uint64 {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	if c.destroyed {
		return nil
	}
	return c.subtreeMembers(recursive, nil)
}
