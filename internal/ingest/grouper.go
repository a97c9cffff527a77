package ingest

import (
	"strings"

	"github.com/strata-re/strata-go/internal/analysis"
	"github.com/strata-re/strata-go/internal/component"
)

// namespaceSeparator splits C++/Rust style symbol paths.
const namespaceSeparator = "::"

// AutoGroup builds components from function namespaces: a function
// named "std::fs::read" lands in component "fs" nested under "std".
// Functions without a namespace, and functions that already belong to
// a component, are left alone. Existing components are reused by name
// so repeated runs converge. Returns the number of functions grouped.
func AutoGroup(db *analysis.Database, store *component.Store) int {
	grouped := memberAddrs(store.Root())

	count := 0
	for _, f := range db.Functions() {
		if _, done := grouped[f.Addr()]; done {
			continue
		}
		parts := strings.Split(f.Name(), namespaceSeparator)
		if len(parts) < 2 {
			continue
		}

		node := store.Root()
		for _, ns := range parts[:len(parts)-1] {
			if ns == "" {
				continue
			}
			node = childByName(store, node, ns)
			if node == nil {
				return count
			}
		}
		if node != store.Root() && node.AddFunction(f) {
			count++
		}
	}
	return count
}

// memberAddrs collects every function address already owned by some
// component in the subtree.
func memberAddrs(root *component.Component) map[uint64]struct{} {
	out := make(map[uint64]struct{})
	var walk func(c *component.Component)
	walk = func(c *component.Component) {
		for f := range c.Functions() {
			out[f.Addr()] = struct{}{}
		}
		for child := range c.Components() {
			walk(child)
		}
	}
	walk(root)
	return out
}

// childByName finds a direct child with the given name, creating one
// when absent.
func childByName(store *component.Store, parent *component.Component, name string) *component.Component {
	for child := range parent.Components() {
		if child.Name() == name {
			return child
		}
	}
	node := store.Create(name)
	if node == nil || !parent.AddComponent(node) {
		return nil
	}
	return node
}
