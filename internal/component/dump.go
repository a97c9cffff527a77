package component

import (
	"fmt"
	"strings"
)

// Dump renders the subtree below c as an indented, human-readable
// listing: component names with a short GUID prefix, then direct
// function members. Presentational only; callers must not parse it.
func (c *Component) Dump() string {
	var sb strings.Builder
	c.dumpInto(&sb, 0)
	return sb.String()
}

func (c *Component) dumpInto(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)

	c.store.mu.RLock()
	name := c.name
	destroyed := c.destroyed
	c.store.mu.RUnlock()

	if destroyed {
		fmt.Fprintf(sb, "%s<destroyed %s>\n", indent, shortGUID(c))
		return
	}
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(sb, "%s%s [%s]\n", indent, name, shortGUID(c))

	for _, addr := range c.memberSnapshot() {
		f := c.store.db.FunctionAt(addr)
		if f == nil {
			continue
		}
		fmt.Fprintf(sb, "%s  fn %s @ %#x\n", indent, f.Name(), f.Addr())
	}
	for _, child := range c.childSnapshot() {
		child.dumpInto(sb, depth+1)
	}
}

func shortGUID(c *Component) string {
	return c.guid.String()[:8]
}
