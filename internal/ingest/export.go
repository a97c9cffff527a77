// Package ingest loads disassembler exports into Strata.
//
// The input is a JSON document produced by an export script running
// inside a disassembler: the recovered functions with their data and
// type references, the data variables, the type records, and
// optionally a component tree the analyst already built there.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/strata-re/strata-go/internal/analysis"
	"github.com/strata-re/strata-go/internal/component"
)

// ExportFormat is the required value of the "format" field.
const ExportFormat = "strata-export"

// ExportVersion is the supported schema version.
const ExportVersion = 1

// Export mirrors the JSON export document.
type Export struct {
	Format  string     `json:"format"`
	Version int        `json:"version"`
	Binary  BinaryInfo `json:"binary"`

	Types         []TypeEntry         `json:"types,omitempty"`
	DataVariables []DataVariableEntry `json:"data_variables,omitempty"`
	Functions     []FunctionEntry     `json:"functions"`
	Components    []ComponentEntry    `json:"components,omitempty"`
}

// BinaryInfo describes the analyzed binary.
type BinaryInfo struct {
	Name  string `json:"name"`
	Arch  string `json:"arch,omitempty"`
	Entry uint64 `json:"entry,omitempty"`
}

// TypeEntry is one recovered type.
type TypeEntry struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Width int    `json:"width,omitempty"`
}

// DataVariableEntry is one recovered data variable.
type DataVariableEntry struct {
	Addr uint64 `json:"addr"`
	Type string `json:"type"`
	Auto bool   `json:"auto,omitempty"`
}

// FunctionEntry is one recovered function.
type FunctionEntry struct {
	Addr     uint64   `json:"addr"`
	Name     string   `json:"name"`
	DataRefs []uint64 `json:"data_refs,omitempty"`
	TypeRefs []string `json:"type_refs,omitempty"`
}

// ComponentEntry is one node of an exported component tree. Children
// nest directly.
type ComponentEntry struct {
	Name      string           `json:"name"`
	Functions []uint64         `json:"functions,omitempty"`
	Children  []ComponentEntry `json:"children,omitempty"`
}

// LoadExport reads and validates an export document from disk.
func LoadExport(path string) (*Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}

	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("parsing export: %w", err)
	}
	if err := export.Validate(); err != nil {
		return nil, fmt.Errorf("invalid export %s: %w", path, err)
	}
	return &export, nil
}

// Validate checks the document against the schema rules.
func (e *Export) Validate() error {
	if e.Format != ExportFormat {
		return fmt.Errorf("unexpected format %q", e.Format)
	}
	if e.Version != ExportVersion {
		return fmt.Errorf("unsupported version %d", e.Version)
	}

	seen := make(map[uint64]struct{}, len(e.Functions))
	for _, fn := range e.Functions {
		if fn.Addr == 0 {
			return fmt.Errorf("function %q has no address", fn.Name)
		}
		if _, dup := seen[fn.Addr]; dup {
			return fmt.Errorf("duplicate function address %#x", fn.Addr)
		}
		seen[fn.Addr] = struct{}{}
	}
	return nil
}

// Build constructs a fresh database and component store from the
// export. Component entries referencing unknown function addresses
// are dropped silently; the disassembler may have discarded those
// functions since the tree was built.
func Build(e *Export) (*analysis.Database, *component.Store, error) {
	db := analysis.NewDatabase()

	for _, entry := range e.Types {
		t := analysis.Type{Name: entry.Name, Kind: analysis.TypeKind(entry.Kind), Width: entry.Width}
		if err := db.AddType(t); err != nil {
			return nil, nil, fmt.Errorf("adding type %q: %w", entry.Name, err)
		}
	}
	for _, entry := range e.DataVariables {
		dv := analysis.DataVariable{Addr: entry.Addr, TypeName: entry.Type, AutoDiscovered: entry.Auto}
		if err := db.AddDataVariable(dv); err != nil {
			return nil, nil, fmt.Errorf("adding data variable %#x: %w", entry.Addr, err)
		}
	}
	for _, entry := range e.Functions {
		if _, err := db.AddFunction(entry.Addr, entry.Name, entry.DataRefs, entry.TypeRefs); err != nil {
			return nil, nil, fmt.Errorf("adding function %#x: %w", entry.Addr, err)
		}
	}

	store := component.NewStore(db)
	for _, entry := range e.Components {
		if err := buildComponent(db, store, store.Root(), entry); err != nil {
			return nil, nil, err
		}
	}
	return db, store, nil
}

func buildComponent(db *analysis.Database, store *component.Store, parent *component.Component, entry ComponentEntry) error {
	node := store.Create(entry.Name)
	if node == nil {
		return fmt.Errorf("creating component %q", entry.Name)
	}
	if !parent.AddComponent(node) {
		return fmt.Errorf("attaching component %q", entry.Name)
	}
	for _, addr := range entry.Functions {
		if f := db.FunctionAt(addr); f != nil {
			node.AddFunction(f)
		}
	}
	for _, child := range entry.Children {
		if err := buildComponent(db, store, node, child); err != nil {
			return err
		}
	}
	return nil
}
