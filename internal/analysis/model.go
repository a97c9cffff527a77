// Package analysis provides the analysis database for Strata.
//
// It defines the core artifact types recovered from a disassembled
// binary (functions, data variables, types) and the Database that
// owns them. Artifacts are identity-keyed: functions and data
// variables by entry address, types by name.
package analysis

import "fmt"

// TypeKind classifies a recovered type.
type TypeKind string

const (
	TypeInt     TypeKind = "int"
	TypeFloat   TypeKind = "float"
	TypeBool    TypeKind = "bool"
	TypePointer TypeKind = "pointer"
	TypeArray   TypeKind = "array"
	TypeStruct  TypeKind = "struct"
	TypeEnum    TypeKind = "enum"
	TypeVoid    TypeKind = "void"
	TypeNamed   TypeKind = "named"
)

// Type is a named type record recovered by analysis.
//
// Types are value objects: identity is the name, and two records with
// the same name are the same type.
type Type struct {
	// Name is the unique type name (e.g. "int32_t", "struct stat").
	Name string

	// Kind is the type classification.
	Kind TypeKind

	// Width is the size in bytes, 0 if unknown.
	Width int
}

// DataVariable is a data location recovered by analysis.
type DataVariable struct {
	// Addr is the start address of the variable.
	Addr uint64

	// TypeName is the name of the variable's type.
	TypeName string

	// AutoDiscovered is true when analysis created the variable
	// rather than a user.
	AutoDiscovered bool
}

// Function is a disassembled function owned by a Database.
//
// A Function handle is an identity token: equality is (database,
// entry address), never pointer identity. The reference lists record
// which data variables the function reads or writes and which types
// appear in its recovered signature and body.
type Function struct {
	db   *Database
	addr uint64
	name string

	// Addresses of data variables referenced by this function.
	dataRefs []uint64

	// Names of types used by this function.
	typeRefs []string
}

// Addr returns the function's entry address.
func (f *Function) Addr() uint64 {
	return f.addr
}

// Name returns the function's symbol name.
func (f *Function) Name() string {
	f.db.mu.RLock()
	defer f.db.mu.RUnlock()
	return f.name
}

// SetName renames the function.
func (f *Function) SetName(name string) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.name = name
}

// Database returns the database that owns this function.
func (f *Function) Database() *Database {
	return f.db
}

// DataRefs returns the addresses of data variables this function
// references, in recovery order.
func (f *Function) DataRefs() []uint64 {
	f.db.mu.RLock()
	defer f.db.mu.RUnlock()
	out := make([]uint64, len(f.dataRefs))
	copy(out, f.dataRefs)
	return out
}

// TypeRefs returns the names of types this function uses, in recovery
// order.
func (f *Function) TypeRefs() []string {
	f.db.mu.RLock()
	defer f.db.mu.RUnlock()
	out := make([]string, len(f.typeRefs))
	copy(out, f.typeRefs)
	return out
}

// String implements fmt.Stringer.
func (f *Function) String() string {
	return fmt.Sprintf("%s@%#x", f.Name(), f.addr)
}
