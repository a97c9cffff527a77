// Package analysis provides the analysis database for Strata.
package analysis

import (
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by mutations on a closed database.
var ErrClosed = errors.New("analysis database is closed")

// Database is the registry of artifacts recovered from one binary.
//
// Functions and data variables are keyed by address, types by name.
// Insertion order is preserved for deterministic enumeration. The
// database mutex is the analysis lock for artifact state; dependent
// subsystems (the component tree) carry their own lock and must take
// it before calling into the database.
type Database struct {
	mu sync.RWMutex

	funcs     map[uint64]*Function
	funcOrder []uint64

	vars     map[uint64]DataVariable
	varOrder []uint64

	types     map[string]Type
	typeOrder []string

	closed  bool
	onClose []func()
}

// NewDatabase creates an empty analysis database.
func NewDatabase() *Database {
	return &Database{
		funcs: make(map[uint64]*Function),
		vars:  make(map[uint64]DataVariable),
		types: make(map[string]Type),
	}
}

// AddFunction registers a function at the given entry address.
// Re-adding an address replaces the name and reference lists but
// keeps the existing handle, so outstanding references stay valid.
func (db *Database) AddFunction(addr uint64, name string, dataRefs []uint64, typeRefs []string) (*Function, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil, ErrClosed
	}

	if f, ok := db.funcs[addr]; ok {
		f.name = name
		f.dataRefs = append([]uint64(nil), dataRefs...)
		f.typeRefs = append([]string(nil), typeRefs...)
		return f, nil
	}

	f := &Function{
		db:       db,
		addr:     addr,
		name:     name,
		dataRefs: append([]uint64(nil), dataRefs...),
		typeRefs: append([]string(nil), typeRefs...),
	}
	db.funcs[addr] = f
	db.funcOrder = append(db.funcOrder, addr)
	return f, nil
}

// AddDataVariable registers a data variable. Re-adding an address
// replaces the record.
func (db *Database) AddDataVariable(dv DataVariable) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}

	if _, ok := db.vars[dv.Addr]; !ok {
		db.varOrder = append(db.varOrder, dv.Addr)
	}
	db.vars[dv.Addr] = dv
	return nil
}

// AddType registers a type record. Re-adding a name replaces the
// record.
func (db *Database) AddType(t Type) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	if t.Name == "" {
		return fmt.Errorf("type name must not be empty")
	}

	if _, ok := db.types[t.Name]; !ok {
		db.typeOrder = append(db.typeOrder, t.Name)
	}
	db.types[t.Name] = t
	return nil
}

// FunctionAt returns the function at the given entry address, or nil.
func (db *Database) FunctionAt(addr uint64) *Function {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.funcs[addr]
}

// DataVariableAt returns the data variable at the given address.
func (db *Database) DataVariableAt(addr uint64) (DataVariable, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	dv, ok := db.vars[addr]
	return dv, ok
}

// TypeByName returns the type record with the given name.
func (db *Database) TypeByName(name string) (Type, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	t, ok := db.types[name]
	return t, ok
}

// Functions returns all functions in insertion order.
func (db *Database) Functions() []*Function {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]*Function, 0, len(db.funcOrder))
	for _, addr := range db.funcOrder {
		out = append(out, db.funcs[addr])
	}
	return out
}

// DataVariables returns all data variables in insertion order.
func (db *Database) DataVariables() []DataVariable {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]DataVariable, 0, len(db.varOrder))
	for _, addr := range db.varOrder {
		out = append(out, db.vars[addr])
	}
	return out
}

// Types returns all type records in insertion order.
func (db *Database) Types() []Type {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]Type, 0, len(db.typeOrder))
	for _, name := range db.typeOrder {
		out = append(out, db.types[name])
	}
	return out
}

// FunctionCount returns the number of functions without list
// materialization.
func (db *Database) FunctionCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.funcs)
}

// OnClose registers a hook that runs when the database is closed.
// Hooks run outside the database lock, in registration order.
func (db *Database) OnClose(fn func()) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.onClose = append(db.onClose, fn)
}

// Closed reports whether Close has been called.
func (db *Database) Closed() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.closed
}

// Close tears down the database. All registered hooks run exactly
// once; further mutations fail with ErrClosed. Close is idempotent.
func (db *Database) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	hooks := db.onClose
	db.onClose = nil
	db.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	return nil
}
