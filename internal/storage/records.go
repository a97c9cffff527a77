package storage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/strata-re/strata-go/internal/analysis"
	"github.com/strata-re/strata-go/internal/component"
)

// Serialized record types shared by all backends. Records keep
// insertion order explicitly so a loaded snapshot enumerates exactly
// like the one that was saved.

type functionRecord struct {
	Addr     uint64   `json:"addr"`
	Name     string   `json:"name"`
	DataRefs []uint64 `json:"data_refs,omitempty"`
	TypeRefs []string `json:"type_refs,omitempty"`
}

type dataVarRecord struct {
	Addr     uint64 `json:"addr"`
	TypeName string `json:"type"`
	Auto     bool   `json:"auto,omitempty"`
}

type typeRecord struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Width int    `json:"width,omitempty"`
}

// componentRecord captures one node. Records are emitted in
// depth-first order from the root, so rebuilding by attaching each
// record under its parent in sequence restores sibling order.
type componentRecord struct {
	GUID    string   `json:"guid"`
	Name    string   `json:"name"`
	Parent  string   `json:"parent,omitempty"` // empty = root scope
	Members []uint64 `json:"members,omitempty"`
}

// snapshot is the full serialized state.
type snapshot struct {
	Functions  []functionRecord  `json:"functions"`
	DataVars   []dataVarRecord   `json:"data_variables"`
	Types      []typeRecord      `json:"types"`
	Components []componentRecord `json:"components"`
}

// makeSnapshot captures the database and component tree as records.
func makeSnapshot(db *analysis.Database, store *component.Store) snapshot {
	var snap snapshot

	for _, f := range db.Functions() {
		snap.Functions = append(snap.Functions, functionRecord{
			Addr:     f.Addr(),
			Name:     f.Name(),
			DataRefs: f.DataRefs(),
			TypeRefs: f.TypeRefs(),
		})
	}
	for _, dv := range db.DataVariables() {
		snap.DataVars = append(snap.DataVars, dataVarRecord{
			Addr:     dv.Addr,
			TypeName: dv.TypeName,
			Auto:     dv.AutoDiscovered,
		})
	}
	for _, typ := range db.Types() {
		snap.Types = append(snap.Types, typeRecord{
			Name:  typ.Name,
			Kind:  string(typ.Kind),
			Width: typ.Width,
		})
	}

	snap.Components = appendComponentRecords(snap.Components, store.Root(), "")
	return snap
}

func appendComponentRecords(records []componentRecord, parent *component.Component, parentGUID string) []componentRecord {
	for child := range parent.Components() {
		var members []uint64
		for f := range child.Functions() {
			members = append(members, f.Addr())
		}
		records = append(records, componentRecord{
			GUID:    child.GUID().String(),
			Name:    child.Name(),
			Parent:  parentGUID,
			Members: members,
		})
		records = appendComponentRecords(records, child, child.GUID().String())
	}
	return records
}

// buildSnapshot rebuilds a database and component store from records.
func buildSnapshot(snap snapshot) (*analysis.Database, *component.Store, error) {
	db := analysis.NewDatabase()

	for _, rec := range snap.Types {
		if err := db.AddType(analysis.Type{Name: rec.Name, Kind: analysis.TypeKind(rec.Kind), Width: rec.Width}); err != nil {
			return nil, nil, fmt.Errorf("restoring type %q: %w", rec.Name, err)
		}
	}
	for _, rec := range snap.DataVars {
		if err := db.AddDataVariable(analysis.DataVariable{Addr: rec.Addr, TypeName: rec.TypeName, AutoDiscovered: rec.Auto}); err != nil {
			return nil, nil, fmt.Errorf("restoring data variable %#x: %w", rec.Addr, err)
		}
	}
	for _, rec := range snap.Functions {
		if _, err := db.AddFunction(rec.Addr, rec.Name, rec.DataRefs, rec.TypeRefs); err != nil {
			return nil, nil, fmt.Errorf("restoring function %#x: %w", rec.Addr, err)
		}
	}

	store := component.NewStore(db)
	for _, rec := range snap.Components {
		guid, err := uuid.Parse(rec.GUID)
		if err != nil {
			return nil, nil, fmt.Errorf("restoring component %q: %w", rec.GUID, err)
		}
		node, ok := store.CreateWithGUID(guid, rec.Name)
		if !ok {
			return nil, nil, fmt.Errorf("restoring component %s: duplicate guid", rec.GUID)
		}
		if rec.Parent != "" {
			parentGUID, err := uuid.Parse(rec.Parent)
			if err != nil {
				return nil, nil, fmt.Errorf("restoring component %s: bad parent: %w", rec.GUID, err)
			}
			parent := store.Lookup(parentGUID)
			if parent == nil {
				return nil, nil, fmt.Errorf("restoring component %s: unknown parent %s", rec.GUID, rec.Parent)
			}
			if !parent.AddComponent(node) {
				return nil, nil, fmt.Errorf("restoring component %s: attach failed", rec.GUID)
			}
		}
		for _, addr := range rec.Members {
			f := db.FunctionAt(addr)
			if f == nil {
				continue // stale member reference, drop it
			}
			node.AddFunction(f)
		}
	}
	return db, store, nil
}

// tokenizeName splits a symbol name into lowercase search tokens on
// non-alphanumeric boundaries. Short tokens are kept: binary symbols
// are full of meaningful two-character fragments.
func tokenizeName(name string) []string {
	name = strings.ToLower(name)
	tokens := strings.FieldsFunc(name, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// symbolIndex is the in-memory token index over persisted symbol
// names, rebuilt whenever a snapshot is saved or loaded.
type symbolIndex struct {
	entries []indexEntry
	tokens  map[string][]int // token -> entry offsets
}

type indexEntry struct {
	kind string
	name string
	addr uint64
	guid string
}

func newSymbolIndex(snap snapshot) *symbolIndex {
	idx := &symbolIndex{tokens: make(map[string][]int)}
	for _, rec := range snap.Functions {
		idx.add(indexEntry{kind: "function", name: rec.Name, addr: rec.Addr})
	}
	for _, rec := range snap.Components {
		idx.add(indexEntry{kind: "component", name: rec.Name, guid: rec.GUID})
	}
	return idx
}

func (idx *symbolIndex) add(e indexEntry) {
	offset := len(idx.entries)
	idx.entries = append(idx.entries, e)
	for _, tok := range tokenizeName(e.name) {
		idx.tokens[tok] = append(idx.tokens[tok], offset)
	}
}

// search scores entries by the fraction of query tokens they match,
// with exact name matches ranked first.
func (idx *symbolIndex) search(query string, limit int) []SymbolMatch {
	queryTokens := tokenizeName(query)
	if len(queryTokens) == 0 || limit <= 0 {
		return nil
	}

	hits := make(map[int]int)
	for _, tok := range queryTokens {
		for _, offset := range idx.tokens[tok] {
			hits[offset]++
		}
	}

	matches := make([]SymbolMatch, 0, len(hits))
	for offset, count := range hits {
		e := idx.entries[offset]
		score := float64(count) / float64(len(queryTokens))
		if strings.EqualFold(e.name, query) {
			score += 1.0
		}
		matches = append(matches, SymbolMatch{
			Kind:  e.kind,
			Name:  e.name,
			Addr:  e.addr,
			GUID:  e.guid,
			Score: score,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Name < matches[j].Name
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
