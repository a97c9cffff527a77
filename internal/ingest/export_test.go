package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-re/strata-go/internal/component"
)

const sampleExport = `{
  "format": "strata-export",
  "version": 1,
  "binary": {"name": "helloworld", "arch": "x86_64", "entry": 4198400},
  "types": [
    {"name": "int32_t", "kind": "int", "width": 4},
    {"name": "char_ptr", "kind": "pointer", "width": 8}
  ],
  "data_variables": [
    {"addr": 6295552, "type": "int32_t", "auto": true},
    {"addr": 6295560, "type": "char_ptr"}
  ],
  "functions": [
    {"addr": 4198400, "name": "_start", "type_refs": ["int32_t"]},
    {"addr": 4198656, "name": "main", "data_refs": [6295552], "type_refs": ["int32_t"]},
    {"addr": 4198912, "name": "std::fs::read", "data_refs": [6295560], "type_refs": ["char_ptr"]}
  ],
  "components": [
    {
      "name": "startup",
      "functions": [4198400],
      "children": [
        {"name": "entry", "functions": [4198656]}
      ]
    }
  ]
}`

func writeExport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadExport(t *testing.T) {
	t.Parallel()

	t.Run("ValidDocument", func(t *testing.T) {
		t.Parallel()
		export, err := LoadExport(writeExport(t, sampleExport))
		require.NoError(t, err)

		assert.Equal(t, "helloworld", export.Binary.Name)
		assert.Len(t, export.Functions, 3)
		assert.Len(t, export.Components, 1)
	})

	t.Run("MissingFile", func(t *testing.T) {
		t.Parallel()
		_, err := LoadExport(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		t.Parallel()
		_, err := LoadExport(writeExport(t, "{not json"))
		assert.Error(t, err)
	})

	t.Run("WrongFormat", func(t *testing.T) {
		t.Parallel()
		_, err := LoadExport(writeExport(t, `{"format": "other", "version": 1, "functions": []}`))
		assert.ErrorContains(t, err, "unexpected format")
	})

	t.Run("WrongVersion", func(t *testing.T) {
		t.Parallel()
		_, err := LoadExport(writeExport(t, `{"format": "strata-export", "version": 99, "functions": []}`))
		assert.ErrorContains(t, err, "unsupported version")
	})

	t.Run("DuplicateAddress", func(t *testing.T) {
		t.Parallel()
		doc := `{"format": "strata-export", "version": 1, "functions": [
			{"addr": 1, "name": "a"}, {"addr": 1, "name": "b"}]}`
		_, err := LoadExport(writeExport(t, doc))
		assert.ErrorContains(t, err, "duplicate function address")
	})

	t.Run("ZeroAddress", func(t *testing.T) {
		t.Parallel()
		doc := `{"format": "strata-export", "version": 1, "functions": [{"addr": 0, "name": "a"}]}`
		_, err := LoadExport(writeExport(t, doc))
		assert.ErrorContains(t, err, "no address")
	})
}

func TestBuild(t *testing.T) {
	t.Parallel()

	export, err := LoadExport(writeExport(t, sampleExport))
	require.NoError(t, err)

	db, store, err := Build(export)
	require.NoError(t, err)

	assert.Equal(t, 3, db.FunctionCount())
	f := db.FunctionAt(4198656)
	require.NotNil(t, f)
	assert.Equal(t, "main", f.Name())

	// The exported tree is restored: startup -> entry.
	var startup *component.Component
	for child := range store.Root().Components() {
		startup = child
	}
	require.NotNil(t, startup)
	assert.Equal(t, "startup", startup.Name())
	assert.True(t, startup.ContainsFunction(db.FunctionAt(4198400)))

	var entry *component.Component
	for child := range startup.Components() {
		entry = child
	}
	require.NotNil(t, entry)
	assert.Equal(t, "entry", entry.Name())
	assert.True(t, entry.ContainsFunction(f))

	// Derived references flow through the restored tree.
	types := startup.ReferencedTypes(true)
	require.Len(t, types, 1)
	assert.Equal(t, "int32_t", types[0].Name)
}

func TestBuild_UnknownMemberDropped(t *testing.T) {
	t.Parallel()

	doc := `{"format": "strata-export", "version": 1,
		"functions": [{"addr": 100, "name": "f"}],
		"components": [{"name": "c", "functions": [100, 999]}]}`
	export, err := LoadExport(writeExport(t, doc))
	require.NoError(t, err)

	db, store, err := Build(export)
	require.NoError(t, err)

	var c *component.Component
	for child := range store.Root().Components() {
		c = child
	}
	require.NotNil(t, c)

	count := 0
	for range c.Functions() {
		count++
	}
	assert.Equal(t, 1, count)
	assert.True(t, c.ContainsFunction(db.FunctionAt(100)))
}
