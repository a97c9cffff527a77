package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-re/strata-go/internal/analysis"
	"github.com/strata-re/strata-go/internal/component"
	"github.com/strata-re/strata-go/internal/storage"
)

// mockStorage implements StorageBackend for testing.
type mockStorage struct {
	saves   int
	matches []storage.SymbolMatch
	findErr error
}

func (m *mockStorage) SaveSnapshot(ctx context.Context, db *analysis.Database, store *component.Store) error {
	m.saves++
	return nil
}

func (m *mockStorage) FindSymbols(ctx context.Context, query string, limit int) ([]storage.SymbolMatch, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.matches, nil
}

func (m *mockStorage) FunctionCount() int  { return 3 }
func (m *mockStorage) ComponentCount() int { return 2 }

func newTestServer(t *testing.T) (*Server, *mockStorage, *component.Store) {
	t.Helper()

	db := analysis.NewDatabase()
	require.NoError(t, db.AddType(analysis.Type{Name: "int32_t", Kind: analysis.TypeInt, Width: 4}))
	require.NoError(t, db.AddDataVariable(analysis.DataVariable{Addr: 0x601000, TypeName: "int32_t"}))

	_, err := db.AddFunction(0x401000, "main", []uint64{0x601000}, []string{"int32_t"})
	require.NoError(t, err)
	_, err = db.AddFunction(0x401100, "parse_config", nil, nil)
	require.NoError(t, err)
	_, err = db.AddFunction(0x401200, "idle", nil, nil)
	require.NoError(t, err)

	store := component.NewStore(db)
	core := store.Create("core")
	io := store.Create("io")
	require.True(t, core.AddComponent(io))
	require.True(t, core.AddFunction(db.FunctionAt(0x401000)))
	require.True(t, io.AddFunction(db.FunctionAt(0x401100)))

	backend := &mockStorage{}
	return NewServer(backend, db, store), backend, store
}

func TestListTools(t *testing.T) {
	t.Parallel()
	server, _, _ := newTestServer(t)

	tools := server.ListTools()
	require.NotEmpty(t, tools)

	names := make(map[string]bool)
	for _, tool := range tools {
		names[tool.Name] = true
		assert.NotEmpty(t, tool.Description)
		assert.NotNil(t, tool.InputSchema)
	}

	for _, want := range []string{
		"strata_tree", "strata_component", "strata_find",
		"strata_create_component", "strata_move_component",
		"strata_destroy_component", "strata_add_function", "strata_remove_function",
	} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

func TestListResources(t *testing.T) {
	t.Parallel()
	server, _, _ := newTestServer(t)

	resources := server.ListResources()
	require.Len(t, resources, 2)
	assert.Equal(t, "strata://overview", resources[0].URI)
	assert.Equal(t, "strata://tree", resources[1].URI)
}

func TestCallTool_Tree(t *testing.T) {
	t.Parallel()
	server, _, _ := newTestServer(t)

	result, err := server.CallTool(context.Background(), "strata_tree", map[string]any{})
	require.NoError(t, err)
	assert.Contains(t, result, "core")
	assert.Contains(t, result, "io")
	assert.Contains(t, result, "main")

	result, err = server.CallTool(context.Background(), "strata_tree", map[string]any{"component": "io"})
	require.NoError(t, err)
	assert.Contains(t, result, "io")
	assert.NotContains(t, result, "main")
}

func TestCallTool_Component(t *testing.T) {
	t.Parallel()
	server, _, store := newTestServer(t)

	result, err := server.CallTool(context.Background(), "strata_component", map[string]any{"component": "core"})
	require.NoError(t, err)
	assert.Contains(t, result, "## Component: **core**")
	assert.Contains(t, result, "io")
	assert.Contains(t, result, "main")
	assert.Contains(t, result, "0x601000")
	assert.Contains(t, result, "int32_t")

	// Lookup by GUID works too.
	var io *component.Component
	for child := range store.Root().Components() {
		if child.Name() == "core" {
			for gc := range child.Components() {
				io = gc
			}
		}
	}
	require.NotNil(t, io)
	result, err = server.CallTool(context.Background(), "strata_component", map[string]any{"component": io.GUID().String()})
	require.NoError(t, err)
	assert.Contains(t, result, "## Component: **io**")

	result, err = server.CallTool(context.Background(), "strata_component", map[string]any{"component": "nope"})
	require.NoError(t, err)
	assert.Contains(t, result, "not found")
}

func TestCallTool_Find(t *testing.T) {
	t.Parallel()
	server, backend, _ := newTestServer(t)
	backend.matches = []storage.SymbolMatch{
		{Kind: "function", Name: "parse_config", Addr: 0x401100, Score: 1.5},
		{Kind: "component", Name: "core", GUID: uuid.New().String(), Score: 0.5},
	}

	result, err := server.CallTool(context.Background(), "strata_find", map[string]any{"query": "parse"})
	require.NoError(t, err)
	assert.Contains(t, result, "parse_config")
	assert.Contains(t, result, "0x401100")
	assert.Contains(t, result, "(component)")

	backend.matches = nil
	result, err = server.CallTool(context.Background(), "strata_find", map[string]any{"query": "zzz"})
	require.NoError(t, err)
	assert.Contains(t, result, "No results found")
}

func TestCallTool_CreateAndMove(t *testing.T) {
	t.Parallel()
	server, backend, _ := newTestServer(t)

	result, err := server.CallTool(context.Background(), "strata_create_component", map[string]any{
		"name":   "crypto",
		"parent": "core",
	})
	require.NoError(t, err)
	assert.Contains(t, result, "Created component 'crypto'")
	assert.Equal(t, 1, backend.saves)

	crypto := server.resolveComponent("crypto")
	require.NotNil(t, crypto)
	assert.Equal(t, "core", crypto.Parent().Name())

	result, err = server.CallTool(context.Background(), "strata_move_component", map[string]any{
		"component": "crypto",
		"parent":    "io",
	})
	require.NoError(t, err)
	assert.Contains(t, result, "Moved component")
	assert.Equal(t, "io", crypto.Parent().Name())
	assert.Equal(t, 2, backend.saves)

	// Moving a component under its own descendant fails without mutation.
	result, err = server.CallTool(context.Background(), "strata_move_component", map[string]any{
		"component": "core",
		"parent":    "crypto",
	})
	require.NoError(t, err)
	assert.Contains(t, result, "cycle")
	assert.Equal(t, 2, backend.saves, "failed move must not persist")
	assert.Nil(t, server.resolveComponent("core").Parent())

	// Moving with no parent returns the node to root scope.
	_, err = server.CallTool(context.Background(), "strata_move_component", map[string]any{"component": "crypto"})
	require.NoError(t, err)
	assert.Nil(t, crypto.Parent())
}

func TestCallTool_Destroy(t *testing.T) {
	t.Parallel()
	server, backend, store := newTestServer(t)

	before := store.Count()
	result, err := server.CallTool(context.Background(), "strata_destroy_component", map[string]any{"component": "core"})
	require.NoError(t, err)
	assert.Contains(t, result, "Destroyed component")
	assert.Equal(t, before-1, store.Count())
	assert.Equal(t, 1, backend.saves)

	// Orphaned child moved to root scope.
	io := server.resolveComponent("io")
	require.NotNil(t, io)
	assert.Nil(t, io.Parent())
}

func TestCallTool_AddRemoveFunction(t *testing.T) {
	t.Parallel()
	server, backend, _ := newTestServer(t)

	result, err := server.CallTool(context.Background(), "strata_add_function", map[string]any{
		"component": "io",
		"address":   float64(0x401200),
	})
	require.NoError(t, err)
	assert.Contains(t, result, "Added idle")
	assert.Equal(t, 1, backend.saves)

	result, err = server.CallTool(context.Background(), "strata_remove_function", map[string]any{
		"component": "io",
		"address":   float64(0x401200),
	})
	require.NoError(t, err)
	assert.Contains(t, result, "Removed idle")

	result, err = server.CallTool(context.Background(), "strata_add_function", map[string]any{
		"component": "io",
		"address":   float64(0xdead),
	})
	require.NoError(t, err)
	assert.Contains(t, result, "No function at")
}

func TestCallTool_Unknown(t *testing.T) {
	t.Parallel()
	server, _, _ := newTestServer(t)

	_, err := server.CallTool(context.Background(), "bogus", nil)
	assert.Error(t, err)
}

func TestReadResource(t *testing.T) {
	t.Parallel()
	server, _, _ := newTestServer(t)

	overview, err := server.ReadResource(context.Background(), "strata://overview")
	require.NoError(t, err)
	assert.Contains(t, overview, "**Functions:** 3")
	assert.Contains(t, overview, "**Components:** 2")

	tree, err := server.ReadResource(context.Background(), "strata://tree")
	require.NoError(t, err)
	assert.Contains(t, tree, "core")

	_, err = server.ReadResource(context.Background(), "strata://bogus")
	assert.Error(t, err)
}

func TestRun_JSONRPC(t *testing.T) {
	t.Parallel()
	server, _, _ := newTestServer(t)

	requests := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"strata_tree","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"resources/read","params":{"uri":"strata://overview"}}`,
		`{"jsonrpc":"2.0","id":5,"method":"nope"}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	err := server.Run(context.Background(), strings.NewReader(requests), &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)

	var initResp map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &initResp))
	result := initResp["result"].(map[string]any)
	assert.Equal(t, "2024-11-05", result["protocolVersion"])

	var toolsResp map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &toolsResp))
	tools := toolsResp["result"].(map[string]any)["tools"].([]any)
	assert.Len(t, tools, len(server.ListTools()))

	var callResp map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &callResp))
	content := callResp["result"].(map[string]any)["content"].([]any)
	text := content[0].(map[string]any)["text"].(string)
	assert.Contains(t, text, "core")

	var errResp map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[4]), &errResp))
	assert.NotNil(t, errResp["error"])
}
