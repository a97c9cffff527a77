// Package mcp provides the MCP (Model Context Protocol) server for Strata.
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/strata-re/strata-go/internal/analysis"
	"github.com/strata-re/strata-go/internal/component"
	"github.com/strata-re/strata-go/internal/storage"
)

// Server represents the MCP server. It operates on a loaded snapshot:
// mutating tools change the in-memory tree and persist it back to the
// storage backend.
type Server struct {
	backend StorageBackend
	db      *analysis.Database
	store   *component.Store
	server  *mcp.Server
}

// StorageBackend defines the storage surface the server needs.
type StorageBackend interface {
	SaveSnapshot(ctx context.Context, db *analysis.Database, store *component.Store) error
	FindSymbols(ctx context.Context, query string, limit int) ([]storage.SymbolMatch, error)
	FunctionCount() int
	ComponentCount() int
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// NewServer creates a new MCP server over a loaded snapshot.
func NewServer(backend StorageBackend, db *analysis.Database, store *component.Store) *Server {
	s := &Server{
		backend: backend,
		db:      db,
		store:   store,
	}

	// Create MCP server
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "strata-go",
		Version: "0.1.0",
	}, nil)

	return s
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "strata_tree",
			Description: "Render the component tree, or the subtree below one component, as an indented listing.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"component": {Type: "string", Description: "Component GUID or name; omit for the whole tree"},
				},
			},
		},
		{
			Name:        "strata_component",
			Description: "Inspect one component: parent, children, direct function members, referenced data variables and types.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"component": {Type: "string", Description: "Component GUID or name"},
				},
				Required: []string{"component"},
			},
		},
		{
			Name:        "strata_find",
			Description: "Search functions and components by name token. Returns ranked matches.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"query": {Type: "string", Description: "Search query text"},
					"limit": {Type: "integer", Description: "Maximum number of results"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "strata_create_component",
			Description: "Create a new component, optionally attached under an existing one.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"name":   {Type: "string", Description: "Display name for the new component"},
					"parent": {Type: "string", Description: "GUID or name of the parent; omit for root scope"},
				},
				Required: []string{"name"},
			},
		},
		{
			Name:        "strata_move_component",
			Description: "Re-parent a component. Fails without mutation when the move would create a cycle.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"component": {Type: "string", Description: "GUID or name of the component to move"},
					"parent":    {Type: "string", Description: "GUID or name of the new parent; omit to move to root scope"},
				},
				Required: []string{"component"},
			},
		},
		{
			Name:        "strata_destroy_component",
			Description: "Destroy a component. Children return to root scope unless recursive is true.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"component": {Type: "string", Description: "GUID or name of the component to destroy"},
					"recursive": {Type: "boolean", Description: "Destroy the whole subtree"},
				},
				Required: []string{"component"},
			},
		},
		{
			Name:        "strata_add_function",
			Description: "Attach a function (by entry address) to a component as a direct member.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"component": {Type: "string", Description: "GUID or name of the component"},
					"address":   {Type: "integer", Description: "Function entry address"},
				},
				Required: []string{"component", "address"},
			},
		},
		{
			Name:        "strata_remove_function",
			Description: "Detach a function (by entry address) from a component.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"component": {Type: "string", Description: "GUID or name of the component"},
					"address":   {Type: "integer", Description: "Function entry address"},
				},
				Required: []string{"component", "address"},
			},
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "strata://overview",
			Name:        "Database Overview",
			Description: "High-level statistics about the analysis database and component tree",
			MimeType:    "text/plain",
		},
		{
			URI:         "strata://tree",
			Name:        "Component Tree",
			Description: "The full component tree as an indented listing",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "strata_tree":
		id, _ := args["component"].(string)
		return s.handleTree(id)
	case "strata_component":
		id, _ := args["component"].(string)
		return s.handleComponent(id)
	case "strata_find":
		query, _ := args["query"].(string)
		limit, _ := args["limit"].(float64)
		if limit == 0 {
			limit = 20
		}
		return s.handleFind(ctx, query, int(limit))
	case "strata_create_component":
		cname, _ := args["name"].(string)
		parent, _ := args["parent"].(string)
		return s.handleCreate(ctx, cname, parent)
	case "strata_move_component":
		id, _ := args["component"].(string)
		parent, _ := args["parent"].(string)
		return s.handleMove(ctx, id, parent)
	case "strata_destroy_component":
		id, _ := args["component"].(string)
		recursive, _ := args["recursive"].(bool)
		return s.handleDestroy(ctx, id, recursive)
	case "strata_add_function":
		id, _ := args["component"].(string)
		addr, _ := args["address"].(float64)
		return s.handleAddFunction(ctx, id, uint64(addr))
	case "strata_remove_function":
		id, _ := args["component"].(string)
		addr, _ := args["address"].(float64)
		return s.handleRemoveFunction(ctx, id, uint64(addr))
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "strata://overview":
		return s.overview(), nil
	case "strata://tree":
		return s.store.Root().Dump(), nil
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

// resolveComponent turns a GUID or display name into a node. Name
// resolution walks the tree depth-first and returns the first match.
func (s *Server) resolveComponent(id string) *component.Component {
	if id == "" {
		return nil
	}
	if guid, err := uuid.Parse(id); err == nil {
		return s.store.Lookup(guid)
	}

	var found *component.Component
	var walk func(c *component.Component)
	walk = func(c *component.Component) {
		for child := range c.Components() {
			if found != nil {
				return
			}
			if child.Name() == id {
				found = child
				return
			}
			walk(child)
		}
	}
	walk(s.store.Root())
	return found
}

// save persists the in-memory state after a successful mutation.
func (s *Server) save(ctx context.Context) error {
	if err := s.backend.SaveSnapshot(ctx, s.db, s.store); err != nil {
		return fmt.Errorf("persisting snapshot: %w", err)
	}
	return nil
}

// Tool Handlers

func (s *Server) handleTree(id string) (string, error) {
	node := s.store.Root()
	if id != "" {
		node = s.resolveComponent(id)
		if node == nil {
			return fmt.Sprintf("Component '%s' not found", id), nil
		}
	}
	return node.Dump(), nil
}

func (s *Server) handleComponent(id string) (string, error) {
	node := s.resolveComponent(id)
	if node == nil {
		return fmt.Sprintf("Component '%s' not found", id), nil
	}

	var sb strings.Builder
	name := node.Name()
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(&sb, "## Component: **%s**\n\n", name)
	fmt.Fprintf(&sb, "**GUID:** %s\n", node.GUID())
	if parent := node.Parent(); parent != nil {
		fmt.Fprintf(&sb, "**Parent:** %s (%s)\n", parent.Name(), parent.GUID())
	} else {
		sb.WriteString("**Parent:** root scope\n")
	}
	sb.WriteString("\n")

	children := 0
	for range node.Components() {
		children++
	}
	fmt.Fprintf(&sb, "### Children (%d)\n", children)
	for child := range node.Components() {
		fmt.Fprintf(&sb, "- %s (%s)\n", child.Name(), child.GUID())
	}
	sb.WriteString("\n")

	members := 0
	for range node.Functions() {
		members++
	}
	fmt.Fprintf(&sb, "### Functions (%d)\n", members)
	for f := range node.Functions() {
		fmt.Fprintf(&sb, "- %s @ %#x\n", f.Name(), f.Addr())
	}
	sb.WriteString("\n")

	dataVars := node.ReferencedDataVariables(false)
	fmt.Fprintf(&sb, "### Referenced data variables (%d direct, %d in subtree)\n",
		len(dataVars), len(node.ReferencedDataVariables(true)))
	for _, dv := range dataVars {
		fmt.Fprintf(&sb, "- %#x (%s)\n", dv.Addr, dv.TypeName)
	}
	sb.WriteString("\n")

	types := node.ReferencedTypes(false)
	fmt.Fprintf(&sb, "### Referenced types (%d direct, %d in subtree)\n",
		len(types), len(node.ReferencedTypes(true)))
	for _, typ := range types {
		fmt.Fprintf(&sb, "- %s (%s)\n", typ.Name, typ.Kind)
	}

	return sb.String(), nil
}

func (s *Server) handleFind(ctx context.Context, query string, limit int) (string, error) {
	if query == "" {
		return "No query provided", nil
	}

	matches, err := s.backend.FindSymbols(ctx, query, limit)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "No results found", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d results for '%s':\n\n", len(matches), query)
	for i, m := range matches {
		switch m.Kind {
		case "component":
			fmt.Fprintf(&sb, "%d. **%s** (component)\n   GUID: %s\n", i+1, m.Name, m.GUID)
		default:
			fmt.Fprintf(&sb, "%d. **%s** (function)\n   Address: %#x\n", i+1, m.Name, m.Addr)
		}
		fmt.Fprintf(&sb, "   Score: %.3f\n\n", m.Score)
	}
	sb.WriteString("Next: Use `strata_component` on a component, or `strata_tree` for the full hierarchy.")
	return sb.String(), nil
}

func (s *Server) handleCreate(ctx context.Context, name, parentID string) (string, error) {
	var parent *component.Component
	if parentID != "" {
		parent = s.resolveComponent(parentID)
		if parent == nil {
			return fmt.Sprintf("Parent component '%s' not found", parentID), nil
		}
	}

	node := s.store.Create(name)
	if node == nil {
		return "Component store is no longer valid", nil
	}
	if parent != nil && !parent.AddComponent(node) {
		s.store.Destroy(node)
		return fmt.Sprintf("Could not attach new component under '%s'", parentID), nil
	}
	if err := s.save(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("Created component '%s' with GUID %s", name, node.GUID()), nil
}

func (s *Server) handleMove(ctx context.Context, id, parentID string) (string, error) {
	node := s.resolveComponent(id)
	if node == nil {
		return fmt.Sprintf("Component '%s' not found", id), nil
	}

	parent := s.store.Root()
	if parentID != "" {
		parent = s.resolveComponent(parentID)
		if parent == nil {
			return fmt.Sprintf("Parent component '%s' not found", parentID), nil
		}
	}

	if !parent.AddComponent(node) {
		return fmt.Sprintf("Cannot move '%s' under '%s': the move would create a cycle or the target is invalid", id, parentID), nil
	}
	if err := s.save(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("Moved component %s", node.GUID()), nil
}

func (s *Server) handleDestroy(ctx context.Context, id string, recursive bool) (string, error) {
	node := s.resolveComponent(id)
	if node == nil {
		return fmt.Sprintf("Component '%s' not found", id), nil
	}

	guid := node.GUID()
	ok := false
	if recursive {
		ok = s.store.DestroyRecursive(node)
	} else {
		ok = s.store.Destroy(node)
	}
	if !ok {
		return fmt.Sprintf("Component '%s' was already destroyed", id), nil
	}
	if err := s.save(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("Destroyed component %s", guid), nil
}

func (s *Server) handleAddFunction(ctx context.Context, id string, addr uint64) (string, error) {
	node := s.resolveComponent(id)
	if node == nil {
		return fmt.Sprintf("Component '%s' not found", id), nil
	}
	f := s.db.FunctionAt(addr)
	if f == nil {
		return fmt.Sprintf("No function at %#x", addr), nil
	}

	if !node.AddFunction(f) {
		return fmt.Sprintf("Could not add %s to '%s'", f.Name(), id), nil
	}
	if err := s.save(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("Added %s @ %#x to component %s", f.Name(), addr, node.GUID()), nil
}

func (s *Server) handleRemoveFunction(ctx context.Context, id string, addr uint64) (string, error) {
	node := s.resolveComponent(id)
	if node == nil {
		return fmt.Sprintf("Component '%s' not found", id), nil
	}
	f := s.db.FunctionAt(addr)
	if f == nil {
		return fmt.Sprintf("No function at %#x", addr), nil
	}

	if !node.RemoveFunction(f) {
		return fmt.Sprintf("%s is not a direct member of '%s'", f.Name(), id), nil
	}
	if err := s.save(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("Removed %s @ %#x from component %s", f.Name(), addr, node.GUID()), nil
}

// Resource Handlers

func (s *Server) overview() string {
	var sb strings.Builder
	sb.WriteString("# Strata Analysis Overview\n\n")
	fmt.Fprintf(&sb, "**Functions:** %d\n", s.db.FunctionCount())
	fmt.Fprintf(&sb, "**Components:** %d\n", s.store.Count())
	fmt.Fprintf(&sb, "**Persisted functions:** %d\n", s.backend.FunctionCount())
	fmt.Fprintf(&sb, "**Persisted components:** %d\n", s.backend.ComponentCount())
	return sb.String()
}

// Run starts the MCP server with stdio transport.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return fmt.Errorf("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	encoder := json.NewEncoder(stdout)
	// Note: Do NOT use SetIndent - MCP protocol requires compact JSON (one line per message)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		// Parse JSON-RPC request
		var req map[string]any
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}

		resp := s.handleRequest(ctx, req)
		if err := encoder.Encode(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, req map[string]any) map[string]any {
	method, _ := req["method"].(string)
	id := req["id"]

	switch method {
	case "initialize":
		return s.handleInitialize(id)
	case "tools/list":
		return s.handleToolsList(id)
	case "tools/call":
		return s.handleToolsCall(ctx, id, req)
	case "resources/list":
		return s.handleResourcesList(id)
	case "resources/read":
		return s.handleResourcesRead(ctx, id, req)
	default:
		return errorResponse(id, -32601, "Method not found: "+method)
	}
}

func (s *Server) handleInitialize(id any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]any{
				"name":    "strata-go",
				"version": "0.1.0",
			},
			"capabilities": map[string]any{
				"tools": map[string]any{
					"listChanged": false,
				},
				"resources": map[string]any{
					"listChanged": false,
				},
			},
		},
	}
}

func (s *Server) handleToolsList(id any) map[string]any {
	tools := s.ListTools()
	toolList := make([]map[string]any, len(tools))
	for i, tool := range tools {
		schema, _ := json.Marshal(tool.InputSchema)
		var schemaMap map[string]any
		json.Unmarshal(schema, &schemaMap)

		toolList[i] = map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": schemaMap,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"tools": toolList,
		},
	}
}

func (s *Server) handleToolsCall(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	result, err := s.CallTool(ctx, name, args)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"content": []map[string]any{
				{
					"type": "text",
					"text": result,
				},
			},
		},
	}
}

func (s *Server) handleResourcesList(id any) map[string]any {
	resources := s.ListResources()
	resourceList := make([]map[string]any, len(resources))
	for i, res := range resources {
		resourceList[i] = map[string]any{
			"uri":         res.URI,
			"name":        res.Name,
			"description": res.Description,
			"mimeType":    res.MimeType,
		}
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"resources": resourceList,
		},
	}
}

func (s *Server) handleResourcesRead(ctx context.Context, id any, req map[string]any) map[string]any {
	params, _ := req["params"].(map[string]any)
	if params == nil {
		return errorResponse(id, -32602, "Invalid params")
	}

	uri, _ := params["uri"].(string)

	content, err := s.ReadResource(ctx, uri)
	if err != nil {
		return errorResponse(id, -32000, err.Error())
	}

	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"contents": []map[string]any{
				{
					"uri":      uri,
					"mimeType": "text/plain",
					"text":     content,
				},
			},
		},
	}
}

// Helper functions

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}
