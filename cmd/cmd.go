// Package cmd provides CLI command implementations for Strata.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/strata-re/strata-go/internal/analysis"
	"github.com/strata-re/strata-go/internal/component"
	"github.com/strata-re/strata-go/internal/ingest"
	"github.com/strata-re/strata-go/internal/storage"
	"github.com/strata-re/strata-go/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// StrataDir is the per-project state directory.
const StrataDir = ".strata"

// AnalyzeCmd ingests a disassembler export into the component database.
type AnalyzeCmd struct {
	Export      string `arg:"" optional:"" help:"Path to the export JSON (defaults to the configured path)"`
	NoAutoGroup bool   `help:"Skip namespace auto-grouping"`
}

// Run executes the analyze command.
func (c *AnalyzeCmd) Run() error {
	ctx := context.Background()

	cfg, err := loadProjectConfig()
	if err != nil {
		return err
	}

	exportPath := c.Export
	if exportPath == "" {
		exportPath = cfg.Export
	}
	if exportPath == "" {
		return fmt.Errorf("no export path given. Pass one or set 'export' in %s", configPath())
	}
	exportPath, err = filepath.Abs(exportPath)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	color.Green("Ingesting %s", exportPath)

	stateDir := filepath.Join(".", StrataDir)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("creating %s directory: %w", StrataDir, err)
	}

	backend := storage.NewBadgerBackend()
	if err := backend.Initialize(filepath.Join(stateDir, "badger"), false); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = backend.Close() }()

	progress := func(phase string, pct float64) {
		fmt.Printf("\r\033[K%s (%.0f%%)", phase, pct*100)
	}

	autoGroup := cfg.AutoGroup && !c.NoAutoGroup
	_, _, result, err := ingest.RunPipeline(ctx, exportPath, backend, autoGroup, progress)
	if err != nil {
		return fmt.Errorf("running pipeline: %w", err)
	}

	fmt.Println() // Newline after progress

	meta := map[string]any{
		"version":     Version,
		"export":      exportPath,
		"stats":       result,
		"ingested_at": time.Now().UTC().Format(time.RFC3339),
	}
	metaJSON, _ := json.MarshalIndent(meta, "", "  ")
	if err := os.WriteFile(filepath.Join(stateDir, "meta.json"), metaJSON, 0o644); err != nil {
		return fmt.Errorf("writing meta.json: %w", err)
	}

	color.Green("\n✓ Ingest complete")
	fmt.Printf("  Functions:       %d\n", result.Functions)
	fmt.Printf("  Data variables:  %d\n", result.DataVariables)
	fmt.Printf("  Types:           %d\n", result.Types)
	fmt.Printf("  Components:      %d\n", result.Components)
	if autoGroup {
		fmt.Printf("  Auto-grouped:    %d\n", result.AutoGrouped)
	}
	fmt.Printf("  Duration:        %.2fs\n", result.DurationSecs)

	return nil
}

// TreeCmd renders the component tree.
type TreeCmd struct {
	Component string `arg:"" optional:"" help:"GUID or name of a component to render the subtree of"`
}

// Run executes the tree command.
func (c *TreeCmd) Run() error {
	backend, _, store, err := loadState(true)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	node := store.Root()
	if c.Component != "" {
		node = findComponent(store, c.Component)
		if node == nil {
			fmt.Printf("Component '%s' not found\n", c.Component)
			return nil
		}
	}

	fmt.Print(node.Dump())
	return nil
}

// FindCmd searches functions and components by name.
type FindCmd struct {
	Query string `arg:"" help:"Search query"`
	Limit int    `short:"n" default:"20" help:"Maximum results"`
}

// Run executes the find command.
func (c *FindCmd) Run() error {
	ctx := context.Background()
	backend, _, _, err := loadState(true)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	results, err := backend.FindSymbols(ctx, c.Query, c.Limit)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found")
		return nil
	}

	for i, r := range results {
		fmt.Printf("\n%d. %s (%s)\n", i+1, r.Name, r.Kind)
		if r.Kind == "component" {
			fmt.Printf("   GUID: %s\n", r.GUID)
		} else {
			fmt.Printf("   Address: %#x\n", r.Addr)
		}
		fmt.Printf("   Score: %.3f\n", r.Score)
	}

	return nil
}

// ComponentCmd inspects one component.
type ComponentCmd struct {
	Component string `arg:"" help:"GUID or name of the component"`
	Recursive bool   `short:"r" help:"Aggregate references over the whole subtree"`
}

// Run executes the component command.
func (c *ComponentCmd) Run() error {
	backend, _, store, err := loadState(true)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	node := findComponent(store, c.Component)
	if node == nil {
		fmt.Printf("Component '%s' not found\n", c.Component)
		return nil
	}

	name := node.Name()
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Printf("## Component: **%s**\n\n", name)
	fmt.Printf("**GUID:** %s\n", node.GUID())
	if parent := node.Parent(); parent != nil {
		fmt.Printf("**Parent:** %s (%s)\n", parent.Name(), parent.GUID())
	} else {
		fmt.Println("**Parent:** root scope")
	}
	fmt.Println()

	fmt.Println("### Children")
	children := 0
	for child := range node.Components() {
		fmt.Printf("- %s (%s)\n", child.Name(), child.GUID())
		children++
	}
	if children == 0 {
		fmt.Println("None")
	}
	fmt.Println()

	fmt.Println("### Functions")
	members := 0
	for f := range node.Functions() {
		fmt.Printf("- %s @ %#x\n", f.Name(), f.Addr())
		members++
	}
	if members == 0 {
		fmt.Println("None")
	}
	fmt.Println()

	dataVars := node.ReferencedDataVariables(c.Recursive)
	fmt.Printf("### Referenced data variables (%d)\n", len(dataVars))
	for _, dv := range dataVars {
		fmt.Printf("- %#x (%s)\n", dv.Addr, dv.TypeName)
	}
	fmt.Println()

	types := node.ReferencedTypes(c.Recursive)
	fmt.Printf("### Referenced types (%d)\n", len(types))
	for _, typ := range types {
		fmt.Printf("- %s (%s)\n", typ.Name, typ.Kind)
	}

	return nil
}

// NewCmd creates a component.
type NewCmd struct {
	Name   string `arg:"" help:"Display name for the new component"`
	Parent string `short:"p" help:"GUID or name of the parent component"`
}

// Run executes the new command.
func (c *NewCmd) Run() error {
	return mutate(func(db *analysis.Database, store *component.Store) error {
		var parent *component.Component
		if c.Parent != "" {
			parent = findComponent(store, c.Parent)
			if parent == nil {
				return fmt.Errorf("parent component '%s' not found", c.Parent)
			}
		}

		node := store.Create(c.Name)
		if node == nil {
			return fmt.Errorf("component store is no longer valid")
		}
		if parent != nil && !parent.AddComponent(node) {
			store.Destroy(node)
			return fmt.Errorf("could not attach new component under '%s'", c.Parent)
		}

		color.Green("Created component '%s' with GUID %s", c.Name, node.GUID())
		return nil
	})
}

// MoveCmd re-parents a component.
type MoveCmd struct {
	Component string `arg:"" help:"GUID or name of the component to move"`
	Parent    string `short:"p" help:"GUID or name of the new parent (omit for root scope)"`
}

// Run executes the move command.
func (c *MoveCmd) Run() error {
	return mutate(func(db *analysis.Database, store *component.Store) error {
		node := findComponent(store, c.Component)
		if node == nil {
			return fmt.Errorf("component '%s' not found", c.Component)
		}

		parent := store.Root()
		if c.Parent != "" {
			parent = findComponent(store, c.Parent)
			if parent == nil {
				return fmt.Errorf("parent component '%s' not found", c.Parent)
			}
		}

		if !parent.AddComponent(node) {
			return fmt.Errorf("cannot move '%s' under '%s': the move would create a cycle", c.Component, c.Parent)
		}

		color.Green("Moved component %s", node.GUID())
		return nil
	})
}

// RmCmd destroys a component.
type RmCmd struct {
	Component string `arg:"" help:"GUID or name of the component to destroy"`
	Recursive bool   `short:"r" help:"Destroy the whole subtree"`
}

// Run executes the rm command.
func (c *RmCmd) Run() error {
	return mutate(func(db *analysis.Database, store *component.Store) error {
		node := findComponent(store, c.Component)
		if node == nil {
			return fmt.Errorf("component '%s' not found", c.Component)
		}

		guid := node.GUID()
		ok := false
		if c.Recursive {
			ok = store.DestroyRecursive(node)
		} else {
			ok = store.Destroy(node)
		}
		if !ok {
			return fmt.Errorf("component '%s' could not be destroyed", c.Component)
		}

		color.Green("Destroyed component %s", guid)
		return nil
	})
}

// AddFuncCmd attaches a function to a component.
type AddFuncCmd struct {
	Component string `arg:"" help:"GUID or name of the component"`
	Address   string `arg:"" help:"Function entry address (decimal or 0x hex)"`
}

// Run executes the add-func command.
func (c *AddFuncCmd) Run() error {
	addr, err := parseAddr(c.Address)
	if err != nil {
		return err
	}

	return mutate(func(db *analysis.Database, store *component.Store) error {
		node := findComponent(store, c.Component)
		if node == nil {
			return fmt.Errorf("component '%s' not found", c.Component)
		}
		f := db.FunctionAt(addr)
		if f == nil {
			return fmt.Errorf("no function at %#x", addr)
		}

		if !node.AddFunction(f) {
			return fmt.Errorf("could not add %s to '%s'", f.Name(), c.Component)
		}

		color.Green("Added %s @ %#x to component %s", f.Name(), addr, node.GUID())
		return nil
	})
}

// RmFuncCmd detaches a function from a component.
type RmFuncCmd struct {
	Component string `arg:"" help:"GUID or name of the component"`
	Address   string `arg:"" help:"Function entry address (decimal or 0x hex)"`
}

// Run executes the rm-func command.
func (c *RmFuncCmd) Run() error {
	addr, err := parseAddr(c.Address)
	if err != nil {
		return err
	}

	return mutate(func(db *analysis.Database, store *component.Store) error {
		node := findComponent(store, c.Component)
		if node == nil {
			return fmt.Errorf("component '%s' not found", c.Component)
		}
		f := db.FunctionAt(addr)
		if f == nil {
			return fmt.Errorf("no function at %#x", addr)
		}

		if !node.RemoveFunction(f) {
			return fmt.Errorf("%s is not a direct member of '%s'", f.Name(), c.Component)
		}

		color.Green("Removed %s @ %#x from component %s", f.Name(), addr, node.GUID())
		return nil
	})
}

// WatchCmd re-ingests the export whenever it changes.
type WatchCmd struct {
	Export string `arg:"" optional:"" help:"Path to the export JSON (defaults to the configured path)"`
}

// Run executes the watch command.
func (c *WatchCmd) Run() error {
	cfg, err := loadProjectConfig()
	if err != nil {
		return err
	}

	exportPath := c.Export
	if exportPath == "" {
		exportPath = cfg.Export
	}
	if exportPath == "" {
		return fmt.Errorf("no export path given. Pass one or set 'export' in %s", configPath())
	}
	exportPath, err = filepath.Abs(exportPath)
	if err != nil {
		return fmt.Errorf("resolving path: %w", err)
	}

	backend := storage.NewBadgerBackend()
	if err := backend.Initialize(filepath.Join(".", StrataDir, "badger"), false); err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() { _ = backend.Close() }()

	fmt.Println("## Watch Mode")
	fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n\n", exportPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle Ctrl+C
	go func() {
		<-osSignalChannel()
		fmt.Println("\nStopping watch mode...")
		cancel()
	}()

	opts := ingest.WatchOptions{
		AutoGroup:   cfg.AutoGroup,
		Debounce:    time.Duration(cfg.Debounce) * time.Second,
		ExtraIgnore: cfg.Ignore,
		OnReload: func(r *ingest.PipelineResult) {
			color.Green("✓ Re-ingested: %d functions, %d components (%.2fs)",
				r.Functions, r.Components, r.DurationSecs)
		},
		OnError: func(err error) {
			fmt.Fprintf(os.Stderr, "Reload error: %v\n", err)
		},
	}

	err = ingest.WatchExport(ctx, exportPath, backend, opts)
	if err != nil && err != context.Canceled {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Println("Watch mode stopped.")
	return nil
}

// MCPCmd starts the MCP server.
type MCPCmd struct{}

// Run executes the mcp command.
func (c *MCPCmd) Run() error {
	ctx := context.Background()
	backend, db, store, err := loadState(false)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	server := mcp.NewServer(backend, db, store)

	// Note: No output to stderr - MCP server uses stdio for JSON-RPC only
	return server.Run(ctx, os.Stdin, os.Stdout)
}

// ServeCmd starts the MCP server with optional watch mode.
type ServeCmd struct {
	Watch bool `short:"w" help:"Re-ingest the export when it changes"`
}

// Run executes the serve command.
func (c *ServeCmd) Run() error {
	ctx := context.Background()
	backend, db, store, err := loadState(false)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	server := mcp.NewServer(backend, db, store)

	if c.Watch {
		fmt.Fprintln(os.Stderr, "Starting MCP server with watch mode...")

		cfg, err := loadProjectConfig()
		if err != nil {
			return err
		}
		if cfg.Export == "" {
			return fmt.Errorf("watch mode needs 'export' set in %s", configPath())
		}

		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		go func() {
			opts := ingest.WatchOptions{
				AutoGroup:   cfg.AutoGroup,
				Debounce:    time.Duration(cfg.Debounce) * time.Second,
				ExtraIgnore: cfg.Ignore,
				OnError: func(err error) {
					fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)
				},
			}
			err := ingest.WatchExport(watchCtx, cfg.Export, backend, opts)
			if err != nil && err != context.Canceled {
				fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)
			}
		}()

		fmt.Fprintln(os.Stderr, "File watching enabled")
	} else {
		fmt.Fprintln(os.Stderr, "Starting MCP server...")
	}

	return server.Run(ctx, os.Stdin, os.Stdout)
}

// SetupCmd configures MCP for various AI clients.
type SetupCmd struct {
	Claude   bool   `help:"Configure for Claude Code"`
	Cursor   bool   `help:"Configure for Cursor"`
	Local    bool   `help:"Create project-local configuration"`
	Global   bool   `help:"Create global configuration"`
	FilePath string `help:"Custom file path for configuration"`
}

// Run executes the setup command.
func (c *SetupCmd) Run() error {
	// If no specific client is specified, output config to stdout
	if !c.Claude && !c.Cursor {
		jsonBytes, err := json.MarshalIndent(generateMCPConfig(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(jsonBytes))
		return nil
	}

	// If neither local nor global is specified, default to local
	if !c.Local && !c.Global {
		c.Local = true
	}

	if c.Claude {
		if err := c.setupClient("claude", ".claude", "settings.json"); err != nil {
			return err
		}
	}
	if c.Cursor {
		if err := c.setupClient("cursor", ".cursor", "mcp.json"); err != nil {
			return err
		}
	}

	return nil
}

func (c *SetupCmd) setupClient(client, configDir, fileName string) error {
	config := generateMCPConfig()

	if c.Global {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = os.Getenv("HOME")
		}
		globalPath := filepath.Join(homeDir, configDir, "mcp.json")
		if err := writeClientConfig(globalPath, config); err != nil {
			return err
		}
		color.Green("✓ Created global %s MCP config at %s", client, globalPath)
	}

	if c.Local {
		localPath := filepath.Join(".", configDir, fileName)
		if c.FilePath != "" {
			localPath = filepath.Join(c.FilePath, fileName)
		}
		if err := writeClientConfig(localPath, config); err != nil {
			return err
		}
		color.Green("✓ Created local %s MCP config at %s", client, localPath)
	}

	return nil
}

func generateMCPConfig() map[string]any {
	return map[string]any{
		"mcpServers": map[string]any{
			"strata-go": map[string]any{
				"command": "strata-go",
				"args":    []string{"serve", "--watch"},
			},
		},
	}
}

func writeClientConfig(configPath string, config map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	content, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	content = append(content, '\n')

	if err := os.WriteFile(configPath, content, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// StatusCmd shows ingest status for the current project.
type StatusCmd struct{}

// Run executes the status command.
func (c *StatusCmd) Run() error {
	metaPath := filepath.Join(".", StrataDir, "meta.json")
	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no database found. Run 'strata analyze' first")
		}
		return fmt.Errorf("reading meta.json: %w", err)
	}

	var meta map[string]any
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return fmt.Errorf("parsing meta.json: %w", err)
	}

	fmt.Println("Strata database status")
	if version, ok := meta["version"].(string); ok {
		fmt.Printf("  Version:        %s\n", version)
	}
	if export, ok := meta["export"].(string); ok {
		fmt.Printf("  Export:         %s\n", export)
	}
	if ingestedAt, ok := meta["ingested_at"].(string); ok {
		fmt.Printf("  Last ingest:    %s\n", ingestedAt)
	}
	if stats, ok := meta["stats"].(map[string]any); ok {
		if functions, ok := stats["functions"].(float64); ok {
			fmt.Printf("  Functions:      %.0f\n", functions)
		}
		if components, ok := stats["components"].(float64); ok {
			fmt.Printf("  Components:     %.0f\n", components)
		}
	}

	return nil
}

// CleanCmd deletes the database for the current project.
type CleanCmd struct {
	Force bool `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run() error {
	stateDir := filepath.Join(".", StrataDir)
	if _, err := os.Stat(stateDir); os.IsNotExist(err) {
		return fmt.Errorf("no database found. Nothing to clean")
	}

	if !c.Force {
		fmt.Printf("Delete database at %s? [y/N] ", stateDir)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(stateDir); err != nil {
		return fmt.Errorf("deleting database: %w", err)
	}

	color.Green("Deleted %s", stateDir)
	return nil
}

// Helper functions

// osSignalChannel returns a channel that receives OS signals for graceful shutdown.
func osSignalChannel() <-chan os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}

func configPath() string {
	return filepath.Join(".", StrataDir, "config.yaml")
}

func loadProjectConfig() (*ingest.Config, error) {
	cfg, err := ingest.LoadConfig(configPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// loadState opens the project database and loads the snapshot into memory.
func loadState(readOnly bool) (*storage.BadgerBackend, *analysis.Database, *component.Store, error) {
	dbPath := filepath.Join(".", StrataDir, "badger")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, nil, nil, fmt.Errorf("no database found. Run 'strata analyze' first")
	}

	backend := storage.NewBadgerBackend()
	if err := backend.Initialize(dbPath, readOnly); err != nil {
		return nil, nil, nil, fmt.Errorf("initializing storage: %w", err)
	}

	db, store, err := backend.LoadSnapshot(context.Background())
	if err != nil {
		_ = backend.Close()
		return nil, nil, nil, fmt.Errorf("loading snapshot: %w", err)
	}

	return backend, db, store, nil
}

// mutate loads the snapshot read-write, applies fn, and persists the result.
// A failing fn leaves the stored snapshot untouched.
func mutate(fn func(db *analysis.Database, store *component.Store) error) error {
	backend, db, store, err := loadState(false)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	if err := fn(db, store); err != nil {
		return err
	}

	if err := backend.SaveSnapshot(context.Background(), db, store); err != nil {
		return fmt.Errorf("persisting snapshot: %w", err)
	}
	return nil
}

// findComponent resolves a GUID or display name to a node. Names are
// matched depth-first; the first match wins.
func findComponent(store *component.Store, id string) *component.Component {
	if guid, err := uuid.Parse(id); err == nil {
		return store.Lookup(guid)
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
	walk(store.Root())
	return found
}

func parseAddr(s string) (uint64, error) {
	addr, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return addr, nil
}

// CLI is the root Kong command structure.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information"`
	Verbose bool             `short:"v" help:"Enable verbose output"`
	Quiet   bool             `short:"q" help:"Suppress non-essential output"`

	// Commands
	Analyze   AnalyzeCmd   `cmd:"" help:"Ingest a disassembler export into the component database"`
	Tree      TreeCmd      `cmd:"" help:"Render the component tree"`
	Find      FindCmd      `cmd:"" help:"Search functions and components by name"`
	Component ComponentCmd `cmd:"" help:"Inspect one component"`
	New       NewCmd       `cmd:"" help:"Create a component"`
	Move      MoveCmd      `cmd:"" help:"Re-parent a component"`
	Rm        RmCmd        `cmd:"" help:"Destroy a component"`
	AddFunc   AddFuncCmd   `cmd:"" name:"add-func" help:"Attach a function to a component"`
	RmFunc    RmFuncCmd    `cmd:"" name:"rm-func" help:"Detach a function from a component"`
	Watch     WatchCmd     `cmd:"" help:"Re-ingest the export on change"`
	Setup     SetupCmd     `cmd:"" help:"Configure MCP for Claude Code / Cursor"`
	MCP       MCPCmd       `cmd:"" help:"Start MCP server (stdio transport)"`
	Serve     ServeCmd     `cmd:"" help:"Start MCP server with optional watch mode"`
	Status    StatusCmd    `cmd:"" help:"Show ingest status for the current project"`
	Clean     CleanCmd     `cmd:"" help:"Delete the database for the current project"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	kongCtx := kong.Parse(c,
		kong.Name("strata"),
		kong.Description("Component tree manager for binary analysis databases"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	return kongCtx.Run()
}
