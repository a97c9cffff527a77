package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/strata-re/strata-go/internal/analysis"
	"github.com/strata-re/strata-go/internal/component"
	"github.com/strata-re/strata-go/internal/storage"
)

// PipelineResult summarizes one ingestion run.
type PipelineResult struct {
	Functions     int     `json:"functions"`
	DataVariables int     `json:"data_variables"`
	Types         int     `json:"types"`
	Components    int     `json:"components"`
	AutoGrouped   int     `json:"auto_grouped"`
	DurationSecs  float64 `json:"duration_secs"`
}

// ProgressFunc reports pipeline progress: phase name and completion
// in [0, 1].
type ProgressFunc func(phase string, pct float64)

// RunPipeline loads an export, builds the database and component
// tree, optionally auto-groups ungrouped functions by namespace, and
// persists the snapshot. Returns the built state alongside the run
// summary.
func RunPipeline(ctx context.Context, exportPath string, backend storage.Backend, autoGroup bool, progress ProgressFunc) (*analysis.Database, *component.Store, *PipelineResult, error) {
	start := time.Now()
	if progress == nil {
		progress = func(string, float64) {}
	}

	progress("Loading export", 0)
	export, err := LoadExport(exportPath)
	if err != nil {
		return nil, nil, nil, err
	}
	progress("Loading export", 1)

	progress("Building database", 0)
	db, store, err := Build(export)
	if err != nil {
		return nil, nil, nil, err
	}
	progress("Building database", 1)

	result := &PipelineResult{
		Functions:     len(export.Functions),
		DataVariables: len(export.DataVariables),
		Types:         len(export.Types),
	}

	if autoGroup {
		progress("Grouping by namespace", 0)
		result.AutoGrouped = AutoGroup(db, store)
		progress("Grouping by namespace", 1)
	}
	result.Components = store.Count()

	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}

	progress("Saving snapshot", 0)
	if err := backend.SaveSnapshot(ctx, db, store); err != nil {
		return nil, nil, nil, fmt.Errorf("saving snapshot: %w", err)
	}
	progress("Saving snapshot", 1)

	result.DurationSecs = time.Since(start).Seconds()
	return db, store, result, nil
}
