package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-re/strata-go/internal/storage"
)

func TestRunPipeline(t *testing.T) {
	t.Parallel()

	t.Run("FullRun", func(t *testing.T) {
		t.Parallel()
		backend := storage.NewMemoryBackend()
		require.NoError(t, backend.Initialize("", false))

		var phases []string
		progress := func(phase string, pct float64) {
			if pct == 0 {
				phases = append(phases, phase)
			}
		}

		db, store, result, err := RunPipeline(context.Background(), writeExport(t, sampleExport), backend, true, progress)
		require.NoError(t, err)

		assert.Equal(t, 3, result.Functions)
		assert.Equal(t, 2, result.DataVariables)
		assert.Equal(t, 2, result.Types)
		assert.Equal(t, 1, result.AutoGrouped, "std::fs::read gets grouped")
		assert.Equal(t, result.Components, store.Count())
		assert.Equal(t, 3, db.FunctionCount())
		assert.GreaterOrEqual(t, result.DurationSecs, 0.0)

		assert.Equal(t, []string{"Loading export", "Building database", "Grouping by namespace", "Saving snapshot"}, phases)

		// The snapshot landed in the backend.
		assert.Equal(t, 3, backend.FunctionCount())
		loadedDB, _, err := backend.LoadSnapshot(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 3, loadedDB.FunctionCount())
	})

	t.Run("AutoGroupDisabled", func(t *testing.T) {
		t.Parallel()
		backend := storage.NewMemoryBackend()
		require.NoError(t, backend.Initialize("", false))

		_, store, result, err := RunPipeline(context.Background(), writeExport(t, sampleExport), backend, false, nil)
		require.NoError(t, err)

		assert.Equal(t, 0, result.AutoGrouped)
		assert.Equal(t, 2, store.Count(), "only the exported components")
	})

	t.Run("InvalidExport", func(t *testing.T) {
		t.Parallel()
		backend := storage.NewMemoryBackend()
		require.NoError(t, backend.Initialize("", false))

		_, _, _, err := RunPipeline(context.Background(), writeExport(t, "{}"), backend, true, nil)
		assert.Error(t, err)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		t.Parallel()
		backend := storage.NewMemoryBackend()
		require.NoError(t, backend.Initialize("", false))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, _, err := RunPipeline(ctx, writeExport(t, sampleExport), backend, true, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
