package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerBackend_Initialize(t *testing.T) {
	t.Parallel()

	b := NewBadgerBackend()
	require.NoError(t, b.Initialize(filepath.Join(t.TempDir(), "badger"), false))
	assert.True(t, b.IsInitialized())

	require.NoError(t, b.Close())
	assert.False(t, b.IsInitialized())

	// Close is idempotent.
	require.NoError(t, b.Close())
}

func TestBadgerBackend_SurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "badger")
	db, store := newFixture(t)

	b := NewBadgerBackend()
	require.NoError(t, b.Initialize(path, false))
	require.NoError(t, b.SaveSnapshot(ctx, db, store))
	require.NoError(t, b.Close())

	reopened := NewBadgerBackend()
	require.NoError(t, reopened.Initialize(path, false))
	defer func() { _ = reopened.Close() }()

	// Counts and the symbol index are rebuilt from disk.
	assert.Equal(t, 2, reopened.FunctionCount())
	assert.Equal(t, 2, reopened.ComponentCount())

	matches, err := reopened.FindSymbols(ctx, "main", 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "main", matches[0].Name)

	loadedDB, loadedStore, err := reopened.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loadedDB.FunctionCount())
	assert.Equal(t, 2, loadedStore.Count())
}

func TestBadgerBackend_UsesBeforeInitializeFail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := NewBadgerBackend()

	_, _, err := b.LoadSnapshot(ctx)
	assert.Error(t, err)

	db, store := newFixture(t)
	assert.Error(t, b.SaveSnapshot(ctx, db, store))
}
