package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("MissingFileUsesDefaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.yaml"))
		require.NoError(t, err)
		assert.True(t, cfg.AutoGroup)
		assert.Equal(t, 2, cfg.Debounce)
		assert.Empty(t, cfg.Ignore)
	})

	t.Run("ValuesOverrideDefaults", func(t *testing.T) {
		t.Parallel()
		path := writeConfig(t, "export: out/export.json\nauto_group: false\ndebounce: 5\nignore:\n  - '*.tmp'\n")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "out/export.json", cfg.Export)
		assert.False(t, cfg.AutoGroup)
		assert.Equal(t, 5, cfg.Debounce)
		assert.Equal(t, []string{"*.tmp"}, cfg.Ignore)
	})

	t.Run("EmptyFileUsesDefaults", func(t *testing.T) {
		t.Parallel()
		cfg, err := LoadConfig(writeConfig(t, ""))
		require.NoError(t, err)
		assert.True(t, cfg.AutoGroup)
	})

	t.Run("UnknownKeyRejected", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfig(writeConfig(t, "auto_groop: true\n"))
		assert.Error(t, err)
	})

	t.Run("NegativeDebounceRejected", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfig(writeConfig(t, "debounce: -1\n"))
		assert.Error(t, err)
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
