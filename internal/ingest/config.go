package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds per-project ingestion settings, loaded from
// .strata/config.yaml.
type Config struct {
	// Export is the path of the export document to (re)ingest.
	Export string `yaml:"export"`

	// AutoGroup enables namespace-based component grouping.
	AutoGroup bool `yaml:"auto_group"`

	// Debounce is the settle time before a watched change triggers
	// re-ingestion, in seconds.
	Debounce int `yaml:"debounce"`

	// Ignore lists watch-exclusion patterns in gitignore syntax, in
	// addition to .strataignore.
	Ignore []string `yaml:"ignore"`
}

// DefaultConfig returns the settings used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		AutoGroup: true,
		Debounce:  2,
	}
}

// LoadConfig reads a config file, falling back to defaults when the
// file does not exist. Unknown keys are rejected so typos surface
// instead of silently reverting to defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.Debounce < 0 {
		return nil, fmt.Errorf("config %s: debounce must not be negative", path)
	}
	return cfg, nil
}
