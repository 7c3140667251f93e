package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the selecta configuration.
type Config struct {
	Picker  PickerConfig        `yaml:"picker"`
	Source  SourceConfig        `yaml:"source"`
	History HistoryConfig       `yaml:"history"`
	Filters map[string][]string `yaml:"filters"` // sentinel token -> kind set
}

// PickerConfig holds session defaults.
type PickerConfig struct {
	Prompt         string `yaml:"prompt"`          // Query line prompt
	AutoSelect     bool   `yaml:"auto_select"`     // Confirm when exactly one match remains
	PreserveOrder  bool   `yaml:"preserve_order"`  // Keep original order in flat mode
	MultiselectMax int    `yaml:"multiselect_max"` // Max marked items (0 = unlimited)
	DebounceMs     int    `yaml:"debounce_ms"`     // Keystroke-to-request delay
}

// SourceConfig tunes async production.
type SourceConfig struct {
	TimeoutMs   int `yaml:"timeout_ms"`   // Per-request producer timeout
	MaxInflight int `yaml:"max_inflight"` // Process-wide concurrent producer cap
}

// HistoryConfig controls the recents store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"` // Record confirmed picks
	DBPath  string `yaml:"db_path"` // Overrides the default path
	Limit   int    `yaml:"limit"`   // Items served by the recents producer
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Picker: PickerConfig{
			Prompt:     "> ",
			DebounceMs: 100,
		},
		Source: SourceConfig{
			TimeoutMs:   1000,
			MaxInflight: 4,
		},
		History: HistoryConfig{
			Enabled: true,
			Limit:   200,
		},
	}
}

// Load reads the config file, overlaying it on the defaults. A missing
// file is not an error; a malformed one is.
func Load() (*Config, error) {
	return LoadFrom(DefaultPaths().ConfigFile())
}

// LoadFrom reads the config from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and normalizes zero values back to defaults.
func (c *Config) Validate() error {
	if c.Picker.MultiselectMax < 0 {
		return fmt.Errorf("picker.multiselect_max must be >= 0 (got %d)", c.Picker.MultiselectMax)
	}
	if c.Picker.DebounceMs < 0 {
		return fmt.Errorf("picker.debounce_ms must be >= 0 (got %d)", c.Picker.DebounceMs)
	}
	if c.Source.TimeoutMs <= 0 {
		c.Source.TimeoutMs = Default().Source.TimeoutMs
	}
	if c.Source.MaxInflight <= 0 {
		c.Source.MaxInflight = Default().Source.MaxInflight
	}
	if c.History.Limit <= 0 {
		c.History.Limit = Default().History.Limit
	}
	return nil
}
