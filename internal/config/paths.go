// Package config provides configuration management for selecta.
package config

import (
	"os"
	"path/filepath"
)

// Paths holds the path configuration for selecta.
type Paths struct {
	// ConfigDir is the directory for configuration files (~/.config/selecta)
	ConfigDir string

	// DataDir is the directory for data files such as the recents
	// database (~/.local/share/selecta)
	DataDir string

	// CacheDir is the directory for cache files like the instance
	// lock (~/.cache/selecta)
	CacheDir string
}

// DefaultPaths returns the default paths based on the XDG Base
// Directory spec, honoring XDG_* overrides.
func DefaultPaths() *Paths {
	home := homeDir()

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		configDir = filepath.Join(home, ".config")
	}
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		dataDir = filepath.Join(home, ".local", "share")
	}
	cacheDir := os.Getenv("XDG_CACHE_HOME")
	if cacheDir == "" {
		cacheDir = filepath.Join(home, ".cache")
	}

	return &Paths{
		ConfigDir: filepath.Join(configDir, "selecta"),
		DataDir:   filepath.Join(dataDir, "selecta"),
		CacheDir:  filepath.Join(cacheDir, "selecta"),
	}
}

// ConfigFile returns the path to the config file.
func (p *Paths) ConfigFile() string {
	return filepath.Join(p.ConfigDir, "config.yaml")
}

// HistoryDB returns the default recents database path.
func (p *Paths) HistoryDB() string {
	return filepath.Join(p.DataDir, "recents.db")
}

// LockFile returns the single-instance lock path.
func (p *Paths) LockFile() string {
	return filepath.Join(p.CacheDir, "picker.lock")
}

// homeDir returns the user's home directory, falling back to the
// current directory when it cannot be determined.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
