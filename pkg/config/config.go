// Package config handles the kodon configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the settings the CLI reads from a YAML file. Flags
// override individual values at the command layer.
type Config struct {
	// DBPath is the SQLite database file.
	DBPath string `yaml:"db_path"`

	// Workers bounds concurrent document builds during ingestion.
	Workers int `yaml:"workers"`

	// OnDuplicate is the ingestion policy for already-committed document
	// URNs: "reject", "replace", or "skip".
	OnDuplicate string `yaml:"on_duplicate"`

	// LogLevel is "debug", "info", "warn", or "error".
	LogLevel string `yaml:"log_level"`

	// LogFormat is "console" or "json".
	LogFormat string `yaml:"log_format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DBPath:      "kodon.db",
		Workers:     4,
		OnDuplicate: "reject",
		LogLevel:    "info",
		LogFormat:   "console",
	}
}

// Load reads the configuration from the default location. A missing
// file is not an error; the defaults are returned unchanged.
func Load() (*Config, error) {
	path := DefaultPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from an explicit path. Unset keys
// keep their default values.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultPath returns ~/.config/kodon/config.yaml when it exists,
// otherwise the OS config directory, otherwise the working directory.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "kodon", "config.yaml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "kodon", "config.yaml")
	}
	return filepath.Join(".", "config.yaml")
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	switch c.OnDuplicate {
	case "reject", "replace", "skip":
	default:
		return fmt.Errorf("on_duplicate must be reject, replace, or skip, got %q", c.OnDuplicate)
	}
	return nil
}
