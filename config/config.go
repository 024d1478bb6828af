// Package config loads and validates the cstatic configuration file.
package config

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
)

// Root is one source directory to collect static files from.
type Root struct {
	// Path is the directory on disk.
	Path string `toml:"path"`
	// Prefix, when set, is prepended to destination paths from this root.
	Prefix string `toml:"prefix"`
}

// Config is the full configuration of a collection run. Command-line flags
// overlay whatever the file provides.
type Config struct {
	// Destination is where files are collected to: a local directory path,
	// "s3://bucket/prefix", or "minio://endpoint/bucket/prefix".
	Destination string `toml:"destination"`

	// Roots are the source directories, collected in order.
	Roots []Root `toml:"roots"`

	// Faster enables the parallel transfer engine.
	Faster bool `toml:"faster"`

	// Workers is the pool size for parallel mode.
	Workers int `toml:"workers"`

	// Link collects by symlinking instead of copying (local destinations).
	Link bool `toml:"link"`

	// PostProcess runs content-hash renaming after collection.
	PostProcess bool `toml:"post_process"`

	// Ignore holds doublestar glob patterns of files to skip.
	Ignore []string `toml:"ignore"`

	// ManifestDir is where the run manifest database and lock live.
	ManifestDir string `toml:"manifest_dir"`
}

// Default returns the configuration used when the file omits a field.
func Default() *Config {
	return &Config{
		Workers:     20,
		PostProcess: true,
		ManifestDir: ".cstatic",
	}
}

// Load reads the TOML file at path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

// Validate checks the configuration before any work starts.
func (c *Config) Validate() error {
	if c.Destination == "" {
		return &ValidationError{Field: "destination", Reason: "must not be empty"}
	}
	if _, err := ParseDestination(c.Destination); err != nil {
		return &ValidationError{Field: "destination", Reason: err.Error()}
	}
	if len(c.Roots) == 0 {
		return &ValidationError{Field: "roots", Reason: "at least one source root is required"}
	}
	for i, root := range c.Roots {
		if root.Path == "" {
			return &ValidationError{Field: fmt.Sprintf("roots[%d].path", i), Reason: "must not be empty"}
		}
	}
	if c.Workers <= 0 {
		return &ValidationError{Field: "workers", Reason: fmt.Sprintf("must be positive, got %d", c.Workers)}
	}
	for _, pattern := range c.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return &ValidationError{Field: "ignore", Reason: fmt.Sprintf("invalid pattern %q", pattern)}
		}
	}
	if c.ManifestDir == "" {
		return &ValidationError{Field: "manifest_dir", Reason: "must not be empty"}
	}
	return nil
}
