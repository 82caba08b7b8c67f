// Package config reads the delivery engine's environment configuration.
package config

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration. Command-line flags override it.
type Config struct {
	// DBPath is the SQLite database holding sessions and event logs.
	DBPath string `env:"DELIVER_DB" envDefault:"deliver.db"`

	// ContentDir is the CUE package with items, tests and deliveries.
	ContentDir string `env:"DELIVER_SPECS"`

	// StylesheetDir replaces the embedded stylesheets when set.
	StylesheetDir string `env:"DELIVER_STYLESHEETS"`

	// TempDir receives buffered renders. Empty means os.TempDir().
	TempDir string `env:"DELIVER_TEMP_DIR"`

	LogLevel string `env:"DELIVER_LOG_LEVEL" envDefault:"info"`
	Encoding string `env:"DELIVER_ENCODING" envDefault:"utf-8"`

	// Seed fixes template processing randomness when non-zero.
	Seed uint64 `env:"DELIVER_SEED"`

	// OTelEndpoint is the OTLP/HTTP collector URL spans are exported to.
	// Tracing is off when it is empty.
	OTelEndpoint string `env:"DELIVER_OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"DELIVER_OTEL_ENABLED" envDefault:"true"`
}

// Tracing reports whether spans should be exported.
func (c Config) Tracing() bool {
	return c.OTelEnabled && c.OTelEndpoint != ""
}

// Load parses the environment.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.Level(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Level returns the slog level named by LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("DELIVER_LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// Stylesheets returns the external stylesheet directory, or nil for the
// embedded defaults.
func (c Config) Stylesheets() fs.FS {
	if c.StylesheetDir == "" {
		return nil
	}
	return os.DirFS(c.StylesheetDir)
}
