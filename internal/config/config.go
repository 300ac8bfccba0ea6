// Package config loads adformats settings from an optional YAML file and
// ADFORMATS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wilhg/adformats/pkg/adformat"
	"github.com/wilhg/adformats/pkg/transport"
)

// Config holds all adformats configuration.
type Config struct {
	// HTTP listen address
	Addr string `yaml:"addr"`

	Database DatabaseConfig `yaml:"database"`
	Store    StoreConfig    `yaml:"store"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// DatabaseConfig selects the repository backend.
type DatabaseConfig struct {
	Backend string `yaml:"backend"` // memory or sql
	URL     string `yaml:"url"`
}

// StoreConfig tunes the data-access layer.
type StoreConfig struct {
	Latency        Duration `yaml:"latency"`
	SeedCount      int      `yaml:"seed_count"`
	LenientUpdates bool     `yaml:"lenient_updates"`
	ValidateEvents bool     `yaml:"validate_events"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig configures OpenTelemetry.
type TracingConfig struct {
	Stdout      bool    `yaml:"stdout"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// Duration is a time.Duration that reads "500ms"-style strings from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	v, err := time.ParseDuration(n.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", n.Value, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:     ":8080",
		Database: DatabaseConfig{Backend: "memory"},
		Store: StoreConfig{
			Latency:        Duration(transport.DefaultDelay),
			SeedCount:      adformat.DefaultSeedCount,
			ValidateEvents: true,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file or empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	c.Addr = getEnv("ADFORMATS_ADDR", c.Addr)
	if url := os.Getenv("ADFORMATS_DATABASE_URL"); url != "" {
		c.Database.URL = url
		c.Database.Backend = "sql"
	}
	c.Database.Backend = getEnv("ADFORMATS_DATABASE_BACKEND", c.Database.Backend)
	c.Logging.Level = getEnv("ADFORMATS_LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("ADFORMATS_LOG_FORMAT", c.Logging.Format)
	if v := os.Getenv("ADFORMATS_LATENCY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ADFORMATS_LATENCY: %w", err)
		}
		c.Store.Latency = Duration(d)
	}
	if v := os.Getenv("ADFORMATS_SEED_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ADFORMATS_SEED_COUNT: %w", err)
		}
		c.Store.SeedCount = n
	}
	return nil
}

// Validate checks the configuration for values nothing downstream can use.
func (c *Config) Validate() error {
	switch c.Database.Backend {
	case "memory":
	case "sql":
		if c.Database.URL == "" {
			return errors.New("database.url is required for the sql backend")
		}
	default:
		return fmt.Errorf("invalid database backend: %q (valid: memory, sql)", c.Database.Backend)
	}
	if c.Store.Latency < 0 {
		return fmt.Errorf("store.latency must not be negative: %s", time.Duration(c.Store.Latency))
	}
	if c.Store.SeedCount < 0 {
		return fmt.Errorf("store.seed_count must not be negative: %d", c.Store.SeedCount)
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
