// Package config loads cylbom configuration from YAML with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all cylbom configuration.
type Config struct {
	// Store settings
	Store StoreConfig `yaml:"store"`

	// Rules engine settings
	Rules RulesConfig `yaml:"rules"`

	// Pipeline settings
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Batch coordinator settings
	Batch BatchConfig `yaml:"batch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the SQLite knowledge store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// RulesConfig configures rule loading and hot reload.
type RulesConfig struct {
	Directory     string `yaml:"directory"`
	Watch         bool   `yaml:"watch"`
	MaxIterations int    `yaml:"max_iterations"`
}

// PipelineConfig configures per-stage behavior of the generator.
type PipelineConfig struct {
	StageTimeout string `yaml:"stage_timeout"`
	SuggestTopN  int    `yaml:"suggest_top_n"`
	MemoCapacity int    `yaml:"memo_capacity"`
}

// BatchConfig configures the batch coordinator.
type BatchConfig struct {
	Workers     int    `yaml:"workers"`
	ItemTimeout string `yaml:"item_timeout"`
	BatchSize   int    `yaml:"batch_size"`
	MaxRetries  int    `yaml:"max_retries"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			DatabasePath: ".cylbom/cylbom.db",
		},
		Rules: RulesConfig{
			Directory:     "rules",
			Watch:         false,
			MaxIterations: 100,
		},
		Pipeline: PipelineConfig{
			StageTimeout: "10s",
			SuggestTopN:  10,
			MemoCapacity: 4096,
		},
		Batch: BatchConfig{
			Workers:     8,
			ItemTimeout: "30s",
			BatchSize:   50,
			MaxRetries:  0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the config file at path, falling back to defaults when
// the file does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, cfg.Validate()
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("CYLBOM_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if dir := os.Getenv("CYLBOM_RULES_DIR"); dir != "" {
		c.Rules.Directory = dir
	}
	if level := os.Getenv("CYLBOM_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if workers := os.Getenv("CYLBOM_BATCH_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			c.Batch.Workers = n
		}
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	if c.Store.DatabasePath == "" {
		return fmt.Errorf("store.database_path must not be empty")
	}
	if c.Rules.MaxIterations <= 0 {
		return fmt.Errorf("rules.max_iterations must be positive, got %d", c.Rules.MaxIterations)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("batch.workers must be positive, got %d", c.Batch.Workers)
	}
	if c.Batch.BatchSize <= 0 {
		return fmt.Errorf("batch.batch_size must be positive, got %d", c.Batch.BatchSize)
	}
	if _, err := c.StageTimeout(); err != nil {
		return fmt.Errorf("pipeline.stage_timeout: %w", err)
	}
	if _, err := c.ItemTimeout(); err != nil {
		return fmt.Errorf("batch.item_timeout: %w", err)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level)
	}
	return nil
}

// StageTimeout parses the pipeline stage timeout.
func (c *Config) StageTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Pipeline.StageTimeout)
}

// ItemTimeout parses the per-item batch timeout.
func (c *Config) ItemTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Batch.ItemTimeout)
}
