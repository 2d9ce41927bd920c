package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g.
// NEWSSEEKER_COLLECTOR_STEP_INTERVAL.
const EnvPrefix = "NEWSSEEKER"

// Config is the full runtime configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Collector CollectorConfig `yaml:"collector"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// StorageConfig locates the metadata database and the news feed directory.
type StorageConfig struct {
	MetadataDSN string `yaml:"metadata_dsn" envconfig:"METADATA_DSN"`
	FeedDir     string `yaml:"feed_dir" envconfig:"FEED_DIR"`
}

// CollectorConfig paces collection runs.
type CollectorConfig struct {
	StepInterval      time.Duration `yaml:"step_interval" envconfig:"STEP_INTERVAL"`
	SimulatedSteps    int           `yaml:"simulated_steps" envconfig:"SIMULATED_STEPS"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout" envconfig:"FETCH_TIMEOUT"`
	RequestsPerSecond float64       `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND"`
	UserAgent         string        `yaml:"user_agent" envconfig:"USER_AGENT"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" envconfig:"ADDR"`
}

// LogConfig configures logging. Format is "json" or "text".
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// Default returns the built-in configuration, storing data under dataDir.
func Default(dataDir string) Config {
	return Config{
		Storage: StorageConfig{
			MetadataDSN: filepath.Join(dataDir, "metadata.db"),
			FeedDir:     filepath.Join(dataDir, "feed"),
		},
		Collector: CollectorConfig{
			StepInterval:      100 * time.Millisecond,
			SimulatedSteps:    50,
			FetchTimeout:      10 * time.Second,
			RequestsPerSecond: 2,
			UserAgent:         "newsseeker/1.0 (news collector)",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (or
// the default path when empty), then environment overrides.
func Load(path string) (*Config, error) {
	dir, err := DataDir()
	if err != nil {
		return nil, err
	}
	if path == "" {
		path = filepath.Join(dir, "config.yaml")
	}

	cfg := Default(dir)
	if err := LoadFile(path, &cfg); err != nil {
		return nil, err
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate rejects values the collector or server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Storage.MetadataDSN == "" {
		errs = append(errs, errors.New("storage.metadata_dsn is required"))
	}
	if c.Storage.FeedDir == "" {
		errs = append(errs, errors.New("storage.feed_dir is required"))
	}
	if c.Collector.StepInterval <= 0 {
		errs = append(errs, errors.New("collector.step_interval must be positive"))
	}
	if c.Collector.SimulatedSteps <= 0 {
		errs = append(errs, errors.New("collector.simulated_steps must be positive"))
	}
	if c.Collector.FetchTimeout <= 0 {
		errs = append(errs, errors.New("collector.fetch_timeout must be positive"))
	}
	if c.Collector.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("collector.requests_per_second must be positive"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
