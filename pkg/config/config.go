// Package config loads and validates cacherch configuration from a YAML file
// with environment-variable overrides. It provides typed structs for every
// subsystem (Index, Cache, Logging, Metrics).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Cache backends understood by the result cache.
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Config is the top-level application configuration.
type Config struct {
	Index   IndexConfig   `yaml:"index"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// IndexConfig controls where the index lives and how a build runs.
type IndexConfig struct {
	Dir         string        `yaml:"dir"`
	Workers     int           `yaml:"workers"`
	LockTimeout time.Duration `yaml:"lockTimeout"`
	PDFToText   string        `yaml:"pdftotext"`
}

// CacheConfig holds the result-cache store connection and policy settings.
type CacheConfig struct {
	Backend          string        `yaml:"backend"`
	URL              string        `yaml:"url"`
	DialTimeout      time.Duration `yaml:"dialTimeout"`
	OpTimeout        time.Duration `yaml:"opTimeout"`
	DefaultTTL       time.Duration `yaml:"defaultTTL"`
	MemoryCapacity   int           `yaml:"memoryCapacity"`
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the optional Prometheus Pushgateway push performed
// at the end of each command.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgatewayUrl"`
	Job            string `yaml:"job"`
}

// Override adjusts a loaded configuration before it is validated, for
// settings given on the command line.
type Override func(*Config)

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults, then the given overrides. The result is
// validated once all layers are in place.
func Load(path string, overrides ...Override) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	for _, override := range overrides {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			Dir:         "./index",
			Workers:     4,
			LockTimeout: 10 * time.Second,
			PDFToText:   "pdftotext",
		},
		Cache: CacheConfig{
			Backend:          CacheBackendRedis,
			URL:              "redis://127.0.0.1:6379/0",
			DialTimeout:      2 * time.Second,
			OpTimeout:        2 * time.Second,
			DefaultTTL:       30 * time.Second,
			MemoryCapacity:   1024,
			BreakerThreshold: 1,
			BreakerReset:     30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Job: "cacherch",
		},
	}
}

// Validate rejects values no command can run with.
func (c *Config) Validate() error {
	if c.Index.Dir == "" {
		return fmt.Errorf("index.dir must not be empty")
	}
	if c.Index.Workers < 1 {
		return fmt.Errorf("index.workers must be at least 1, got %d", c.Index.Workers)
	}
	switch c.Cache.Backend {
	case CacheBackendRedis, CacheBackendMemory:
	default:
		return fmt.Errorf("cache.backend must be %q or %q, got %q", CacheBackendRedis, CacheBackendMemory, c.Cache.Backend)
	}
	if c.Cache.Backend == CacheBackendRedis && c.Cache.URL == "" {
		return fmt.Errorf("cache.url is required for the redis backend")
	}
	if c.Cache.OpTimeout <= 0 {
		return fmt.Errorf("cache.opTimeout must be positive")
	}
	if c.Cache.DefaultTTL < time.Second {
		return fmt.Errorf("cache.defaultTTL must be at least 1s, got %s", c.Cache.DefaultTTL)
	}
	return nil
}

// applyEnvOverrides reads CACHERCH_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CACHERCH_INDEX_DIR"); v != "" {
		cfg.Index.Dir = v
	}
	if v := os.Getenv("CACHERCH_INDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.Workers = n
		}
	}
	if v := os.Getenv("CACHERCH_PDFTOTEXT"); v != "" {
		cfg.Index.PDFToText = v
	}
	if v := os.Getenv("CACHERCH_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("CACHERCH_CACHE_URL"); v != "" {
		cfg.Cache.URL = v
	}
	if v := os.Getenv("CACHERCH_CACHE_OP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.OpTimeout = d
		}
	}
	if v := os.Getenv("CACHERCH_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CACHERCH_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CACHERCH_PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
}
