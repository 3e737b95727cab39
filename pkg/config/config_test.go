package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./index", cfg.Index.Dir)
	assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
	assert.Equal(t, 30*time.Second, cfg.Cache.DefaultTTL)
	assert.Equal(t, "cacherch", cfg.Metrics.Job)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cacherch.yaml")
	content := `
index:
  dir: /var/lib/cacherch
  workers: 8
cache:
  backend: memory
  opTimeout: 500ms
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/cacherch", cfg.Index.Dir)
	assert.Equal(t, 8, cfg.Index.Workers)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 500*time.Millisecond, cfg.Cache.OpTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	// untouched keys keep their defaults
	assert.Equal(t, "pdftotext", cfg.Index.PDFToText)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CACHERCH_INDEX_DIR", "/tmp/idx")
	t.Setenv("CACHERCH_CACHE_URL", "redis://cache:6379/2")
	t.Setenv("CACHERCH_INDEX_WORKERS", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/idx", cfg.Index.Dir)
	assert.Equal(t, "redis://cache:6379/2", cfg.Cache.URL)
	assert.Equal(t, 4, cfg.Index.Workers)
}

func TestLoadOverridesApplyBeforeValidation(t *testing.T) {
	t.Setenv("CACHERCH_CACHE_BACKEND", "bogus")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.backend")

	cfg, err := Load("", func(c *Config) { c.Cache.Backend = CacheBackendMemory })
	require.NoError(t, err)
	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
}

func TestLoadValidatesOverrides(t *testing.T) {
	_, err := Load("", func(c *Config) { c.Cache.Backend = "memcached" })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.backend")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"empty dir", func(c *Config) { c.Index.Dir = "" }, "index.dir"},
		{"zero workers", func(c *Config) { c.Index.Workers = 0 }, "index.workers"},
		{"bad backend", func(c *Config) { c.Cache.Backend = "memcached" }, "cache.backend"},
		{"redis without url", func(c *Config) { c.Cache.URL = "" }, "cache.url"},
		{"zero op timeout", func(c *Config) { c.Cache.OpTimeout = 0 }, "cache.opTimeout"},
		{"sub-second ttl", func(c *Config) { c.Cache.DefaultTTL = 10 * time.Millisecond }, "cache.defaultTTL"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}

	require.NoError(t, Default().Validate())
}
