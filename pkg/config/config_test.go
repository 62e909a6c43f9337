package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "index.json", cfg.Index.File)
	assert.Equal(t, int64(10*1024*1024), cfg.Index.MaxFileSize)
	assert.Equal(t, []string{"utf-8", "windows-1251", "koi8-r", "iso-8859-1"}, cfg.Index.Encodings)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "lru", cfg.Cache.Backend)
	assert.Equal(t, 256, cfg.Server.MaxConns)
	assert.Equal(t, 8081, cfg.Analytics.Port)
	assert.Equal(t, 100, cfg.Kafka.BatchSize)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlData := `
index:
  file: /var/lib/textsearch/index.json
  extensions: [".txt", ".md"]
search:
  defaultLimit: 5
  maxResults: 50
cache:
  backend: redis
  redis:
    addr: cache:6379
    cacheTTL: 2m
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/textsearch/index.json", cfg.Index.File)
	assert.Equal(t, []string{".txt", ".md"}, cfg.Index.Extensions)
	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.Equal(t, 50, cfg.Search.MaxResults)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "cache:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, 2*time.Minute, cfg.Cache.Redis.CacheTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// untouched sections keep their defaults
	assert.Equal(t, 4, cfg.Search.BatchConcurrency)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TS_INDEX_FILE", "from-env.json")
	t.Setenv("TS_SEARCH_DEFAULT_LIMIT", "3")
	t.Setenv("TS_INDEX_LANGUAGES", "en")
	t.Setenv("TS_KAFKA_ENABLED", "true")
	t.Setenv("TS_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "from-env.json", cfg.Index.File)
	assert.Equal(t, 3, cfg.Search.DefaultLimit)
	assert.Equal(t, []string{"en"}, cfg.Index.Languages)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown storage backend", func(c *Config) { c.Storage.Backend = "s3" }, "Backend"},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "Backend"},
		{"unknown encoding", func(c *Config) { c.Index.Encodings = []string{"utf-16"} }, "Encodings"},
		{"extension without dot", func(c *Config) { c.Index.Extensions = []string{"txt"} }, "Extensions"},
		{"zero size cap", func(c *Config) { c.Index.MaxFileSize = 0 }, "MaxFileSize"},
		{"max below default", func(c *Config) { c.Search.MaxResults = 1 }, "MaxResults"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "Level"},
		{"kafka enabled without brokers", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = nil
		}, "Brokers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := Default().Storage.Postgres
	assert.Equal(t,
		"host=localhost port=5432 user=textsearch password=localdev dbname=textsearch sslmode=disable",
		p.DSN(),
	)
}
