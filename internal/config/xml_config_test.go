package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *AppConfig {
	c := DefaultConfig()
	c.Store.Driver = DriverMemory
	return c
}

func TestLoadConfig_CreatesDefault(t *testing.T) {
	t.Setenv("STORE_DRIVER", DriverMemory)
	path := filepath.Join(t.TempDir(), "SolarDashboard.config.xml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.PollInterval())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "<SolarDashboard>"))
	// the written file keeps the default driver; the env only overrides at load
	assert.True(t, strings.Contains(string(data), "<Driver>firestore</Driver>"))

	assert.Equal(t, filepath.Join(filepath.Dir(path), "data", "history.duckdb"), cfg.Archive.Path)
}

func TestLoadConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.xml")
	c := memoryConfig()
	c.Store.Schema = "flat"
	c.Polling.IntervalSeconds = 10
	c.Cache.Backend = CacheRedis
	c.Archive.Path = "/var/lib/solar/history.duckdb"
	require.NoError(t, c.Save(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "flat", cfg.Store.Schema)
	assert.Equal(t, 10*time.Second, cfg.PollInterval())
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, "/var/lib/solar/history.duckdb", cfg.Archive.Path)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.xml")
	require.NoError(t, DefaultConfig().Save(path))

	t.Setenv("PORT", "9100")
	t.Setenv("FIRESTORE_PROJECT_ID", "solar-proj")
	t.Setenv("FIRESTORE_API_KEY", "key-123")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ARCHIVE_PATH", "/tmp/h.duckdb")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "solar-proj", cfg.Store.ProjectID)
	assert.Equal(t, "key-123", cfg.Store.APIKey)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, "redis:6379", cfg.Cache.RedisAddr)
	assert.Equal(t, "debug", cfg.Advanced.LogLevel)
	assert.Equal(t, "/tmp/h.duckdb", cfg.Archive.Path)
	assert.Equal(t, "0.0.0.0:9100", cfg.GetServerAddr())
}

func TestLoadConfig_InvalidXML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.xml")
	require.NoError(t, os.WriteFile(path, []byte("<SolarDashboard><Server>"), 0644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *AppConfig)
		want   string
	}{
		{"firestore needs project", func(c *AppConfig) { c.Store.Driver = DriverFirestore }, "ProjectID"},
		{"unknown driver", func(c *AppConfig) { c.Store.Driver = "mongo" }, "Store.Driver"},
		{"unknown schema", func(c *AppConfig) { c.Store.Schema = "v3" }, "Store.Schema"},
		{"unknown cache", func(c *AppConfig) { c.Cache.Backend = "memcached" }, "Cache.Backend"},
		{"zero interval", func(c *AppConfig) { c.Polling.IntervalSeconds = 0 }, "IntervalSeconds"},
		{"negative timeout", func(c *AppConfig) { c.Polling.FetchTimeoutSeconds = -1 }, "FetchTimeoutSeconds"},
		{"bad zone", func(c *AppConfig) { c.Store.TimeZone = "Mars/Olympus" }, "TimeZone"},
		{"archive without path", func(c *AppConfig) { c.Archive.Path = "" }, "Archive.Path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := memoryConfig()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, memoryConfig().Validate())
}

func TestDurations(t *testing.T) {
	c := memoryConfig()
	c.Store.TimeZone = "Asia/Kolkata"
	assert.Equal(t, "Asia/Kolkata", c.Location().String())
	assert.Equal(t, 20*time.Second, c.FetchTimeout())
	assert.Equal(t, 24*time.Hour, c.CacheTTL())
}
