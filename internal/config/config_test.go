package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stackharmony.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "stackharmony.db", cfg.Store.DSN)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 2048, cfg.Cache.MaxEntries)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL())
	assert.Equal(t, 80, cfg.Engine.RecommendThreshold)
	assert.Equal(t, 10, cfg.Engine.RecommendLimit)
	assert.Equal(t, 30, cfg.Engine.LowScoreWarning)
	assert.Equal(t, 60, cfg.Engine.HarmonyAdvisory)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownGrace())
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
[store]
driver = "postgres"
dsn_source = "env"
dsn_env = "CATALOG_DSN"

[cache]
enabled = false
ttl_seconds = 60

[engine]
recommend_threshold = 85
rules_file = "rules.yaml"

[server]
addr = "127.0.0.1:9000"
rate_limit = 0

[log]
level = "debug"
development = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "env", cfg.Store.DSNSource)
	assert.Equal(t, "CATALOG_DSN", cfg.Store.DSNEnv)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Minute, cfg.Cache.TTL())
	assert.Equal(t, 85, cfg.Engine.RecommendThreshold)
	assert.Equal(t, "rules.yaml", cfg.Engine.RulesFile)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Zero(t, cfg.Server.RateLimit)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)

	// Defaults should still be set for fields not specified in TOML
	assert.Equal(t, 2048, cfg.Cache.MaxEntries)
	assert.Equal(t, 10, cfg.Engine.RecommendLimit)
	assert.Equal(t, 4, cfg.Engine.Parallelism)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/path/stackharmony.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadInvalidTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "[invalid toml..."))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoadRunsValidation(t *testing.T) {
	_, err := Load(writeConfig(t, "[store]\ndriver = \"oracle\"\n"))
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "redis" }, "unknown store driver"},
		{"unknown dsn source", func(c *Config) { c.Store.DSNSource = "vault" }, "dsn_source"},
		{"cache size", func(c *Config) { c.Cache.MaxEntries = 0 }, "max_entries"},
		{"negative ttl", func(c *Config) { c.Cache.TTLSeconds = -1 }, "ttl_seconds"},
		{"threshold above 100", func(c *Config) { c.Engine.RecommendThreshold = 101 }, "recommend_threshold"},
		{"negative warning", func(c *Config) { c.Engine.LowScoreWarning = -1 }, "low_score_warning"},
		{"advisory above 100", func(c *Config) { c.Engine.HarmonyAdvisory = 200 }, "harmony_advisory"},
		{"zero limit", func(c *Config) { c.Engine.RecommendLimit = 0 }, "recommend_limit"},
		{"zero parallelism", func(c *Config) { c.Engine.Parallelism = 0 }, "parallelism"},
		{"negative rate", func(c *Config) { c.Server.RateLimit = -1 }, "rate_limit"},
		{"rate without burst", func(c *Config) { c.Server.RateBurst = 0 }, "rate_burst"},
		{"unknown level", func(c *Config) { c.Log.Level = "trace" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestValidateAcceptsDisabledRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.RateLimit = 0
	cfg.Server.RateBurst = 0
	assert.NoError(t, cfg.Validate())
}

func TestLoadZeroAdvisoryThresholds(t *testing.T) {
	path := writeConfig(t, `
[engine]
low_score_warning = 0
harmony_advisory = 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Engine.LowScoreWarning)
	assert.Zero(t, cfg.Engine.HarmonyAdvisory)
}
