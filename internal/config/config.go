package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "stackharmony.toml"

// Config represents the top-level application configuration.
type Config struct {
	Store  StoreConfig  `toml:"store"`
	Cache  CacheConfig  `toml:"cache"`
	Engine EngineConfig `toml:"engine"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
}

// StoreConfig selects the catalog backend.
type StoreConfig struct {
	// Driver is one of sqlite, postgres, mysql or memory.
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
	// DSNSource is "config" (use DSN) or "env" (read DSNEnv).
	DSNSource string `toml:"dsn_source"`
	DSNEnv    string `toml:"dsn_env"`
}

// CacheConfig controls the read cache in front of the store.
type CacheConfig struct {
	Enabled    bool `toml:"enabled"`
	MaxEntries int  `toml:"max_entries"`
	TTLSeconds int  `toml:"ttl_seconds"`
}

// TTL returns TTLSeconds as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// EngineConfig holds scoring thresholds. A zero low_score_warning or
// harmony_advisory turns that advisory off.
type EngineConfig struct {
	RecommendThreshold int    `toml:"recommend_threshold"`
	RecommendLimit     int    `toml:"recommend_limit"`
	LowScoreWarning    int    `toml:"low_score_warning"`
	HarmonyAdvisory    int    `toml:"harmony_advisory"`
	Parallelism        int    `toml:"parallelism"`
	RulesFile          string `toml:"rules_file"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
	// RateLimit is requests per second; 0 disables limiting.
	RateLimit            float64 `toml:"rate_limit"`
	RateBurst            int     `toml:"rate_burst"`
	ShutdownGraceSeconds int     `toml:"shutdown_grace_seconds"`
}

// ShutdownGrace returns ShutdownGraceSeconds as a duration.
func (s ServerConfig) ShutdownGrace() time.Duration {
	return time.Duration(s.ShutdownGraceSeconds) * time.Second
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// DefaultConfig returns a Config populated with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:    "sqlite",
			DSN:       "stackharmony.db",
			DSNSource: "config",
			DSNEnv:    "STACKHARMONY_DSN",
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 2048,
			TTLSeconds: 300,
		},
		Engine: EngineConfig{
			RecommendThreshold: 80,
			RecommendLimit:     10,
			LowScoreWarning:    30,
			HarmonyAdvisory:    60,
			Parallelism:        4,
		},
		Server: ServerConfig{
			Addr:                 ":8080",
			RateLimit:            50,
			RateBurst:            100,
			ShutdownGraceSeconds: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads the TOML file at path on top of the defaults. A missing file is
// not an error and yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres", "mysql", "memory":
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	switch c.Store.DSNSource {
	case "config", "env":
	default:
		return fmt.Errorf("config: unknown dsn_source %q", c.Store.DSNSource)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("config: cache.max_entries must be positive")
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("config: cache.ttl_seconds must not be negative")
	}
	for name, v := range map[string]int{
		"recommend_threshold": c.Engine.RecommendThreshold,
		"low_score_warning":   c.Engine.LowScoreWarning,
		"harmony_advisory":    c.Engine.HarmonyAdvisory,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("config: engine.%s %d outside 0..100", name, v)
		}
	}
	if c.Engine.RecommendLimit <= 0 {
		return fmt.Errorf("config: engine.recommend_limit must be positive")
	}
	if c.Engine.Parallelism <= 0 {
		return fmt.Errorf("config: engine.parallelism must be positive")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("config: server.rate_limit must not be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst <= 0 {
		return fmt.Errorf("config: server.rate_burst must be positive when rate limiting")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	return nil
}
