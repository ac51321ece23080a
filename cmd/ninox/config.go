package main

import (
	"fmt"
	"os"

	"github.com/Sternrassler/ninox-connector/pkg/pagination"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the config file.
const (
	EnvToken    = "NINOX_TOKEN"
	EnvBaseURL  = "NINOX_BASE_URL"
	EnvRedisURL = "REDIS_URL"
	EnvLogLevel = "LOG_LEVEL"
)

// Watermark store backends selectable with --store.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config is the CLI configuration file.
type Config struct {
	Token    string `yaml:"token"`
	BaseURL  string `yaml:"baseUrl"`
	RedisURL string `yaml:"redisUrl"`
	LogLevel string `yaml:"logLevel"`

	Team     string `yaml:"team"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`

	PerPage  int `yaml:"perPage"`
	MaxPages int `yaml:"maxPages"`

	Store      string `yaml:"store"`
	SQLitePath string `yaml:"sqlitePath"`
}

// defaultConfig returns the configuration used when no file is given.
func defaultConfig() Config {
	return Config{
		PerPage:    pagination.DefaultPerPage,
		MaxPages:   pagination.DefaultMaxPages,
		Store:      StoreMemory,
		SQLitePath: "ninox-watermarks.db",
		LogLevel:   "info",
	}
}

// loadConfig reads the YAML file at path (if any) over the defaults and
// applies environment overrides.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvToken); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		cfg.RedisURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

// validate checks the settings every API command needs.
func (c Config) validate() error {
	if c.PerPage < 1 {
		return fmt.Errorf("perPage must be >= 1 (got %d)", c.PerPage)
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("maxPages must be >= 1 (got %d)", c.MaxPages)
	}
	switch c.Store {
	case StoreMemory, StoreRedis, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q (want %s, %s or %s)", c.Store, StoreMemory, StoreRedis, StoreSQLite)
	}
	return nil
}
