// Package config holds the settings of the synckv command: which store to
// open and how to build the cache on top of it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type FileConfig struct {
	Dir  string `yaml:"dir"`
	Sync bool   `yaml:"sync"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

type CacheConfig struct {
	Name         string        `yaml:"name"`
	Workers      int           `yaml:"workers"`
	OpTimeout    time.Duration `yaml:"op_timeout"`
	StrictCommit bool          `yaml:"strict_commit"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // zap or logrus
}

// Config is the central configuration struct.
type Config struct {
	Store    string         `yaml:"store"` // file, redis, postgres, memory
	File     FileConfig     `yaml:"file"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Store: "file",
		File:  FileConfig{Dir: "./synckv-data"},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Postgres: PostgresConfig{
			DSN: "postgres://localhost:5432/synckv?sslmode=disable",
		},
		Cache: CacheConfig{Name: "SyncStorageDB", OpTimeout: 5 * time.Second},
		Log:   LogConfig{Level: "warn", Format: "zap"},
	}
}

// LoadFromFile reads a YAML file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// LoadFromEnv applies SYNCKV_* environment overrides.
func LoadFromEnv(cfg *Config) error {
	if v := os.Getenv("SYNCKV_STORE"); v != "" {
		cfg.Store = v
	}
	if v := os.Getenv("SYNCKV_FILE_DIR"); v != "" {
		cfg.File.Dir = v
	}
	if v := os.Getenv("SYNCKV_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SYNCKV_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SYNCKV_REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SYNCKV_REDIS_DB: %w", err)
		}
		cfg.Redis.DB = db
	}
	if v := os.Getenv("SYNCKV_POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("SYNCKV_NAME"); v != "" {
		cfg.Cache.Name = v
	}
	if v := os.Getenv("SYNCKV_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.Store {
	case "file":
		if c.File.Dir == "" {
			return fmt.Errorf("file store: dir is required")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis store: addr is required")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres store: dsn is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store %q (valid: file, redis, postgres, memory)", c.Store)
	}
	switch c.Log.Format {
	case "zap", "logrus":
	default:
		return fmt.Errorf("unknown log format %q (valid: zap, logrus)", c.Log.Format)
	}
	if c.Cache.Workers < 0 {
		return fmt.Errorf("cache workers must be >= 0")
	}
	return nil
}
