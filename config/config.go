// Package config merges defaults, an optional YAML file and environment
// overrides into the server configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	Storage struct {
		// Type is one of memory, filesystem, sqlite, s3 or redis.
		Type           string `yaml:"type"`
		LocalPath      string `yaml:"local_path"`
		DataSourceName string `yaml:"data_source_name"`
		S3Bucket       string `yaml:"s3_bucket"`
	}

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	}

	History struct {
		// Path enables a local pebble database for history stacks.
		// When empty, history is kept in the workspace store.
		Path     string `yaml:"path"`
		MaxDepth int    `yaml:"max_depth"`
	}

	Presence struct {
		// Transport is local or redis.
		Transport string `yaml:"transport"`
	}

	Export struct {
		Padding float64 `yaml:"padding"`
		Scale   float64 `yaml:"scale"`
	}

	Config struct {
		Listen   string   `yaml:"listen"`
		LogLevel string   `yaml:"log_level"`
		Storage  Storage  `yaml:"storage"`
		Redis    Redis    `yaml:"redis"`
		History  History  `yaml:"history"`
		Presence Presence `yaml:"presence"`
		Export   Export   `yaml:"export"`
		Auth     struct {
			JWTSecret string `yaml:"jwt_secret"`
		} `yaml:"auth"`
		CORS struct {
			AllowedOrigins []string `yaml:"allowed_origins"`
		} `yaml:"cors"`
	}
)

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	cfg := &Config{
		Listen:   ":3002",
		LogLevel: "info",
		Storage: Storage{
			Type:           "memory",
			LocalPath:      "./data",
			DataSourceName: "workspaces.db",
		},
		Redis:    Redis{Addr: "localhost:6379"},
		History:  History{MaxDepth: 50},
		Presence: Presence{Transport: "local"},
		Export:   Export{Padding: 40, Scale: 2},
	}
	cfg.CORS.AllowedOrigins = []string{"https://*", "http://*"}
	return cfg
}

// Load builds the configuration. A .env file in the working directory is
// loaded first if present; path may be empty to skip the YAML file.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides cfg with any of the recognised environment variables.
func ApplyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}

	str("LISTEN_ADDR", &cfg.Listen)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("STORAGE_TYPE", &cfg.Storage.Type)
	str("LOCAL_STORAGE_PATH", &cfg.Storage.LocalPath)
	str("DATA_SOURCE_NAME", &cfg.Storage.DataSourceName)
	str("S3_BUCKET_NAME", &cfg.Storage.S3Bucket)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	str("HISTORY_PATH", &cfg.History.Path)
	str("PRESENCE_TRANSPORT", &cfg.Presence.Transport)
	str("JWT_SECRET", &cfg.Auth.JWTSecret)

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.Redis.DB = n
	}
	if v := os.Getenv("HISTORY_MAX_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HISTORY_MAX_DEPTH: %w", err)
		}
		cfg.History.MaxDepth = n
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				origins = append(origins, s)
			}
		}
		cfg.CORS.AllowedOrigins = origins
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "memory", "filesystem", "sqlite", "redis":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET_NAME must be set for s3 storage type")
		}
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	switch c.Presence.Transport {
	case "local", "redis":
	default:
		return fmt.Errorf("unknown presence transport %q", c.Presence.Transport)
	}
	if c.History.MaxDepth <= 0 {
		return fmt.Errorf("history max depth must be positive, got %d", c.History.MaxDepth)
	}
	return nil
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Storage.Type == "redis" || c.Presence.Transport == "redis"
}
