package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":3002" || cfg.Storage.Type != "memory" || cfg.History.MaxDepth != 50 {
		t.Errorf("defaults mismatch: %+v", cfg)
	}
	if cfg.UsesRedis() {
		t.Error("defaults should not need redis")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
listen: ":9000"
storage:
  type: sqlite
  data_source_name: /tmp/ws.db
history:
  max_depth: 10
presence:
  transport: redis
cors:
  allowed_origins: ["https://a.example"]
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STORAGE_TYPE", "filesystem")
	t.Setenv("HISTORY_MAX_DEPTH", "")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Listen != ":9000" {
		t.Errorf("listen mismatch: got %s", cfg.Listen)
	}
	if cfg.Storage.Type != "filesystem" {
		t.Errorf("env should override file: got %s", cfg.Storage.Type)
	}
	if cfg.Storage.DataSourceName != "/tmp/ws.db" || cfg.History.MaxDepth != 10 {
		t.Errorf("file values mismatch: %+v", cfg)
	}
	if cfg.Redis.DB != 3 || !cfg.UsesRedis() {
		t.Errorf("redis mismatch: %+v", cfg.Redis)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 {
		t.Errorf("origins mismatch: %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
		ok   bool
	}{
		{"default", func(*Config) {}, true},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }, false},
		{"s3 with bucket", func(c *Config) { c.Storage.Type = "s3"; c.Storage.S3Bucket = "b" }, true},
		{"unknown storage", func(c *Config) { c.Storage.Type = "tape" }, false},
		{"unknown transport", func(c *Config) { c.Presence.Transport = "carrier-pigeon" }, false},
		{"zero depth", func(c *Config) { c.History.MaxDepth = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mod(cfg)
			if err := cfg.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() error = %v, want ok %v", err, tt.ok)
			}
		})
	}
}

func TestApplyEnvBadNumber(t *testing.T) {
	t.Setenv("REDIS_DB", "x")
	if err := ApplyEnv(Default()); err == nil {
		t.Error("Expected error for non-numeric REDIS_DB")
	}
}

func TestApplyEnvOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a , ,https://b")
	cfg := Default()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatal(err)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b" {
		t.Errorf("origins mismatch: %v", cfg.CORS.AllowedOrigins)
	}
}
