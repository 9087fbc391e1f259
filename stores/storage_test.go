package stores

import (
	"context"
	"path/filepath"
	"testing"

	"ideation-workspace/config"
	"ideation-workspace/stores/storetest"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestGetStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })

	dir := t.TempDir()
	tests := []struct {
		name string
		cfg  config.Storage
	}{
		{"memory", config.Storage{Type: "memory"}},
		{"empty defaults to memory", config.Storage{}},
		{"filesystem", config.Storage{Type: "filesystem", LocalPath: filepath.Join(dir, "fs")}},
		{"sqlite", config.Storage{Type: "sqlite", DataSourceName: filepath.Join(dir, "ws.db")}},
		{"redis", config.Storage{Type: "redis"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := GetStore(context.Background(), tt.cfg, rc)
			if err != nil {
				t.Fatalf("GetStore() failed: %v", err)
			}
			storetest.Run(t, s)
		})
	}
}

func TestGetStoreRedisWithoutClient(t *testing.T) {
	if _, err := GetStore(context.Background(), config.Storage{Type: "redis"}, nil); err == nil {
		t.Error("Expected error without redis client")
	}
}

func TestHistoryStore(t *testing.T) {
	fallback, _ := GetStore(context.Background(), config.Storage{}, nil)

	kv, closeFn, err := HistoryStore(config.History{}, fallback)
	if err != nil || kv != fallback {
		t.Errorf("empty path should reuse the workspace store: %v", err)
	}
	_ = closeFn()

	kv, closeFn, err = HistoryStore(config.History{Path: filepath.Join(t.TempDir(), "history")}, fallback)
	if err != nil {
		t.Fatalf("HistoryStore() failed: %v", err)
	}
	defer closeFn()
	if kv == fallback {
		t.Error("path should open a dedicated history store")
	}
	storetest.Values(t, kv)
}
