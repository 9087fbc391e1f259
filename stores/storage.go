package stores

import (
	"context"
	"fmt"

	"ideation-workspace/config"
	"ideation-workspace/core"
	"ideation-workspace/stores/aws"
	"ideation-workspace/stores/filesystem"
	"ideation-workspace/stores/memory"
	"ideation-workspace/stores/pebble"
	redisstore "ideation-workspace/stores/redis"
	"ideation-workspace/stores/sqlite"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Store is a union interface that includes all store types.
type Store interface {
	core.WorkspaceStore
	core.KeyValueStore
}

// GetStore opens the workspace backend selected by cfg.Storage.Type. rc is
// only used by the redis backend and may be nil otherwise.
func GetStore(ctx context.Context, cfg config.Storage, rc *redis.Client) (Store, error) {
	storageField := logrus.Fields{"storageType": cfg.Type}

	var (
		store Store
		err   error
	)
	switch cfg.Type {
	case "filesystem":
		storageField["basePath"] = cfg.LocalPath
		store, err = filesystem.NewStore(cfg.LocalPath)
	case "sqlite":
		storageField["dataSourceName"] = cfg.DataSourceName
		store, err = sqlite.NewStore(cfg.DataSourceName)
	case "s3":
		storageField["bucketName"] = cfg.S3Bucket
		store, err = aws.NewStore(ctx, cfg.S3Bucket)
	case "redis":
		if rc == nil {
			return nil, fmt.Errorf("redis storage requires a redis client")
		}
		store = redisstore.NewStore(rc)
	default:
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	}
	if err != nil {
		return nil, err
	}

	logrus.WithFields(storageField).Info("Use storage")
	return store, nil
}

// HistoryStore returns a pebble database when cfg.Path is set, otherwise the
// workspace store itself. The returned close func is never nil.
func HistoryStore(cfg config.History, fallback core.KeyValueStore) (core.KeyValueStore, func() error, error) {
	if cfg.Path == "" {
		return fallback, func() error { return nil }, nil
	}
	db, err := pebble.Open(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	logrus.WithField("path", cfg.Path).Info("Use pebble for history")
	return db, db.Close, nil
}
