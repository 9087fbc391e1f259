package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ideation-workspace/core"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	indexKey        = "workspaces"
	workspacePrefix = "workspace:"
	valuePrefix     = "kv:"
)

type redisStore struct {
	rc *redis.Client
}

// NewStore wraps an existing client; the caller owns its lifecycle.
func NewStore(rc *redis.Client) *redisStore {
	return &redisStore{rc: rc}
}

func workspaceKey(id string) string { return workspacePrefix + id }

func (s *redisStore) List(ctx context.Context) ([]*core.Workspace, error) {
	ids, err := s.rc.ZRevRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	if len(ids) == 0 {
		return []*core.Workspace{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = workspaceKey(id)
	}
	vals, err := s.rc.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load workspaces: %w", err)
	}

	list := make([]*core.Workspace, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// index entry without a document
			continue
		}
		var w core.Workspace
		if err := json.Unmarshal([]byte(raw), &w); err != nil {
			logrus.WithError(err).WithField("workspace_id", ids[i]).Warn("Failed to decode workspace, skipping")
			continue
		}
		list = append(list, w.Summary())
	}
	return list, nil
}

func (s *redisStore) Get(ctx context.Context, id string) (*core.Workspace, error) {
	raw, err := s.rc.Get(ctx, workspaceKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("workspace %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("get workspace %s: %w", id, err)
	}
	var w core.Workspace
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode workspace %s: %w", id, err)
	}
	return &w, nil
}

func (s *redisStore) write(ctx context.Context, w *core.Workspace) error {
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	_, err = s.rc.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, workspaceKey(w.ID), data, 0)
		p.ZAdd(ctx, indexKey, redis.Z{Score: float64(w.UpdatedAt.UnixMilli()), Member: w.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("write workspace %s: %w", w.ID, err)
	}
	return nil
}

func (s *redisStore) Create(ctx context.Context, w *core.Workspace) (string, error) {
	now := time.Now()
	stored := *w
	stored.ID = ulid.Make().String()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	if err := s.write(ctx, &stored); err != nil {
		return "", err
	}
	logrus.WithField("workspace_id", stored.ID).Info("Workspace created successfully")
	return stored.ID, nil
}

func (s *redisStore) Save(ctx context.Context, w *core.Workspace) error {
	if err := core.ValidateID(w.ID); err != nil {
		return err
	}

	stored := *w
	now := time.Now()
	existing, err := s.Get(ctx, w.ID)
	switch {
	case err == nil:
		stored.CreatedAt = existing.CreatedAt
		if stored.Title == "" {
			stored.Title = existing.Title
		}
	case errors.Is(err, core.ErrNotFound):
		stored.CreatedAt = now
	default:
		return err
	}
	stored.UpdatedAt = now

	return s.write(ctx, &stored)
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	_, err := s.rc.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, workspaceKey(id))
		p.ZRem(ctx, indexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete workspace %s: %w", id, err)
	}
	logrus.WithField("workspace_id", id).Info("Workspace deleted")
	return nil
}

func (s *redisStore) GetValue(ctx context.Context, key string) ([]byte, error) {
	v, err := s.rc.Get(ctx, valuePrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("key %s: %w", key, core.ErrNotFound)
		}
		return nil, err
	}
	return v, nil
}

func (s *redisStore) PutValue(ctx context.Context, key string, value []byte) error {
	return s.rc.Set(ctx, valuePrefix+key, value, 0).Err()
}

func (s *redisStore) RemoveValue(ctx context.Context, key string) error {
	return s.rc.Del(ctx, valuePrefix+key).Err()
}
