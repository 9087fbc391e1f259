// Package pebble keeps history stacks in a local embedded database.
package pebble

import (
	"context"
	"errors"
	"fmt"

	"ideation-workspace/core"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "history:"

type Option func(*pebble.Options)

// InMemory backs the database with an in-memory filesystem.
func InMemory() Option {
	return func(o *pebble.Options) { o.FS = vfs.NewMem() }
}

// Store implements core.KeyValueStore.
type Store struct {
	db *pebble.DB
}

func Open(path string, opts ...Option) (*Store, error) {
	po := &pebble.Options{}
	for _, opt := range opts {
		opt(po)
	}
	db, err := pebble.Open(path, po)
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", path, err)
	}
	logrus.WithField("path", path).Info("Opened history database")
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) GetValue(ctx context.Context, key string) ([]byte, error) {
	data, closer, err := s.db.Get([]byte(keyPrefix + key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("key %s: %w", key, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	defer closer.Close()

	// data is only valid until closer is called
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *Store) PutValue(ctx context.Context, key string, value []byte) error {
	if err := s.db.Set([]byte(keyPrefix+key), value, pebble.Sync); err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to write history")
		return err
	}
	return nil
}

func (s *Store) RemoveValue(ctx context.Context, key string) error {
	return s.db.Delete([]byte(keyPrefix+key), pebble.Sync)
}
