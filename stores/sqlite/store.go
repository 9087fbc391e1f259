package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ideation-workspace/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS workspaces (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	items BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL
);`

type sqliteStore struct {
	db *sql.DB
}

// NewStore opens the database and creates the tables it needs.
func NewStore(dataSourceName string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer at a time; also keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &sqliteStore{db}, nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func encodeItems(items []core.Item) ([]byte, error) {
	if items == nil {
		items = []core.Item{}
	}
	return json.Marshal(items)
}

func (s *sqliteStore) List(ctx context.Context) ([]*core.Workspace, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, title, created_at, updated_at FROM workspaces ORDER BY updated_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*core.Workspace{}
	for rows.Next() {
		var (
			w                core.Workspace
			created, updated int64
		)
		if err := rows.Scan(&w.ID, &w.Title, &created, &updated); err != nil {
			return nil, err
		}
		w.CreatedAt = time.Unix(0, created)
		w.UpdatedAt = time.Unix(0, updated)
		list = append(list, &w)
	}
	return list, rows.Err()
}

func (s *sqliteStore) Get(ctx context.Context, id string) (*core.Workspace, error) {
	log := logrus.WithField("workspace_id", id)

	var (
		w                core.Workspace
		items            []byte
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx, "SELECT id, title, items, created_at, updated_at FROM workspaces WHERE id = ?", id).
		Scan(&w.ID, &w.Title, &items, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn("Workspace with specified ID not found")
			return nil, fmt.Errorf("workspace %s: %w", id, core.ErrNotFound)
		}
		log.WithError(err).Error("Failed to retrieve workspace")
		return nil, err
	}
	if err := json.Unmarshal(items, &w.Items); err != nil {
		return nil, fmt.Errorf("decode workspace %s: %w", id, err)
	}
	w.CreatedAt = time.Unix(0, created)
	w.UpdatedAt = time.Unix(0, updated)
	return &w, nil
}

func (s *sqliteStore) Create(ctx context.Context, w *core.Workspace) (string, error) {
	id := ulid.Make().String()
	items, err := encodeItems(w.Items)
	if err != nil {
		return "", err
	}
	log := logrus.WithFields(logrus.Fields{"workspace_id": id, "data_length": len(items)})

	now := time.Now().UnixNano()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO workspaces (id, title, items, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		id, w.Title, items, now, now)
	if err != nil {
		log.WithError(err).Error("Failed to create workspace")
		return "", err
	}
	log.Info("Workspace created successfully")
	return id, nil
}

// Save upserts the item list; the stored title is kept when w carries none.
func (s *sqliteStore) Save(ctx context.Context, w *core.Workspace) error {
	if err := core.ValidateID(w.ID); err != nil {
		return err
	}
	items, err := encodeItems(w.Items)
	if err != nil {
		return err
	}

	now := time.Now().UnixNano()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workspaces (id, title, items, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = CASE WHEN excluded.title = '' THEN workspaces.title ELSE excluded.title END,
			items = excluded.items,
			updated_at = excluded.updated_at`,
		w.ID, w.Title, items, now, now)
	if err != nil {
		logrus.WithError(err).WithField("workspace_id", w.ID).Error("Failed to save workspace")
		return err
	}
	return nil
}

func (s *sqliteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM workspaces WHERE id = ?", id)
	return err
}

func (s *sqliteStore) GetValue(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("key %s: %w", key, core.ErrNotFound)
		}
		return nil, err
	}
	return v, nil
}

func (s *sqliteStore) PutValue(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	return err
}

func (s *sqliteStore) RemoveValue(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	return err
}
