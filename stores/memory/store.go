package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ideation-workspace/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// memStore implements WorkspaceStore and KeyValueStore in process memory.
type memStore struct {
	mu         sync.RWMutex
	workspaces map[string]*core.Workspace
	values     map[string][]byte
}

// NewStore creates a new in-memory store.
func NewStore() *memStore {
	return &memStore{
		workspaces: make(map[string]*core.Workspace),
		values:     make(map[string][]byte),
	}
}

func copyWorkspace(w *core.Workspace) *core.Workspace {
	out := *w
	out.Items = core.CloneItems(w.Items)
	return &out
}

func (s *memStore) List(ctx context.Context) ([]*core.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*core.Workspace, 0, len(s.workspaces))
	for _, w := range s.workspaces {
		list = append(list, w.Summary())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })

	logrus.Debugf("Listed %d workspaces", len(list))
	return list, nil
}

func (s *memStore) Get(ctx context.Context, id string) (*core.Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.workspaces[id]
	if !ok {
		logrus.WithField("workspace_id", id).Warn("Workspace not found")
		return nil, fmt.Errorf("workspace %s: %w", id, core.ErrNotFound)
	}
	return copyWorkspace(w), nil
}

func (s *memStore) Create(ctx context.Context, w *core.Workspace) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ulid.Make().String()
	now := time.Now()
	stored := copyWorkspace(w)
	stored.ID = id
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.workspaces[id] = stored

	logrus.WithFields(logrus.Fields{
		"workspace_id": id,
		"items":        len(w.Items),
	}).Info("Workspace created successfully")
	return id, nil
}

// Save replaces the items of w.ID, creating the workspace when it is new.
// Title and CreatedAt of an existing workspace survive a save without a title.
func (s *memStore) Save(ctx context.Context, w *core.Workspace) error {
	if err := core.ValidateID(w.ID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := copyWorkspace(w)
	now := time.Now()
	if existing, ok := s.workspaces[w.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
		if stored.Title == "" {
			stored.Title = existing.Title
		}
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.workspaces[w.ID] = stored

	logrus.WithFields(logrus.Fields{"workspace_id": w.ID, "items": len(w.Items)}).Debug("Workspace saved")
	return nil
}

func (s *memStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.workspaces, id)
	logrus.WithField("workspace_id", id).Info("Workspace deleted")
	return nil
}

func (s *memStore) GetValue(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, fmt.Errorf("key %s: %w", key, core.ErrNotFound)
	}
	return append([]byte(nil), v...), nil
}

func (s *memStore) PutValue(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *memStore) RemoveValue(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}
