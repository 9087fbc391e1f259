package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ideation-workspace/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const (
	workspaceDir = "workspaces"
	valueDir     = "kv"
	ext          = ".json"
)

type fsStore struct {
	basePath string
}

// NewStore creates a filesystem-based store rooted at basePath.
func NewStore(basePath string) (*fsStore, error) {
	for _, dir := range []string{workspaceDir, valueDir} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}
	return &fsStore{basePath: basePath}, nil
}

func (s *fsStore) workspacePath(id string) (string, error) {
	if err := core.ValidateID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, workspaceDir, id+ext), nil
}

func (s *fsStore) valuePath(key string) (string, error) {
	if err := core.ValidateID(key); err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, valueDir, key), nil
}

// writeFile replaces path via a temp file so readers never see a partial write.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *fsStore) read(path, id string) (*core.Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("workspace %s: %w", id, core.ErrNotFound)
		}
		return nil, err
	}
	var w core.Workspace
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode workspace %s: %w", id, err)
	}
	return &w, nil
}

func (s *fsStore) List(ctx context.Context) ([]*core.Workspace, error) {
	dir := filepath.Join(s.basePath, workspaceDir)
	log := logrus.WithField("path", dir)

	files, err := os.ReadDir(dir)
	if err != nil {
		log.WithError(err).Error("Failed to read workspace directory")
		return nil, err
	}

	list := make([]*core.Workspace, 0, len(files))
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		id := strings.TrimSuffix(name, ext)
		w, err := s.read(filepath.Join(dir, name), id)
		if err != nil {
			log.WithError(err).Warnf("Failed to read workspace file %s, skipping", name)
			continue
		}
		list = append(list, w.Summary())
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })

	log.Debugf("Listed %d workspaces", len(list))
	return list, nil
}

func (s *fsStore) Get(ctx context.Context, id string) (*core.Workspace, error) {
	path, err := s.workspacePath(id)
	if err != nil {
		return nil, err
	}
	w, err := s.read(path, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			logrus.WithField("workspace_id", id).Warn("Workspace file not found")
		}
		return nil, err
	}
	return w, nil
}

func (s *fsStore) Create(ctx context.Context, w *core.Workspace) (string, error) {
	id := ulid.Make().String()
	path, _ := s.workspacePath(id)
	log := logrus.WithFields(logrus.Fields{"workspace_id": id, "file_path": path})

	now := time.Now()
	stored := *w
	stored.ID = id
	stored.CreatedAt = now
	stored.UpdatedAt = now

	data, err := json.Marshal(&stored)
	if err != nil {
		return "", err
	}
	if err := writeFile(path, data); err != nil {
		log.WithError(err).Error("Failed to create workspace")
		return "", err
	}

	log.Info("Workspace created successfully")
	return id, nil
}

func (s *fsStore) Save(ctx context.Context, w *core.Workspace) error {
	path, err := s.workspacePath(w.ID)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"workspace_id": w.ID, "path": path})

	stored := *w
	now := time.Now()
	existing, err := s.read(path, w.ID)
	switch {
	case err == nil:
		stored.CreatedAt = existing.CreatedAt
		if stored.Title == "" {
			stored.Title = existing.Title
		}
	case errors.Is(err, core.ErrNotFound):
		stored.CreatedAt = now
	default:
		log.WithError(err).Warn("Existing workspace unreadable, overwriting")
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	data, err := json.Marshal(&stored)
	if err != nil {
		log.WithError(err).Error("Failed to marshal workspace for saving")
		return err
	}
	if err := writeFile(path, data); err != nil {
		log.WithError(err).Error("Failed to write workspace file")
		return err
	}

	log.Debug("Workspace saved")
	return nil
}

func (s *fsStore) Delete(ctx context.Context, id string) error {
	path, err := s.workspacePath(id)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"workspace_id": id, "path": path})

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("Workspace file not found for deletion, considered successful.")
			return nil
		}
		log.WithError(err).Error("Failed to delete workspace file")
		return err
	}

	log.Info("Workspace deleted successfully")
	return nil
}

func (s *fsStore) GetValue(ctx context.Context, key string) ([]byte, error) {
	path, err := s.valuePath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("key %s: %w", key, core.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

func (s *fsStore) PutValue(ctx context.Context, key string, value []byte) error {
	path, err := s.valuePath(key)
	if err != nil {
		return err
	}
	return writeFile(path, value)
}

func (s *fsStore) RemoveValue(ctx context.Context, key string) error {
	path, err := s.valuePath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
