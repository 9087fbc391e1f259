package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ideation-workspace/core"
	"ideation-workspace/stores/storetest"
)

func newStore(t *testing.T, dir string) *fsStore {
	t.Helper()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	return s
}

func TestFilesystemStore(t *testing.T) {
	storetest.Run(t, newStore(t, t.TempDir()))
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "path")
	newStore(t, dir)

	for _, sub := range []string{workspaceDir, valueDir} {
		if _, err := os.Stat(filepath.Join(dir, sub)); os.IsNotExist(err) {
			t.Errorf("NewStore() did not create %s", sub)
		}
	}
}

func TestPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	id, err := newStore(t, dir).Create(ctx, &core.Workspace{Title: "Kept", Items: []core.Item{{ID: "a", Kind: core.KindText}}})
	if err != nil {
		t.Fatal(err)
	}

	w, err := newStore(t, dir).Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() from new instance failed: %v", err)
	}
	if w.Title != "Kept" || len(w.Items) != 1 {
		t.Errorf("workspace mismatch: %+v", w)
	}
}

func TestListSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, dir)
	ctx := context.Background()

	if _, err := s.Create(ctx, &core.Workspace{Title: "ok"}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, workspaceDir, "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, workspaceDir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 1 || list[0].Title != "ok" {
		t.Errorf("List() mismatch: %+v", list)
	}
}

func TestNoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s := newStore(t, dir)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Save(ctx, &core.Workspace{ID: "w"}); err != nil {
			t.Fatal(err)
		}
	}
	entries, _ := os.ReadDir(filepath.Join(dir, workspaceDir))
	if len(entries) != 1 || entries[0].Name() != "w.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("unexpected files: %v", names)
	}
}
