// Package storetest runs the behaviour every workspace backend must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"ideation-workspace/core"
)

// Store is implemented by every backend that holds both workspaces and history blobs.
type Store interface {
	core.WorkspaceStore
	core.KeyValueStore
}

func note(id string, x float64) core.Item {
	return core.Item{
		ID: id, Kind: core.KindNote, X: x, Y: 10, Width: 200, Height: 200,
		ZIndex: 1, Content: "hello", Style: core.NewStyle(core.KindNote),
	}
}

// Run exercises s through the shared contract.
func Run(t *testing.T, s Store) {
	t.Helper()
	t.Run("Workspaces", func(t *testing.T) { Workspaces(t, s) })
	t.Run("Values", func(t *testing.T) { Values(t, s) })
}

func Workspaces(t *testing.T, s core.WorkspaceStore) {
	ctx := context.Background()

	id, err := s.Create(ctx, &core.Workspace{Title: "Sprint board", Items: []core.Item{note("a", 1)}})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if id == "" {
		t.Fatal("Create() returned empty ID")
	}

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.ID != id || got.Title != "Sprint board" || len(got.Items) != 1 || got.Items[0].ID != "a" {
		t.Errorf("Get() mismatch: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
	created := got.CreatedAt

	time.Sleep(5 * time.Millisecond)
	if err := s.Save(ctx, &core.Workspace{ID: id, Items: []core.Item{note("a", 50), note("b", 2)}}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	got, err = s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() after save failed: %v", err)
	}
	if len(got.Items) != 2 || got.Items[0].X != 50 {
		t.Errorf("Save() did not replace items: %+v", got.Items)
	}
	if got.Title != "Sprint board" {
		t.Errorf("Save() without title should keep it: got %q", got.Title)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed on save: got %v, want %v", got.CreatedAt, created)
	}
	if !got.UpdatedAt.After(created) {
		t.Errorf("UpdatedAt not advanced: %v", got.UpdatedAt)
	}
	if got.Items[1].Style.Background != core.DefaultNoteColor {
		t.Errorf("style lost in round trip: %+v", got.Items[1].Style)
	}

	// Saving an unknown id creates it.
	if err := s.Save(ctx, &core.Workspace{ID: "fresh", Title: "Fresh", Items: []core.Item{}}); err != nil {
		t.Fatalf("Save() of new id failed: %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List() length mismatch: got %d, want 2", len(list))
	}
	for _, w := range list {
		if len(w.Items) != 0 {
			t.Errorf("List() should not carry items: %s has %d", w.ID, len(w.Items))
		}
	}

	if err := s.Save(ctx, &core.Workspace{ID: "../escape"}); !errors.Is(err, core.ErrInvalidID) {
		t.Errorf("Expected ErrInvalidID for path id, got %v", err)
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := s.Get(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, id); err != nil {
		t.Errorf("Delete() of missing id should succeed, got %v", err)
	}
	if _, err := s.Get(ctx, "never-created"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func Values(t *testing.T, s core.KeyValueStore) {
	ctx := context.Background()

	if _, err := s.GetValue(ctx, "history_past_x"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing key, got %v", err)
	}
	if err := s.PutValue(ctx, "history_past_x", []byte(`[[]]`)); err != nil {
		t.Fatalf("PutValue() failed: %v", err)
	}
	if err := s.PutValue(ctx, "history_past_x", []byte(`[]`)); err != nil {
		t.Fatalf("PutValue() overwrite failed: %v", err)
	}
	v, err := s.GetValue(ctx, "history_past_x")
	if err != nil {
		t.Fatalf("GetValue() failed: %v", err)
	}
	if string(v) != `[]` {
		t.Errorf("GetValue() mismatch: got %s", v)
	}
	if err := s.RemoveValue(ctx, "history_past_x"); err != nil {
		t.Fatalf("RemoveValue() failed: %v", err)
	}
	if _, err := s.GetValue(ctx, "history_past_x"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after remove, got %v", err)
	}
	if err := s.RemoveValue(ctx, "history_past_x"); err != nil {
		t.Errorf("RemoveValue() of missing key should succeed, got %v", err)
	}
}
