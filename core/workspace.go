package core

import (
	"context"
	"fmt"
	"path"
	"time"
)

type (
	// Workspace is the persisted state of one canvas.
	Workspace struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Items     []Item    `json:"items,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}

	// WorkspaceStore is the remote document store the autosave bridge writes to.
	WorkspaceStore interface {
		// List returns workspace metadata without items.
		List(ctx context.Context) ([]*Workspace, error)

		// Get returns a workspace with its items.
		Get(ctx context.Context, id string) (*Workspace, error)

		// Create stores a new workspace and returns the generated id.
		Create(ctx context.Context, workspace *Workspace) (string, error)

		// Save replaces the item list of an existing or new workspace.
		Save(ctx context.Context, workspace *Workspace) error

		Delete(ctx context.Context, id string) error
	}

	// KeyValueStore is the keyed blob storage used for persisted history.
	KeyValueStore interface {
		// GetValue returns ErrNotFound when key is absent.
		GetValue(ctx context.Context, key string) ([]byte, error)
		PutValue(ctx context.Context, key string, value []byte) error
		RemoveValue(ctx context.Context, key string) error
	}
)

// Summary strips the items from w for list views.
func (w *Workspace) Summary() *Workspace {
	return &Workspace{
		ID:        w.ID,
		Title:     w.Title,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

// ValidateID rejects ids that are empty or could escape a key namespace when
// used as a file name or object key.
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." || path.Base(id) != id {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
