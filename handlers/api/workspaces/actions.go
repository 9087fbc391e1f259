package workspaces

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"ideation-workspace/core"
	"ideation-workspace/handlers/api/respond"
	"ideation-workspace/workspace"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	// placementGap separates an unpositioned new item from existing content.
	placementGap = 40.0
)

type (
	Position struct {
		X *float64 `json:"x,omitempty"`
		Y *float64 `json:"y,omitempty"`
	}

	Visuals struct {
		Color string `json:"color,omitempty"`
	}

	// Action is one step of a batch edit, typically produced by an assistant.
	Action struct {
		Action     string           `json:"action"`
		ItemType   core.Kind        `json:"itemType,omitempty"`
		TargetID   string           `json:"targetId,omitempty"`
		Content    *string          `json:"content,omitempty"`
		Position   *Position        `json:"position,omitempty"`
		Size       *core.Size       `json:"size,omitempty"`
		Visuals    *Visuals         `json:"visuals,omitempty"`
		Style      *core.StylePatch `json:"style,omitempty"`
		DeviceType core.DeviceType  `json:"deviceType,omitempty"`
	}

	ActionsRequest struct {
		Actions []Action `json:"actions"`
	}

	ActionsResponse struct {
		Created []string    `json:"created"`
		Updated []string    `json:"updated"`
		Deleted []string    `json:"deleted"`
		Skipped []int       `json:"skipped"`
		Items   []core.Item `json:"items"`
	}
)

func (a Action) validate() error {
	switch a.Action {
	case ActionCreate:
		if !a.ItemType.Valid() {
			return fmt.Errorf("%w: unknown item kind %q", core.ErrInvalidItem, a.ItemType)
		}
	case ActionUpdate, ActionDelete:
		if a.TargetID == "" {
			return fmt.Errorf("%w: %s needs a targetId", core.ErrInvalidItem, a.Action)
		}
	default:
		return fmt.Errorf("%w: unknown action %q", core.ErrInvalidItem, a.Action)
	}
	return nil
}

// stylePatch merges the shorthand visuals colour into the explicit style patch.
func (a Action) stylePatch() *core.StylePatch {
	var p core.StylePatch
	if a.Style != nil {
		p = *a.Style
	}
	if a.Visuals != nil && a.Visuals.Color != "" {
		c := a.Visuals.Color
		p.Background = &c
	}
	if p == (core.StylePatch{}) {
		return nil
	}
	return &p
}

// nextSlot returns a free spot to the right of the current content.
func nextSlot(items []core.Item) (float64, float64) {
	if len(items) == 0 {
		return 0, 0
	}
	maxX, minY := math.Inf(-1), math.Inf(1)
	for _, it := range items {
		maxX = math.Max(maxX, it.X+it.Width)
		minY = math.Min(minY, it.Y)
	}
	return maxX + placementGap, minY
}

func apply(ed *workspace.Editor, i int, a Action, resp *ActionsResponse) error {
	switch a.Action {
	case ActionCreate:
		x, y := nextSlot(ed.Items())
		if a.Position != nil {
			if a.Position.X != nil {
				x = *a.Position.X
			}
			if a.Position.Y != nil {
				y = *a.Position.Y
			}
		}
		opts := workspace.AddOptions{Style: a.stylePatch()}
		if a.Content != nil {
			opts.Content = *a.Content
		}
		if a.ItemType == core.KindFrame && a.DeviceType != "" {
			preset := workspace.PresetFor(a.DeviceType)
			opts.Frame = &preset
		}
		it, err := ed.AddItem(a.ItemType, x, y, opts)
		if err != nil {
			return err
		}
		if a.Size != nil {
			ed.UpdateItemLive(it.ID, core.ItemPatch{
				Width:  ptr(math.Max(a.Size.Width, core.MinItemSize)),
				Height: ptr(math.Max(a.Size.Height, core.MinItemSize)),
			})
		}
		resp.Created = append(resp.Created, it.ID)

	case ActionUpdate:
		if _, ok := ed.Item(a.TargetID); !ok {
			resp.Skipped = append(resp.Skipped, i)
			return nil
		}
		var patch core.ItemPatch
		if a.Content != nil {
			patch.Content = a.Content
		}
		if a.Position != nil {
			patch.X, patch.Y = a.Position.X, a.Position.Y
		}
		if a.Size != nil {
			patch.Width = ptr(math.Max(a.Size.Width, core.MinItemSize))
			patch.Height = ptr(math.Max(a.Size.Height, core.MinItemSize))
		}
		if !patch.Empty() {
			ed.UpdateItem(a.TargetID, patch)
		}
		if sp := a.stylePatch(); sp != nil {
			ed.UpdateItemStyle(a.TargetID, *sp)
		}
		resp.Updated = append(resp.Updated, a.TargetID)

	case ActionDelete:
		if _, ok := ed.Item(a.TargetID); !ok {
			resp.Skipped = append(resp.Skipped, i)
			return nil
		}
		ed.DeleteItem(a.TargetID)
		resp.Deleted = append(resp.Deleted, a.TargetID)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

// HandleActions validates a batch of actions, applies them through the editor
// in order, each as its own history entry, and saves the result. Updates and
// deletes aimed at unknown items are skipped and reported by index.
func HandleActions(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		fields := logrus.Fields{"workspace_id": id}

		var req ActionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
		for i, a := range req.Actions {
			if err := a.validate(); err != nil {
				respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("action %d: %v", i, err))
				return
			}
		}

		ws, ed, err := b.open(r.Context(), id)
		if err != nil {
			respond.StoreError(w, r, err, "Workspace not found", fields)
			return
		}

		resp := ActionsResponse{Created: []string{}, Updated: []string{}, Deleted: []string{}, Skipped: []int{}}
		for i, a := range req.Actions {
			if err := apply(ed, i, a, &resp); err != nil {
				respond.StoreError(w, r, err, "Failed to apply action", fields)
				return
			}
		}

		if err := b.save(r.Context(), ws, ed); err != nil {
			respond.StoreError(w, r, err, "Failed to save workspace", fields)
			return
		}

		logrus.WithFields(fields).WithFields(logrus.Fields{
			"created": len(resp.Created),
			"updated": len(resp.Updated),
			"deleted": len(resp.Deleted),
			"skipped": len(resp.Skipped),
		}).Info("Applied actions")

		resp.Items = ed.Items()
		render.JSON(w, r, resp)
	}
}
