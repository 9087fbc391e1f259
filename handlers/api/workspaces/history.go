package workspaces

import (
	"net/http"

	"ideation-workspace/core"
	"ideation-workspace/handlers/api/respond"
	"ideation-workspace/workspace"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// HistoryState describes the persisted undo/redo stacks of a workspace.
type HistoryState struct {
	CanUndo  bool `json:"canUndo"`
	CanRedo  bool `json:"canRedo"`
	Past     int  `json:"past"`
	Future   int  `json:"future"`
	MaxDepth int  `json:"maxDepth"`
}

type HistoryResponse struct {
	HistoryState
	Items []core.Item `json:"items"`
}

func stateOf(ed *workspace.Editor) HistoryState {
	h := ed.History()
	past, future := h.Depth()
	return HistoryState{
		CanUndo:  h.CanUndo(),
		CanRedo:  h.CanRedo(),
		Past:     past,
		Future:   future,
		MaxDepth: h.MaxDepth(),
	}
}

func HandleHistory(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		_, ed, err := b.open(r.Context(), id)
		if err != nil {
			respond.StoreError(w, r, err, "Workspace not found", logrus.Fields{"workspace_id": id})
			return
		}
		render.JSON(w, r, stateOf(ed))
	}
}

// HandleUndo restores the previous snapshot and saves it. Answers 409 when
// there is nothing to undo.
func HandleUndo(b Backend) http.HandlerFunc {
	return handleStep(b, "undo", (*workspace.Editor).Undo)
}

func HandleRedo(b Backend) http.HandlerFunc {
	return handleStep(b, "redo", (*workspace.Editor).Redo)
}

func handleStep(b Backend, name string, step func(*workspace.Editor) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		fields := logrus.Fields{"workspace_id": id, "step": name}

		ws, ed, err := b.open(r.Context(), id)
		if err != nil {
			respond.StoreError(w, r, err, "Workspace not found", fields)
			return
		}
		if !step(ed) {
			respond.Error(w, r, http.StatusConflict, "Nothing to "+name)
			return
		}
		if err := b.save(r.Context(), ws, ed); err != nil {
			respond.StoreError(w, r, err, "Failed to save workspace", fields)
			return
		}

		logrus.WithFields(fields).Debug("History step applied")
		render.JSON(w, r, HistoryResponse{HistoryState: stateOf(ed), Items: ed.Items()})
	}
}
