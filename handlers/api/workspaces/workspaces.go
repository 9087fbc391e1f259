// Package workspaces serves the persistence API and the server-side engine
// operations (actions, history, export) for one workspace at a time.
package workspaces

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"ideation-workspace/core"
	"ideation-workspace/handlers/api/respond"
	"ideation-workspace/history"
	"ideation-workspace/workspace"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	// Backend bundles what the handlers need to load and persist a workspace.
	Backend struct {
		Store    core.WorkspaceStore
		History  core.KeyValueStore
		MaxDepth int
	}

	CreateRequest struct {
		Title string      `json:"title"`
		Items []core.Item `json:"items"`
	}

	CreateResponse struct {
		ID string `json:"id"`
	}

	// SaveRequest is the body the autosave bridge sends.
	SaveRequest struct {
		WorkspaceID string      `json:"workspaceId"`
		Title       string      `json:"title,omitempty"`
		Items       []core.Item `json:"items"`
	}
)

// open loads the workspace and wraps it in an editor backed by its persisted history.
func (b Backend) open(ctx context.Context, id string) (*core.Workspace, *workspace.Editor, error) {
	ws, err := b.Store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	depth := b.MaxDepth
	if depth <= 0 {
		depth = history.DefaultMaxDepth
	}
	mgr := history.NewManager(b.History, id, history.WithMaxDepth(depth))
	if err := mgr.Load(ctx); err != nil {
		// Corrupt history should not lock the workspace.
		logrus.WithError(err).WithField("workspace_id", id).Warn("Failed to load history, starting fresh")
		mgr.Clear()
	}

	core.NormalizeItems(ws.Items)
	return ws, workspace.NewEditor(ws.Items, workspace.WithHistory(mgr)), nil
}

func (b Backend) save(ctx context.Context, ws *core.Workspace, ed *workspace.Editor) error {
	return b.Store.Save(ctx, &core.Workspace{ID: ws.ID, Items: ed.Items()})
}

func HandleList(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := b.Store.List(r.Context())
		if err != nil {
			respond.StoreError(w, r, err, "Failed to list workspaces", nil)
			return
		}
		if list == nil {
			list = []*core.Workspace{}
		}
		render.JSON(w, r, list)
	}
}

func HandleCreate(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				respond.Error(w, r, http.StatusBadRequest, "Invalid request body")
				return
			}
		}
		if req.Items == nil {
			req.Items = []core.Item{}
		}
		if err := core.ValidateItems(req.Items); err != nil {
			respond.Error(w, r, http.StatusBadRequest, err.Error())
			return
		}
		core.NormalizeItems(req.Items)

		id, err := b.Store.Create(r.Context(), &core.Workspace{Title: req.Title, Items: req.Items})
		if err != nil {
			respond.StoreError(w, r, err, "Failed to create workspace", nil)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, CreateResponse{ID: id})
	}
}

func HandleGet(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ws, err := b.Store.Get(r.Context(), id)
		if err != nil {
			respond.StoreError(w, r, err, "Workspace not found", logrus.Fields{"workspace_id": id})
			return
		}
		if ws.Items == nil {
			ws.Items = []core.Item{}
		}
		render.JSON(w, r, ws)
	}
}

// HandleSave stores the full item list. The body's workspaceId, when given,
// must match the path.
func HandleSave(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		log := logrus.WithField("workspace_id", id)

		var req SaveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.WithError(err).Warn("Failed to decode save request")
			respond.Error(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.WorkspaceID != "" && req.WorkspaceID != id {
			respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("workspaceId %q does not match path", req.WorkspaceID))
			return
		}
		if req.Items == nil {
			req.Items = []core.Item{}
		}
		if err := core.ValidateItems(req.Items); err != nil {
			respond.Error(w, r, http.StatusBadRequest, err.Error())
			return
		}
		core.NormalizeItems(req.Items)

		ws := &core.Workspace{ID: id, Title: req.Title, Items: req.Items}
		if err := b.Store.Save(r.Context(), ws); err != nil {
			respond.StoreError(w, r, err, "Failed to save workspace", logrus.Fields{"workspace_id": id})
			return
		}

		log.WithField("items", len(req.Items)).Debug("Workspace saved")
		render.NoContent(w, r)
	}
}

// HandleDelete removes the workspace and its persisted history.
func HandleDelete(b Backend) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		fields := logrus.Fields{"workspace_id": id}

		if err := b.Store.Delete(r.Context(), id); err != nil {
			respond.StoreError(w, r, err, "Failed to delete workspace", fields)
			return
		}
		if b.History != nil {
			if err := history.Purge(r.Context(), b.History, id); err != nil {
				logrus.WithFields(fields).WithError(err).Warn("Failed to purge history")
			}
		}
		render.NoContent(w, r)
	}
}
