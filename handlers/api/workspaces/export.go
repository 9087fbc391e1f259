package workspaces

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ideation-workspace/export"
	"ideation-workspace/handlers/api/respond"
	"ideation-workspace/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type ExportRequest struct {
	ItemIDs []string `json:"itemIds"`
	Padding *float64 `json:"padding,omitempty"`
}

// HandleExport renders the selected items of a workspace to a PNG download.
func HandleExport(b Backend, rd *export.Renderer, padding float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		fields := logrus.Fields{"workspace_id": id}

		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Error(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
		pad := padding
		if req.Padding != nil {
			pad = *req.Padding
			if !(pad >= 0 && pad <= export.MaxPadding) {
				respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("padding must be between 0 and %v", export.MaxPadding))
				return
			}
		}

		ws, err := b.Store.Get(r.Context(), id)
		if err != nil {
			respond.StoreError(w, r, err, "Workspace not found", fields)
			return
		}

		var buf bytes.Buffer
		err = func() error {
			p, err := export.Prepare(export.Select(ws.Items, req.ItemIDs), pad)
			if err != nil {
				return err
			}
			return rd.RenderPNG(&buf, p)
		}()
		metrics.ExportsTotal.WithLabelValues(metrics.Result(err)).Inc()
		switch {
		case errors.Is(err, export.ErrNothingToExport):
			respond.Error(w, r, http.StatusBadRequest, "Nothing to export")
			return
		case errors.Is(err, export.ErrExportTooLarge):
			logrus.WithFields(fields).WithError(err).Warn("Rejected oversized export")
			respond.Error(w, r, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		if err != nil {
			logrus.WithFields(fields).WithError(err).Error("Failed to render export")
			respond.Error(w, r, http.StatusInternalServerError, "Failed to render export")
			return
		}

		name := export.FileName("workspace", time.Now())
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(buf.Bytes()); err != nil {
			logrus.WithFields(fields).WithError(err).Warn("Failed to write export")
			return
		}
		logrus.WithFields(fields).WithField("items", len(req.ItemIDs)).Info("Exported items")
	}
}
