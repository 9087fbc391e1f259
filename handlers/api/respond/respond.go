// Package respond writes the JSON error envelope shared by the API handlers.
package respond

import (
	"errors"
	"net/http"

	"ideation-workspace/core"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

func Error(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": msg})
}

// StoreError maps a store or engine error to a status code and logs it with fields.
func StoreError(w http.ResponseWriter, r *http.Request, err error, msg string, fields logrus.Fields) {
	log := logrus.WithFields(fields).WithError(err)
	switch {
	case errors.Is(err, core.ErrNotFound):
		log.Warn(msg)
		Error(w, r, http.StatusNotFound, msg)
	case errors.Is(err, core.ErrInvalidID), errors.Is(err, core.ErrInvalidItem):
		log.Warn(msg)
		Error(w, r, http.StatusBadRequest, err.Error())
	default:
		log.Error(msg)
		Error(w, r, http.StatusInternalServerError, msg)
	}
}
