package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"ideation-workspace/presence"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type (
	TokenRequest struct {
		Name string `json:"name,omitempty"`
	}

	TokenResponse struct {
		Token    string `json:"token"`
		Identity string `json:"identity"`
		Name     string `json:"name"`
		Color    string `json:"color"`
	}
)

// HandleIssueToken mints a fresh participant identity and signs a token for it.
// The caller may choose a display name; otherwise the generated one is used.
func HandleIssueToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !Enabled() {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, map[string]string{"error": "Auth is not enabled"})
			return
		}

		var req TokenRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, map[string]string{"error": "Invalid request body"})
				return
			}
		}

		rec := presence.NewIdentity()
		if name := strings.TrimSpace(req.Name); name != "" {
			rec.Name = name
		}

		token, err := CreateJWT(rec.Identity, rec.Name)
		if err != nil {
			logrus.WithError(err).Error("Failed to sign token")
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, map[string]string{"error": "Failed to sign token"})
			return
		}

		render.JSON(w, r, TokenResponse{
			Token:    token,
			Identity: rec.Identity,
			Name:     rec.Name,
			Color:    rec.Color,
		})
	}
}
