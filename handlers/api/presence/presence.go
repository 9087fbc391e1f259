// Package presence exposes the presence channels over plain HTTP: a roster
// snapshot, a publish endpoint and a server-sent event stream.
package presence

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ideation-workspace/core"
	"ideation-workspace/handlers/api/respond"
	"ideation-workspace/metrics"
	"ideation-workspace/middleware"
	pres "ideation-workspace/presence"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// keepAlive is how often an idle stream gets a comment line so proxies keep it open.
const keepAlive = 25 * time.Second

// Service holds the shared presence state the handlers operate on.
type Service struct {
	Roster    *pres.Roster
	Transport pres.Transport
	Limiters  *pres.Limiters
}

func NewService(t pres.Transport) *Service {
	return &Service{
		Roster:    pres.NewRoster(),
		Transport: t,
		Limiters:  pres.NewLimiters(),
	}
}

func channelFrom(r *http.Request) (string, string, error) {
	id := chi.URLParam(r, "id")
	if err := core.ValidateID(id); err != nil {
		return "", id, err
	}
	return pres.ChannelName(id), id, nil
}

// HandleRoster lists the last-known record of every participant in the workspace.
func (s *Service) HandleRoster() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channel, _, err := channelFrom(r)
		if err != nil {
			respond.Error(w, r, http.StatusBadRequest, err.Error())
			return
		}
		render.JSON(w, r, s.Roster.List(channel))
	}
}

// HandlePublish accepts one presence record. With a verified token the
// identity and name come from its claims. Cursor records beyond one per
// CursorInterval per identity are refused with 429.
func (s *Service) HandlePublish() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channel, id, err := channelFrom(r)
		if err != nil {
			respond.Error(w, r, http.StatusBadRequest, err.Error())
			return
		}

		var rec pres.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			respond.Error(w, r, http.StatusBadRequest, "Invalid request body")
			return
		}
		if claims, ok := middleware.ClaimsFrom(r.Context()); ok {
			rec.Identity = claims.Subject
			if claims.Name != "" {
				rec.Name = claims.Name
			}
		}
		if err := rec.Validate(); err != nil {
			respond.Error(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if rec.Color == "" {
			rec.Color = pres.ColorFor(rec.Identity)
		}

		if rec.Cursor != nil && !s.Limiters.Allow(rec.Identity) {
			metrics.PresenceMessages.WithLabelValues("http", "throttled").Inc()
			respond.Error(w, r, http.StatusTooManyRequests, "Cursor updates are limited")
			return
		}

		s.Roster.Update(channel, rec)
		if rec.Left {
			s.Limiters.Forget(rec.Identity)
		}
		if err := s.Transport.Publish(r.Context(), channel, rec); err != nil {
			logrus.WithError(err).WithField("workspace_id", id).Error("Failed to publish presence")
			respond.Error(w, r, http.StatusBadGateway, "Failed to publish presence")
			return
		}
		metrics.PresenceMessages.WithLabelValues("http", "published").Inc()

		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, rec)
	}
}

// HandleStream sends the current roster as a "roster" event and then every
// record published to the workspace as a "presence" event until the client goes away.
func (s *Service) HandleStream() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channel, id, err := channelFrom(r)
		if err != nil {
			respond.Error(w, r, http.StatusBadRequest, err.Error())
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			respond.Error(w, r, http.StatusInternalServerError, "Streaming unsupported")
			return
		}

		ctx := r.Context()
		records, err := s.Transport.Subscribe(ctx, channel)
		if err != nil {
			logrus.WithError(err).WithField("workspace_id", id).Error("Failed to subscribe to presence")
			respond.Error(w, r, http.StatusBadGateway, "Failed to subscribe to presence")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		log := logrus.WithField("workspace_id", id)
		if err := writeEvent(w, "roster", s.Roster.List(channel)); err != nil {
			log.WithError(err).Debug("Presence stream closed")
			return
		}
		flusher.Flush()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case rec, ok := <-records:
				if !ok {
					return
				}
				if err := writeEvent(w, "presence", rec); err != nil {
					log.WithError(err).Debug("Presence stream closed")
					return
				}
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

// HandleChannels lists every channel with at least one known participant.
func (s *Service) HandleChannels() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, s.Roster.Channels())
	}
}
