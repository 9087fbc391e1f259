package presence

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ideation-workspace/core"
	"ideation-workspace/handlers/auth"
	"ideation-workspace/middleware"
	pres "ideation-workspace/presence"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

func withID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func publish(s *Service, id, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := withID(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), id)
	s.HandlePublish()(rec, req)
	return rec
}

func TestHandlePublish(t *testing.T) {
	s := NewService(pres.NewLocalTransport())

	rec := publish(s, "ws1", `{"identity":"user_0001","name":"User 0001","cursor":{"x":1,"y":2}}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusAccepted)
	}
	var got pres.Record
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got.Color != pres.ColorFor("user_0001") {
		t.Errorf("Color mismatch: got %q, want %q", got.Color, pres.ColorFor("user_0001"))
	}

	list := s.Roster.List(pres.ChannelName("ws1"))
	if len(list) != 1 || list[0].Cursor == nil || list[0].Cursor.X != 1 {
		t.Errorf("Roster mismatch: got %+v", list)
	}
}

func TestHandlePublish_Throttle(t *testing.T) {
	s := NewService(pres.NewLocalTransport())
	body := `{"identity":"user_0002","cursor":{"x":1,"y":1}}`

	if rec := publish(s, "ws1", body); rec.Code != http.StatusAccepted {
		t.Fatalf("First cursor: got %d, want %d", rec.Code, http.StatusAccepted)
	}
	if rec := publish(s, "ws1", body); rec.Code != http.StatusTooManyRequests {
		t.Errorf("Second cursor: got %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	// Identity-only records are never throttled.
	if rec := publish(s, "ws1", `{"identity":"user_0002","cursor":null}`); rec.Code != http.StatusAccepted {
		t.Errorf("Cursor hide: got %d, want %d", rec.Code, http.StatusAccepted)
	}

	time.Sleep(pres.CursorInterval + 10*time.Millisecond)
	if rec := publish(s, "ws1", body); rec.Code != http.StatusAccepted {
		t.Errorf("Cursor after interval: got %d, want %d", rec.Code, http.StatusAccepted)
	}
}

func TestHandlePublish_Rejects(t *testing.T) {
	s := NewService(pres.NewLocalTransport())

	if rec := publish(s, "ws1", `{"name":"nobody"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Missing identity: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if rec := publish(s, "ws1", `{`); rec.Code != http.StatusBadRequest {
		t.Errorf("Malformed body: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if rec := publish(s, "..", `{"identity":"a"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Invalid workspace id: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandlePublish_ClaimsOverride(t *testing.T) {
	s := NewService(pres.NewLocalTransport())

	claims := &auth.AppClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"}, Name: "Alice"}
	req := withID(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"identity":"mallory","name":"Mallory"}`)), "ws1")
	req = req.WithContext(context.WithValue(req.Context(), middleware.ClaimsContextKey, claims))
	rec := httptest.NewRecorder()

	s.HandlePublish()(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("Status code mismatch: got %d, want %d", rec.Code, http.StatusAccepted)
	}
	list := s.Roster.List(pres.ChannelName("ws1"))
	if len(list) != 1 || list[0].Identity != "alice" || list[0].Name != "Alice" {
		t.Errorf("Claims were not applied: %+v", list)
	}
}

func TestHandlePublish_Leave(t *testing.T) {
	s := NewService(pres.NewLocalTransport())
	publish(s, "ws1", `{"identity":"a"}`)
	publish(s, "ws1", `{"identity":"a","left":true}`)

	if list := s.Roster.List(pres.ChannelName("ws1")); len(list) != 0 {
		t.Errorf("Expected empty roster after leave, got %+v", list)
	}
}

func TestHandleRosterAndChannels(t *testing.T) {
	s := NewService(pres.NewLocalTransport())
	publish(s, "ws1", `{"identity":"b"}`)
	publish(s, "ws1", `{"identity":"a"}`)
	publish(s, "ws2", `{"identity":"c"}`)

	rec := httptest.NewRecorder()
	s.HandleRoster()(rec, withID(httptest.NewRequest(http.MethodGet, "/", nil), "ws1"))
	var list []pres.Record
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(list) != 2 || list[0].Identity != "a" {
		t.Errorf("Roster mismatch: got %+v", list)
	}

	rec = httptest.NewRecorder()
	s.HandleChannels()(rec, httptest.NewRequest(http.MethodGet, "/api/presence", nil))
	var channels []pres.ChannelInfo
	if err := json.NewDecoder(rec.Body).Decode(&channels); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(channels) != 2 || channels[0].Name != "workspace:ws1" || channels[0].Participants != 2 {
		t.Errorf("Channels mismatch: got %+v", channels)
	}
}

func TestHandleStream(t *testing.T) {
	s := NewService(pres.NewLocalTransport())
	publish(s, "ws1", `{"identity":"a"}`)

	r := chi.NewRouter()
	r.Get("/workspaces/{id}/presence/stream", s.HandleStream())
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/workspaces/ws1/presence/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Stream request failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type mismatch: got %q, want text/event-stream", ct)
	}

	reader := bufio.NewReader(resp.Body)
	next := func() (string, string) {
		t.Helper()
		var event, data string
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("Failed to read stream: %v", err)
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				if event != "" {
					return event, data
				}
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			}
		}
	}

	event, data := next()
	if event != "roster" || !strings.Contains(data, `"identity":"a"`) {
		t.Errorf("Roster event mismatch: %s %s", event, data)
	}

	if err := s.Transport.Publish(ctx, pres.ChannelName("ws1"), pres.Record{Identity: "b", Cursor: &core.Point{X: 3, Y: 4}}); err != nil {
		t.Fatalf("Publish() failed: %v", err)
	}
	event, data = next()
	if event != "presence" {
		t.Fatalf("Event mismatch: got %q, want presence", event)
	}
	var got pres.Record
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if got.Identity != "b" || got.Cursor == nil || got.Cursor.Y != 4 {
		t.Errorf("Streamed record mismatch: got %+v", got)
	}
}
