package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ideation-workspace/config"
	"ideation-workspace/export"
	apipresence "ideation-workspace/handlers/api/presence"
	"ideation-workspace/handlers/api/workspaces"
	"ideation-workspace/handlers/auth"
	"ideation-workspace/presence"
	"ideation-workspace/stores/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := memory.NewStore()
	b := workspaces.Backend{Store: store, History: store, MaxDepth: 50}
	svc := apipresence.NewService(presence.NewLocalTransport())
	srv := httptest.NewServer(setupRouter(config.Default(), b, svc, export.NewRenderer()))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouterWorkspaceFlow(t *testing.T) {
	auth.Init("")
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v2/workspaces", "application/json", strings.NewReader(`{"title":"Sprint"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Status code mismatch: got %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created workspaces.CreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}

	resp, err = http.Post(srv.URL+"/api/v2/workspaces/"+created.ID+"/actions", "application/json",
		strings.NewReader(`{"actions":[{"action":"create","itemType":"note","content":"hello"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Actions status mismatch: got %d, want %d", resp.StatusCode, http.StatusOK)
	}

	resp, err = http.Post(srv.URL+"/api/v2/workspaces/"+created.ID+"/history/undo", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Undo status mismatch: got %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestRouterRequiresTokenWhenEnabled(t *testing.T) {
	auth.Init("secret")
	t.Cleanup(func() { auth.Init("") })
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v2/workspaces")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Status code mismatch: got %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	resp, err = http.Post(srv.URL+"/auth/token", "application/json", strings.NewReader(`{"name":"Ada"}`))
	if err != nil {
		t.Fatal(err)
	}
	var tok auth.TokenResponse
	err = json.NewDecoder(resp.Body).Decode(&tok)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v2/workspaces", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status code mismatch: got %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestRouterMetricsAndChannels(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/metrics", "/api/presence"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status mismatch: got %d, want %d", path, resp.StatusCode, http.StatusOK)
		}
	}
}
