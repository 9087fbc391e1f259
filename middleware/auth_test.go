package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ideation-workspace/handlers/auth"
)

func protected(t *testing.T, wantClaims bool) http.Handler {
	return AuthJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r.Context())
		if ok != wantClaims {
			t.Errorf("claims presence mismatch: got %v, want %v", ok, wantClaims)
		}
		if ok && claims.Subject != "user_0001" {
			t.Errorf("subject mismatch: got %s", claims.Subject)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestAuthJWTDisabledPassesThrough(t *testing.T) {
	auth.Init("")
	rec := httptest.NewRecorder()
	protected(t, false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestAuthJWT(t *testing.T) {
	auth.Init("secret")
	t.Cleanup(func() { auth.Init("") })

	token, err := auth.CreateJWT("user_0001", "User 0001")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected(t, tt.want == http.StatusNoContent).ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("Status code mismatch: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAuthJWTQueryToken(t *testing.T) {
	auth.Init("secret")
	t.Cleanup(func() { auth.Init("") })

	token, err := auth.CreateJWT("user_0001", "User 0001")
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	protected(t, true).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stream?token="+token, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("Status code mismatch: got %d, want %d", rec.Code, http.StatusNoContent)
	}
}
