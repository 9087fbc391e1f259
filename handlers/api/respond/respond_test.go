package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ideation-workspace/core"
)

func TestStoreError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("workspace x: %w", core.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: \"../x\"", core.ErrInvalidID), http.StatusBadRequest},
		{core.ErrInvalidItem, http.StatusBadRequest},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		StoreError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err, "Failed", nil)
		if rec.Code != tt.want {
			t.Errorf("%v: status mismatch: got %d, want %d", tt.err, rec.Code, tt.want)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] == "" {
			t.Errorf("%v: error envelope missing: %v", tt.err, err)
		}
	}
}
