package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestReadiness(t *testing.T) {
	t.Run("ready when every check passes", func(t *testing.T) {
		h := New("test", "memory")
		h.RegisterCheck("backend", func(context.Context) error { return nil })

		w := serve(h, "/health/ready")

		assert.Equal(t, http.StatusOK, w.Code)
		var body ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "up", body.Checks["backend"])
	})

	t.Run("503 when a check fails", func(t *testing.T) {
		h := New("test", "postgres")
		h.RegisterCheck("database", func(context.Context) error { return errors.New("connection refused") })

		w := serve(h, "/health/ready")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "down: connection refused")
	})
}

func TestStatusReportsBackend(t *testing.T) {
	w := serve(New("production", "supabase"), "/health")

	var body StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "supabase", body.Backend)
	assert.Equal(t, "production", body.Environment)
	assert.Equal(t, http.StatusOK, serve(New("x", "y"), "/health/live").Code)
}
