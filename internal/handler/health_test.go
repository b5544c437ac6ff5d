package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	healthy := func(ctx context.Context) error { return nil }
	broken := func(ctx context.Context) error { return errors.New("connection refused") }

	t.Run("all dependencies up", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewHealthHandler(map[string]Check{"database": healthy, "redis": healthy}).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"ok"`)
	})

	t.Run("one dependency down", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewHealthHandler(map[string]Check{"database": healthy, "redis": broken}).
			ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"degraded"`)
		assert.Contains(t, w.Body.String(), `"redis":"unavailable"`)
	})
}
