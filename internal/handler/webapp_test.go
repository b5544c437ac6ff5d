package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebAppHandler(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte("<!DOCTYPE html><html><body>Signal Link</body></html>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "app.js"), []byte("console.log('signal');"), 0644))

	handler := NewWebAppHandler(tmpDir)

	tests := []struct {
		name     string
		method   string
		path     string
		status   int
		contains string
	}{
		{"invitation link serves index", http.MethodGet, "/?session=AB12CD", http.StatusOK, "Signal Link"},
		{"serves static asset", http.MethodGet, "/app.js", http.StatusOK, "console.log"},
		{"unknown path falls back to index", http.MethodGet, "/some/view", http.StatusOK, "Signal Link"},
		{"api path is not served", http.MethodGet, "/api/notify", http.StatusNotFound, ""},
		{"api root is not served", http.MethodGet, "/api", http.StatusNotFound, ""},
		{"pairing path is not served", http.MethodGet, "/v1/pairings/AB12CD/unknown", http.StatusNotFound, ""},
		{"writes are not served", http.MethodPost, "/", http.StatusNotFound, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))

			assert.Equal(t, tc.status, rec.Code)
			if tc.contains != "" {
				assert.Contains(t, rec.Body.String(), tc.contains)
			}
		})
	}
}

func TestWebAppHandler_NoIndexFile(t *testing.T) {
	handler := NewWebAppHandler(t.TempDir())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
