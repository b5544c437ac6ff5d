package handler

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Check
}

func NewHealthHandler(checks map[string]Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// GET /health
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = "unavailable"
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":       status,
		"dependencies": deps,
		"timestamp":    time.Now().UnixMilli(),
	})
}
