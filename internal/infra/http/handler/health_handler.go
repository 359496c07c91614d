package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles liveness and readiness probes.
type HealthHandler struct {
	version string
	db      Pinger
	cache   Pinger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(version string, db, cache Pinger) *HealthHandler {
	return &HealthHandler{version: version, db: db, cache: cache}
}

// Health handles GET /health. It always reports alive.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready handles GET /ready. It checks database and cache connectivity.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	if err := h.cache.Ping(ctx); err != nil {
		checks["cache"] = err.Error()
		healthy = false
	} else {
		checks["cache"] = "ok"
	}

	status := http.StatusOK
	text := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		text = "degraded"
	}
	respondJSON(w, status, map[string]any{
		"status": text,
		"checks": checks,
	})
}
