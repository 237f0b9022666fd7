package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go-todo-app/internal/core/ports"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checks map[string]ports.Pinger
	logger *slog.Logger
}

// NewHealthHandler takes the named backends readiness depends on. A nil
// entry is reported as not configured.
func NewHealthHandler(checks map[string]ports.Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz handles GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, healthResponse{Status: "ok"})
}

// Readyz handles GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	code := http.StatusOK

	for name, p := range h.checks {
		if p == nil {
			resp.Checks[name] = "not configured"
			continue
		}
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "check", name, "error", err)
			resp.Checks[name] = "error"
			resp.Status = "unhealthy"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	respondJSON(w, h.logger, code, resp)
}
