package server

import (
	"context"
	"net/http"
	"time"

	"VTube/logger"
	"VTube/model"
)

// HealthCheck checks one dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler reports whether every dependency answers.
type HealthHandler struct {
	checks  []HealthCheck
	timeout time.Duration
}

// NewHealthHandler creates a HealthHandler running checks with a short timeout.
func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// HealthcheckHandler handles GET /api/v1/healthcheck.
func (h *HealthHandler) HealthcheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			logger.Warn("[Health] dependency check failed", logger.String("dependency", c.Name), logger.ErrorField(err))
			results[c.Name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[c.Name] = "ok"
	}

	message := "OK"
	if status != http.StatusOK {
		message = "Degraded"
	}
	writeJSON(w, status, model.NewAPIResponse(status, results, message))
}
