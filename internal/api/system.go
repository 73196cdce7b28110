package api

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds each component probe.
const healthCheckTimeout = 5 * time.Second

// handleHealth answers GET /api/v1/system/health.
//
// Each registered component is probed; the overall status is degraded
// if any probe fails, and the response code switches to 503 so load
// balancers and uptime monitors see it without parsing the body.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	components := make(map[string]string, len(s.checks))
	healthy := true

	for name, check := range s.checks {
		if err := check.HealthCheck(ctx); err != nil {
			components[name] = err.Error()
			healthy = false
			continue
		}
		components[name] = "ok"
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
		"queue": map[string]any{
			"length":  s.queue.Len(),
			"dropped": s.queue.Dropped(),
		},
	})
}
