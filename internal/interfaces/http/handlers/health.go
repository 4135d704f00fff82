// internal/interfaces/http/handlers/health.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check reports whether a dependency is reachable
type Check func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	name     string
	version  string
	required map[string]Check
	optional map[string]Check
}

// NewHealthHandler creates a health handler. Failing required checks make
// the service unready; optional ones only show up as degraded.
func NewHealthHandler(name, version string, required, optional map[string]Check) *HealthHandler {
	return &HealthHandler{name: name, version: version, required: required, optional: optional}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   h.name,
		"version":   h.version,
		"timestamp": time.Now().UTC(),
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	status, code := "ready", http.StatusOK
	for name, check := range h.required {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status, code = "unavailable", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	for name, check := range h.optional {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			if code == http.StatusOK {
				status = "degraded"
			}
			continue
		}
		checks[name] = "ok"
	}

	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
	})
}
