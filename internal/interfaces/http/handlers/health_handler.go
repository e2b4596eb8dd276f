package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker is implemented by the infrastructure clients that back
// the service (postgres pool, redis client).
type HealthChecker interface {
	Health() error
}

type HealthHandler struct {
	checks map[string]HealthChecker
	logger *slog.Logger
}

func NewHealthHandler(checks map[string]HealthChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

// Health pings every dependency and reports per-dependency status. Any
// failing dependency turns the overall answer into 503.
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	deps := gin.H{}

	for name, check := range h.checks {
		if err := check.Health(); err != nil {
			h.logger.Error("health check failed", "dependency", name, "error", err)
			deps[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "healthy"
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":       overall,
		"service":      "inkmirror-ledger",
		"dependencies": deps,
		"time":         time.Now().UTC(),
	})
}
