// Package handlers holds the gin handlers of the ledger API. Handlers bind
// and validate input, call one domain service and render its result.
package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a dependency is reachable. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

const readyTimeout = 2 * time.Second

// Dependency is one readiness check. An optional dependency that fails is
// reported as degraded without failing the probe.
type Dependency struct {
	Pinger   Pinger
	Optional bool
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	deps map[string]Dependency
}

// NewHealthHandler checks every named dependency on readiness. Entries with
// a nil Pinger are reported as not configured.
func NewHealthHandler(deps map[string]Dependency) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// Live answers as long as the process serves HTTP.
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready answers 503 when a required dependency fails its ping.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "ok", http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		dep := h.deps[name]
		if dep.Pinger == nil {
			checks[name] = "not configured"
			continue
		}
		if err := dep.Pinger.Ping(ctx); err != nil {
			if dep.Optional {
				checks[name] = "degraded: " + err.Error()
				continue
			}
			checks[name] = "unhealthy: " + err.Error()
			status, code = "error", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "healthy"
	}

	c.JSON(code, gin.H{"status": status, "checks": checks})
}
