package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// CoreHandlers contains health, readiness, and metrics handlers
type CoreHandlers struct {
	checks map[string]Check
	logger *zap.Logger
}

// NewCoreHandlers creates a new core handlers instance
func NewCoreHandlers(checks map[string]Check, logger *zap.Logger) *CoreHandlers {
	return &CoreHandlers{
		checks: checks,
		logger: logger,
	}
}

var startTime = time.Now()

// HealthCheck represents a health check result
type HealthCheck struct {
	Service   string        `json:"service"`
	Status    string        `json:"status"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Health reports liveness; it never touches dependencies.
// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *CoreHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
		"uptime":    time.Since(startTime).String(),
	})
}

// Ready runs every dependency check and reports 503 if any fails
// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /ready [get]
func (h *CoreHandlers) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]HealthCheck, len(names))
	ready := true
	for _, name := range names {
		check := h.run(ctx, name, h.checks[name])
		results[name] = check
		if check.Status != "healthy" {
			ready = false
		}
	}

	status, statusCode := "ready", http.StatusOK
	if !ready {
		status, statusCode = "not_ready", http.StatusServiceUnavailable
		h.logger.Warn("Readiness check failed", zap.Any("checks", results))
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"timestamp": time.Now(),
		"checks":    results,
	})
}

func (h *CoreHandlers) run(ctx context.Context, name string, probe Check) HealthCheck {
	start := time.Now()
	check := HealthCheck{Service: name, Timestamp: start}

	err := probe(ctx)
	check.Latency = time.Since(start)
	if err != nil {
		check.Status = "unhealthy"
		check.Error = err.Error()
	} else {
		check.Status = "healthy"
	}
	return check
}

// Metrics handler function
func Metrics() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
