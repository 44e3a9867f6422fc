package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by the repository store and the status cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is one named dependency probed by the readiness endpoint.
type Check struct {
	Name   string
	Pinger Pinger
}

type componentStatus struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type Handler struct {
	checks  []Check
	timeout time.Duration
}

func NewHandler(checks ...Check) *Handler {
	return &Handler{checks: checks, timeout: 2 * time.Second}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

// ReadinessCheck pings every dependency and reports DOWN if any fails.
func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	overall, code := "UP", http.StatusOK
	components := make(map[string]componentStatus, len(h.checks))
	for _, check := range h.checks {
		start := time.Now()
		err := check.Pinger.Ping(ctx)
		cs := componentStatus{Status: "UP", LatencyMS: time.Since(start).Milliseconds()}
		if err != nil {
			_ = c.Error(err)
			cs.Status, cs.Error = "DOWN", err.Error()
			overall, code = "DOWN", http.StatusServiceUnavailable
		}
		components[check.Name] = cs
	}
	c.JSON(code, gin.H{"status": overall, "components": components})
}
