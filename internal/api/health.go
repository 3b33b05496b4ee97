package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const checkTimeout = 2 * time.Second

// Check is one named readiness dependency.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// HealthHandler provides liveness and readiness endpoints.
//
//   - /healthz always answers 200 while the process serves requests.
//   - /readyz runs every Check; any failure answers 503.
type HealthHandler struct {
	checks []Check
}

// NewHealthHandler builds a HealthHandler over checks, run in the given order.
func NewHealthHandler(checks ...Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// readiness is the /readyz payload.
type readiness struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Register mounts /healthz and /readyz on r.
func (h *HealthHandler) Register(r *gin.Engine) {
	// @Summary      Liveness probe
	// @Description  Always returns OK if the service is running
	// @Tags         health
	// @Produce      json
	// @Success      200  {object}  map[string]string
	// @Router       /healthz [get]
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// @Summary      Readiness probe
	// @Description  Reports each dependency (postgres, run log) and is ready only when all pass
	// @Tags         health
	// @Produce      json
	// @Success      200  {object}  api.readiness
	// @Failure      503  {object}  api.readiness
	// @Router       /readyz [get]
	r.GET("/readyz", h.ready)
}

func (h *HealthHandler) ready(c *gin.Context) {
	out := readiness{Status: "ready", Checks: make(map[string]string, len(h.checks))}
	code := http.StatusOK

	for _, chk := range h.checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
		err := chk.Fn(ctx)
		cancel()
		if err != nil {
			out.Checks[chk.Name] = err.Error()
			out.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		out.Checks[chk.Name] = "ok"
	}
	c.JSON(code, out)
}
