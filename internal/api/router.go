package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/eftpulse/internal/metrics"
	"github.com/guttosm/eftpulse/internal/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const requestTimeout = 10 * time.Second

// NewRouter creates the read API engine.
//
// Routes:
//   - GET /api/v1/summaries/:entity?date=YYYY-MM-DD
//   - GET /api/v1/runs/latest
//   - GET /metrics, GET /swagger/*any
//
// Unknown paths and methods answer with a JSON ErrorResponse.
// Health and readiness endpoints are registered by app.InitializeApp().
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	// ─── Middlewares ───────────────────────────────
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RecoveryMiddleware(),
		middleware.ErrorHandler,
		middleware.RateLimiter(),
		withTimeout(requestTimeout),
	)

	router.NoRoute(func(c *gin.Context) {
		middleware.AbortWithError(c, http.StatusNotFound, "route not found", nil)
	})
	router.NoMethod(func(c *gin.Context) {
		middleware.AbortWithError(c, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	// ─── Metrics & Swagger ────────────────────────
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// ─── API v1 ───────────────────────────────────
	v1 := router.Group("/api/v1")
	{
		v1.GET("/summaries/:entity", handler.GetSummaries)
		v1.GET("/runs/latest", handler.GetLatestRun)
	}

	return router
}

// withTimeout bounds every request context to d.
func withTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
