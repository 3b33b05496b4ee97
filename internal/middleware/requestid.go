package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/guttosm/eftpulse/internal/logger"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// RequestID is a Gin middleware that tags each request with an identifier.
//
// Behavior:
//   - Reuses an incoming X-Request-ID header when it is a valid UUID.
//   - Otherwise generates a new UUID (v4).
//   - Stores it in the Gin context under "request_id" and echoes it in X-Request-ID.
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.RequestID())
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		c.Set(RequestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)

		c.Next()
	}
}

// RequestIDFrom returns the id RequestID stored on c, or "" when the middleware did not run.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// requestLog returns a logger tagged with the request id and path.
func requestLog(c *gin.Context) zerolog.Logger {
	return logger.L().With().
		Str("request_id", RequestIDFrom(c)).
		Str("path", c.Request.URL.Path).
		Logger()
}
