package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per request with method, route, status, latency
// and client ip, tagged with the request id set by RequestID.
// 5xx responses log at error level, 4xx at warn, everything else at info.
//
//	router.Use(middleware.RequestID(), middleware.RequestLogger())
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		lg := requestLog(c)
		ev := lg.Info()
		switch {
		case status >= http.StatusInternalServerError:
			ev = lg.Error()
		case status >= http.StatusBadRequest:
			ev = lg.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Int("status", status).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Str("client_ip", c.ClientIP()).
			Msg("http_request")
	}
}
