package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// RecoveryMiddleware turns a panic in a handler into a 500 ErrorResponse.
// The panic value and stack are logged with the request id; the client only
// sees a generic message.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			lg := requestLog(c)
			lg.Error().
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.Abort()
				return
			}
			AbortWithError(c, http.StatusInternalServerError, "Internal server error", nil)
		}()

		c.Next()
	}
}
