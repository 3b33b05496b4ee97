package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/eftpulse/internal/domain/dto"
)

// ErrorHandler turns errors attached with c.Error into a 500 ErrorResponse
// when the handler did not write a response itself.
func ErrorHandler(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}
	last := c.Errors.Last()
	lg := requestLog(c)
	lg.Error().Err(last.Err).Msg("request failed")

	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("Internal server error", last.Err))
}

// AbortWithError stops the chain and writes a standardized error payload.
// err, when set, is also attached to c so RequestLogger reports it.
func AbortWithError(c *gin.Context, status int, message string, err error) {
	if err != nil {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(message, err))
}
