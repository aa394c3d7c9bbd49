package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-backoffice/internal/handler"
)

// ErrorHandler renders the last attached error when the handler chain ended
// without writing a response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		handler.Error(c, c.Errors.Last().Err)
	}
}
