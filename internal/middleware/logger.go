package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-backoffice/pkg/logger"
)

// Logger logs one line per request. Request bodies are never logged since
// they carry patient and payment data.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		zl := log.Zerolog()

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = zl.Error()
		case status >= 400:
			event = zl.Warn()
		default:
			event = zl.Info()
		}

		event = event.
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP())
		if actor, ok := ActorFrom(c); ok {
			event = event.Str("role", string(actor.Role))
			if actor.EmployeeID != nil {
				event = event.Str("employee_id", actor.EmployeeID.String())
			}
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.Msg("request processed")
	}
}
