package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/triage-backend/internal/platform/ctxutil"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

// quietRoutes are polled often enough that a success line per hit is noise.
var quietRoutes = map[string]bool{
	"/healthcheck":                 true,
	"/api/applications/:id/status": true,
}

// RequestLogger writes one line per request; 5xx at error, 4xx at warn.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
		}
		if id := c.Param("id"); id != "" {
			fields = append(fields, "resource_id", id)
		}
		if reqID := ctxutil.RequestID(c.Request.Context()); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil && td.TraceID != "" {
			fields = append(fields, "trace_id", td.TraceID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		case quietRoutes[route]:
			log.Debug("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
