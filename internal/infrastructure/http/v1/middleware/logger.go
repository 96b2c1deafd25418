package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cashpoint/pkg/logger"
)

// Logger installs log as the request logger and writes one access entry
// per request. Probe traffic under /health is logged at debug only.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), log))

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []any{
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if c.Writer.Header().Get(HeaderIdempotentReplayed) != "" {
			fields = append(fields, "replayed", true)
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, "error", errs)
		}

		entry := log.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			entry.Errorw("http request", fields...)
		case status >= 400:
			entry.Warnw("http request", fields...)
		case strings.HasPrefix(route, "/health"):
			entry.Debugw("http request", fields...)
		default:
			entry.Infow("http request", fields...)
		}
	}
}
