package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stockbook/pkg/logger"
)

// Logger binds log to the request context and writes one access line per
// request. Health probes log at debug so they do not drown the ledger traffic.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), log))

		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if key := c.GetHeader(HeaderIdempotencyKey); key != "" {
			fields = append(fields, "idempotency_key", key)
		}
		if errs := c.Errors.String(); errs != "" {
			fields = append(fields, "errors", errs)
		}

		l := log.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			l.Errorw("http request", fields...)
		case strings.Contains(c.Request.URL.Path, "/health/"):
			l.Debugw("http request", fields...)
		default:
			l.Infow("http request", fields...)
		}
	}
}
