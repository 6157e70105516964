package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "stockbook/internal/core/context"
	"stockbook/internal/core/id"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace accepts caller-supplied request and trace ids or mints new ones, and
// echoes both back so clients can quote them when reporting a failed posting.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		t := appctx.Trace{
			RequestID: headerOrNew(c, HeaderRequestID),
			TraceID:   headerOrNew(c, HeaderTraceID),
		}
		c.Request = c.Request.WithContext(appctx.WithTrace(c.Request.Context(), t))

		c.Set("request_id", t.RequestID)
		c.Header(HeaderRequestID, t.RequestID)
		c.Header(HeaderTraceID, t.TraceID)

		c.Next()
	}
}

func headerOrNew(c *gin.Context, name string) string {
	if v := c.GetHeader(name); v != "" {
		return v
	}
	return id.New().String()
}
