// Package middleware holds the gin middleware chain of the ledger API:
// recovery, tracing, access logging, error rendering, actor labels and
// idempotent replay.
package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/pkg/logger"
)

// Recovery turns a panic into a 500 response. It renders the body itself
// because ErrorHandler never resumes after a panic unwinds past it.
// Any database transaction opened by the handler has already rolled back.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.Error(c.Request.Context(), "panic recovered",
				"error", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)

			if c.Writer.Written() {
				c.Abort()
				return
			}
			writeError(c, http.StatusInternalServerError, internalErrorBody(c))
		}()
		c.Next()
	}
}

func internalErrorBody(c *gin.Context) gin.H {
	return gin.H{
		"code":    apperror.CodeInternal,
		"message": "Internal server error",
		"details": map[string]any{"request_id": c.GetString("request_id")},
	}
}
