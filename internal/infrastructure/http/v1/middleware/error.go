package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/pkg/logger"
)

// ErrorHandler renders the last error a handler attached with c.Error as
//
//	{"code": ..., "message": ..., "details": {...}}
//
// Causes wrapped inside an *AppError and plain errors are logged, never sent.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		ctx := c.Request.Context()

		appErr, ok := apperror.AsAppError(err)
		if !ok {
			logger.Error(ctx, "unhandled error", "error", err)
			writeError(c, http.StatusInternalServerError, internalErrorBody(c))
			return
		}

		if appErr.Err != nil {
			logger.Error(ctx, "request failed", "code", appErr.Code, "cause", appErr.Err)
		} else if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error(ctx, "request failed", "code", appErr.Code)
		}
		writeError(c, apperror.HTTPStatus(appErr), gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": appErr.Details,
		})
	}
}

// writeError records the failure for idempotent replay and writes it.
func writeError(c *gin.Context, status int, body gin.H) {
	failIdempotency(c, status, body)
	c.AbortWithStatusJSON(status, body)
}
