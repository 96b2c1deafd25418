package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"cashpoint/internal/core/apperror"
	appctx "cashpoint/internal/core/context"
	"cashpoint/pkg/logger"
)

// ErrorHandler renders the last handler error as {code, message, details}.
// 5xx responses carry only the request id.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		status, body := renderError(c, c.Errors.Last().Err)
		finishIdempotency(c, status, body)
		c.JSON(status, body)
	}
}

func renderError(c *gin.Context, err error) (int, gin.H) {
	ctx := c.Request.Context()

	appErr, ok := apperror.AsAppError(err)
	if !ok {
		logger.Error(ctx, "unhandled error", "error", err)
		return http.StatusInternalServerError, internalBody(ctx, apperror.CodeInternal)
	}

	if appErr.Err != nil {
		logger.Error(ctx, "request error", "code", appErr.Code, "cause", appErr.Err)
	}
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		return appErr.HTTPStatus, internalBody(ctx, appErr.Code)
	}
	return appErr.HTTPStatus, gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
		"details": appErr.Details,
	}
}

func internalBody(ctx context.Context, code string) gin.H {
	return gin.H{
		"code":    code,
		"message": "Internal server error",
		"details": map[string]any{"request_id": appctx.GetRequestID(ctx)},
	}
}
