// Package middleware provides HTTP middleware components.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"cashpoint/internal/core/apperror"
	appctx "cashpoint/internal/core/context"
	"cashpoint/pkg/logger"
)

// Recovery turns a handler panic into a 500 envelope. A pending
// idempotency key is released so the client may retry the sale; any
// open transaction has already been rolled back by the tx manager.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			ctx := c.Request.Context()
			logger.Error(ctx, "panic recovered",
				"panic", rec,
				"method", c.Request.Method,
				"path", c.FullPath(),
				"stack", string(debug.Stack()),
			)

			_ = c.Error(apperror.NewInternal(fmt.Errorf("panic: %v", rec)).
				WithDetail("request_id", appctx.GetRequestID(ctx)))

			status, body := renderError(c, c.Errors.Last().Err)
			finishIdempotency(c, status, body)
			c.AbortWithStatusJSON(status, body)
		}()
		c.Next()
	}
}
