package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "cashpoint/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace attaches a request trace and echoes its IDs back to the terminal.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		t := appctx.NewTrace(c.GetHeader(HeaderTraceID), c.GetHeader(HeaderRequestID))
		c.Request = c.Request.WithContext(appctx.WithTrace(c.Request.Context(), t))

		c.Header(HeaderRequestID, t.RequestID)
		c.Header(HeaderTraceID, t.TraceID)
		c.Next()
	}
}
