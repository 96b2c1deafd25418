package context

import (
	"context"

	"cashpoint/internal/core/id"
)

// maxCallerID bounds client-supplied IDs echoed into logs and headers.
const maxCallerID = 128

// Trace correlates one request across logs, audit entries and responses.
type Trace struct {
	TraceID   string
	RequestID string
}

// NewTrace keeps caller IDs that look sane and generates the rest.
func NewTrace(traceID, requestID string) Trace {
	return Trace{TraceID: callerID(traceID), RequestID: callerID(requestID)}
}

func callerID(v string) string {
	if v == "" || len(v) > maxCallerID {
		return id.New().String()
	}
	for _, r := range v {
		if r < 0x21 || r > 0x7e {
			return id.New().String()
		}
	}
	return v
}

type traceKey struct{}

func WithTrace(ctx context.Context, t Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// GetTrace returns the request trace, or false outside a request.
func GetTrace(ctx context.Context) (Trace, bool) {
	t, ok := ctx.Value(traceKey{}).(Trace)
	return t, ok
}

// GetRequestID is empty outside a request.
func GetRequestID(ctx context.Context) string {
	t, _ := GetTrace(ctx)
	return t.RequestID
}

// LogFields returns the trace and actor of ctx as key/value pairs.
func LogFields(ctx context.Context) []any {
	var kv []any
	if t, ok := GetTrace(ctx); ok {
		kv = append(kv, "trace_id", t.TraceID, "request_id", t.RequestID)
	}
	if a, err := GetActor(ctx); err == nil {
		kv = append(kv, "tenant_id", a.TenantID, "user_id", a.UserID, "role", a.Role)
	}
	return kv
}
