package ctxutil

import "context"

type traceDataKey struct{}

// TraceData identifies one request end-to-end: the HTTP middleware
// stamps it, handlers thread it through context, and the operation
// log records TraceID so a workflow stage, dispatch attempt, or FSM
// transition can be tied back to the request that caused it.
type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// TraceID returns the context's trace id, or "" outside a traced
// request (background tickers, tests).
func TraceID(ctx context.Context) string {
	if td := GetTraceData(ctx); td != nil {
		return td.TraceID
	}
	return ""
}
