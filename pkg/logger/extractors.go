package logger

import (
	"context"
	"log/slog"
)

type ctxKey int

const dispatchIDKey ctxKey = iota

// WithDispatchID stores a per-request dispatch id in ctx.
func WithDispatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, dispatchIDKey, id)
}

// DispatchIDExtractor adds the "dispatch_id" attribute set by WithDispatchID.
func DispatchIDExtractor() ContextExtractor {
	return ValueExtractor(dispatchIDKey, "dispatch_id")
}

// ValueExtractor adds attr from any string value stored under key,
// e.g. the request id placed in context by router middleware.
func ValueExtractor(key any, attr string) ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		v, ok := ctx.Value(key).(string)
		if !ok || v == "" {
			return slog.Attr{}, false
		}
		return slog.String(attr, v), true
	}
}
