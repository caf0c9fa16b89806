package search

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ContextKey string

const RequestIDKey ContextKey = "request_id"

// WithRequestID attaches id to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID returns the request id carried by ctx, or "".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// ensureRequestID returns ctx unchanged if it already carries an id,
// otherwise a child context with a fresh one.
func ensureRequestID(ctx context.Context) (context.Context, string) {
	if id := GetRequestID(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithRequestID(ctx, id), id
}

// GetContextLogger returns baseLogger with the request id from ctx attached.
func GetContextLogger(ctx context.Context, baseLogger *zap.Logger) *zap.Logger {
	if id := GetRequestID(ctx); id != "" {
		return baseLogger.With(zap.String("request_id", id))
	}
	return baseLogger
}
