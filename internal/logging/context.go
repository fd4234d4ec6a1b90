package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"github.com/rs/zerolog"
)

type contextKey string

const loggerKey contextKey = "logger"

// GenerateTraceID generates a new trace ID
func GenerateTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// NewContext stores the logger in the context.
func NewContext(ctx context.Context, log zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext retrieves the request-scoped logger. Falls back to a no-op
// logger so call sites never need a nil check.
func FromContext(ctx context.Context) zerolog.Logger {
	if l, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return l
	}
	return zerolog.Nop()
}

// WithTrace derives a request logger carrying a fresh trace ID and stores it
// in the context.
func WithTrace(ctx context.Context, log zerolog.Logger) (context.Context, zerolog.Logger) {
	l := log.With().Str("trace_id", GenerateTraceID()).Logger()
	return NewContext(ctx, l), l
}
