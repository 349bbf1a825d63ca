// Package logger provides the key/value logging function used across the
// foundation packages and programs.
package logger

import (
	"context"
	"io"
	"log/slog"
)

// Logger represents a function that logs a message with key/value pairs.
type Logger func(ctx context.Context, msg string, args ...any)

// Noop is a logger that discards everything.
var Noop Logger = func(ctx context.Context, msg string, args ...any) {}

// New constructs a logger that writes text lines to w. Every line carries the
// service name and, when present in the context, the trace id.
func New(w io.Writer, service string) Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	log := slog.New(h).With("service", service)

	return func(ctx context.Context, msg string, args ...any) {
		if traceID := GetTraceID(ctx); traceID != "" {
			args = append(args, "trace_id", traceID)
		}

		log.InfoContext(ctx, msg, args...)
	}
}

// =============================================================================

type ctxKey int

const traceIDKey ctxKey = 1

// SetTraceID stores the trace id in the context.
func SetTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// GetTraceID returns the trace id from the context or an empty string.
func GetTraceID(ctx context.Context) string {
	v, ok := ctx.Value(traceIDKey).(string)
	if !ok {
		return ""
	}

	return v
}
