package logger

import (
	"context"
	"log/slog"
)

// contextKey is an unexported key type to avoid collisions with other
// packages' context values.
type contextKey struct{}

var loggerKey contextKey

// WithLogger returns a context carrying the given logger. Middleware attaches
// a request-scoped logger (with trace ID attributes) so downstream layers log
// with correlation fields attached.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger carried by the context, or slog.Default()
// if none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// FromContextOrDefault returns the context's logger if present, otherwise the
// provided fallback (or slog.Default() when the fallback is nil).
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
