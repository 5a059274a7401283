package middleware

import (
	"log/slog"
	"net/http"

	"github.com/qaforge/qaforge/internal/api/shared"
)

// NewTraceMiddleware returns a middleware that stamps each request context
// with a fresh trace ID and logs the request start through the injected
// logger. It should sit early in the chain so every downstream handler and
// store call can carry the ID.
func NewTraceMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())

			logger.Debug("request started",
				slog.String("trace_id", shared.GetTraceID(ctx)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
