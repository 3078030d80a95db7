// Package middleware contains HTTP middleware for the API surface.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/yy0691/AI-Videos-Play/internal/api/shared"
)

// Trace adds a trace ID to the request context and logs the incoming
// request. Apply it early so every handler and error response carries
// the id.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())

		slog.Debug("request started",
			slog.String("trace_id", shared.GetTraceID(ctx)),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
