// Package middleware holds the chi middleware chain shared by every route:
// request correlation, client metadata, access logging, metrics and panic
// recovery.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"tavola/internal/platform/metrics"
	dErrors "tavola/pkg/domain-errors"
	"tavola/pkg/platform/httputil"
	"tavola/pkg/platform/middleware/metadata"
	"tavola/pkg/requestcontext"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

// RequestID reuses an inbound X-Request-ID or mints one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logger emits one structured access log line per request and records
// request metrics against the matched route pattern.
func Logger(logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			m.ObserveRequest(route, r.Method, status, elapsed.Seconds())

			logger.InfoContext(r.Context(), "http request",
				"request_id", requestcontext.RequestID(r.Context()),
				"method", r.Method,
				"route", route,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", elapsed.Milliseconds(),
				"client_ip", requestcontext.ClientIP(r.Context()),
			)
		})
	}
}

// Recover turns a handler panic into a 500 response.
func Recover(logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					m.IncrementPanics()
					logger.ErrorContext(r.Context(), "handler panic",
						"request_id", requestcontext.RequestID(r.Context()),
						"panic", rec,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Common returns the standard chain in application order.
func Common(logger *slog.Logger, m *metrics.Metrics) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		RequestID,
		metadata.ClientMetadata,
		Logger(logger, m),
		Recover(logger, m),
	}
}
