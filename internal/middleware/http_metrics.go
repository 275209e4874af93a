// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// normalizePath maps request paths onto a fixed set of route labels to
// prevent cardinality explosion in metrics. All current routes are static,
// so anything unknown collapses into a single bucket.
func normalizePath(path string) string {
	staticRoutes := map[string]bool{
		"/":                  true,
		"/waitlist/join":     true,
		"/deposits/checkout": true,
		"/deposits/status":   true,
		"/internal/stripe":   true,
		"/contact":           true,
		"/health":            true,
		"/ready":             true,
		"/metrics":           true,
	}

	if staticRoutes[path] {
		return path
	}

	return "/unknown"
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

// WriteHeader captures the status code before writing it.
func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// setContext forwards a carried context through to the wrapped writer so that
// error codes and operator attrs still reach the logging middleware when
// metrics collection sits between them in the chain.
func (mrw *metricsResponseWriter) setContext(ctx context.Context) {
	UpdateResponseContext(mrw.ResponseWriter, ctx)
}

// newMetricsResponseWriter creates a new metricsResponseWriter with default 200 status.
func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// HTTPMetrics is a middleware that records HTTP request metrics.
// It captures duration, response size, and request counts.
// Health check endpoints (/health, /ready) are excluded from metrics.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			mrw := newMetricsResponseWriter(w)

			next.ServeHTTP(mrw, r)

			duration := time.Since(start).Seconds()
			normalizedPath := normalizePath(r.URL.Path)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizedPath,
				strconv.Itoa(mrw.statusCode),
				duration,
				mrw.size,
			)
		})
	}
}
