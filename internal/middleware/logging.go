package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// operatorKey is the context key for the authenticated operator subject.
type operatorKey struct{}

// errorCodeKey is the context key for error code.
type errorCodeKey struct{}

// SetOperator stores the authenticated operator subject in the context.
// This is called by the operator auth middleware after validating the token.
func SetOperator(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, operatorKey{}, subject)
}

// GetOperator retrieves the operator subject from context. Returns empty string if not present.
func GetOperator(ctx context.Context) string {
	if subject, ok := ctx.Value(operatorKey{}).(string); ok {
		return subject
	}
	return ""
}

// SetErrorCode stores an error code in the context.
// Handlers call this when returning error responses so the logging
// middleware can include the code in the access log.
func SetErrorCode(ctx context.Context, code string) context.Context {
	return context.WithValue(ctx, errorCodeKey{}, code)
}

// GetErrorCode retrieves the error code from context. Returns empty string if not present.
func GetErrorCode(ctx context.Context) string {
	if code, ok := ctx.Value(errorCodeKey{}).(string); ok {
		return code
	}
	return ""
}

// contextCarrier is implemented by response writers that can carry an
// updated request context back to outer middleware.
type contextCarrier interface {
	setContext(ctx context.Context)
}

// UpdateResponseContext propagates an updated context (e.g. one carrying an
// error code) to the logging middleware's response writer, if present.
func UpdateResponseContext(w http.ResponseWriter, ctx context.Context) {
	if c, ok := w.(contextCarrier); ok {
		c.setContext(ctx)
	}
}

// responseWriter wraps http.ResponseWriter to capture status code and response size.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int
	wroteHeader bool
	ctx         context.Context
}

// WriteHeader captures the status code before writing it.
// Only the first call sets the status code; subsequent calls are ignored
// to match http.ResponseWriter behavior where only the first status is sent.
func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func (rw *responseWriter) setContext(ctx context.Context) {
	rw.ctx = ctx
}

// newResponseWriter creates a new responseWriter with default 200 status.
func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// NewLogger creates an slog.Logger based on the environment.
// In production (env == "production"), it returns a JSON handler.
// Otherwise, it returns a text handler for development.
func NewLogger(env string) *slog.Logger {
	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}
	return slog.New(handler)
}

// Logging is a middleware that logs HTTP requests with structured fields.
// It captures: method, path, status, latency (ms), request ID, operator
// subject (if present), response size, and error_code (for error responses).
//
// Note: If a handler panics, the log entry will not be written. To ensure
// logging even on panics, place a recovery middleware outside of this one.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			latency := time.Since(start).Milliseconds()

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rw.statusCode),
				slog.Int64("latency_ms", latency),
				slog.Int("size", rw.size),
			}

			if requestID := GetRequestID(r.Context()); requestID != "" {
				attrs = append(attrs, slog.String("request_id", requestID))
			}

			if traceID := GetTraceID(r); traceID != "" {
				attrs = append(attrs, slog.String("trace_id", traceID))
			}

			// Inner middleware may have stored an updated context on the writer
			ctx := r.Context()
			if rw.ctx != nil {
				ctx = rw.ctx
			}

			if operator := GetOperator(ctx); operator != "" {
				attrs = append(attrs, slog.String("operator", operator))
			}

			if rw.statusCode >= 400 {
				if errorCode := GetErrorCode(ctx); errorCode != "" {
					attrs = append(attrs, slog.String("error_code", errorCode))
				}
			}

			if rw.statusCode >= 500 {
				logger.LogAttrs(r.Context(), slog.LevelError, "request completed", attrs...)
			} else if rw.statusCode >= 400 {
				logger.LogAttrs(r.Context(), slog.LevelWarn, "request completed", attrs...)
			} else {
				logger.LogAttrs(r.Context(), slog.LevelInfo, "request completed", attrs...)
			}
		})
	}
}
