package logger

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	size, err := w.ResponseWriter.Write(b)
	w.size += size
	return size, err
}

// HTTPMiddleware creates a logging middleware for HTTP requests
func HTTPMiddleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqLogger := logger.zap.WithHTTPRequest(r)
			if id := w.Header().Get("X-Request-ID"); id != "" {
				reqLogger = wrapZap(reqLogger.With(zap.String("request_id", id)))
			}
			reqLogger.Debug("Request received")

			wrapped := &responseWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			respLogger := reqLogger.WithDuration(duration).With(
				zap.Int("status", wrapped.status),
				zap.Int("size", wrapped.size),
			)

			switch {
			case wrapped.status >= 500:
				respLogger.Error("Request failed with server error")
			case wrapped.status >= 400:
				respLogger.Warn("Request failed with client error")
			default:
				respLogger.Info("Request completed")
			}
		})
	}
}
