package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/backoffice/pkg/contextkeys"
	"github.com/platinummonkey/backoffice/pkg/observability"
)

// RequestIDHeader carries the correlation ID in and out of the service
const RequestIDHeader = "X-Request-Id"

// RequestLogger assigns each request a correlation ID, scopes a logger to
// it on the context, and logs one line per completed request. Metrics are
// handled separately by observability.HTTPMetricsMiddleware.
type RequestLogger struct {
	logger *observability.Logger
}

// NewRequestLogger creates the logging middleware
func NewRequestLogger(logger *observability.Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

// Handler wraps an HTTP handler with request ID assignment and logging.
// An inbound X-Request-Id is propagated; otherwise a UUID is assigned.
func (m *RequestLogger) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		reqLogger := m.logger.WithFields(map[string]interface{}{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
		})

		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		ctx = contextkeys.WithLogger(ctx, reqLogger)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r.WithContext(ctx))

		reqLogger.WithFields(map[string]interface{}{
			"status":      recorder.status,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("request completed")
	})
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
