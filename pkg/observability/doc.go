// Package observability provides structured logging, Prometheus metrics,
// health checks, and graceful shutdown for the back-office services.
//
// Logging uses stdlib log/slog with a JSON handler. Metrics are registered
// against a caller-supplied prometheus.Registry so tests can use isolated
// registries. Health checks cover the transactional store and Redis; Redis
// is optional and only degrades readiness when it is down.
package observability
