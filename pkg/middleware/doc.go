// Package middleware provides the HTTP middleware chain for the API server.
//
// # Components
//
// Identity: maps reverse-proxy-injected identity headers to an auth.Actor
// on the request context. The engine never issues or validates tokens; it
// trusts the fronting proxy to have authenticated the caller.
//
//	router.Use(middleware.Identity)
//
// RequestLogger: assigns a request ID (or propagates an inbound
// X-Request-ID), places the ID and a field-scoped logger on the context,
// and logs method, path, status, and duration per request.
//
//	router.Use(middleware.NewRequestLogger(logger, metrics).Handler)
//
// RateLimitMiddleware / DistributedRateLimitMiddleware: token-bucket rate
// limiting keyed by actor (or client IP for unidentified requests). The
// distributed variant shares counters across instances through Redis and
// fails open on Redis errors.
//
// # Default Limits
//
// Unidentified: 100 req/min, 10 burst
// Per-actor: 1000 req/min, 50 burst
// Super-admin: 5000 req/min, 100 burst
package middleware
