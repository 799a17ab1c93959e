// Package observability provides structured logging, Prometheus metrics,
// health probes and graceful shutdown for the portal services.
//
// Logging is slog-backed JSON with chainable field context:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("user_id", id).Info("profile updated")
//
// Metrics cover the HTTP surface plus the authentication and authorization
// pipeline: auth outcomes, guard decisions, permission cache traffic and
// security event emission.
package observability
