// Package middleware holds request-throttling middleware used in front
// of the authorization guard. Authentication endpoints are limited per
// client IP to slow credential stuffing; authorized API traffic is
// limited per user. A Redis-backed limiter shares counters across
// instances and fails open when Redis is down, so throttling never
// becomes an outage.
package middleware
