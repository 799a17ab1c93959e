// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined
// here. This prevents typos, documents dependencies, and makes key usage
// discoverable.
//
// USAGE PATTERN:
//   import "github.com/edukit/eduguard/pkg/contextkeys"
//   ctx = contextkeys.WithUser(ctx, user)
//   user, ok := ctx.Value(contextkeys.UserKey).(*rbac.User)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// UserKey contains the authenticated user
	// Set by: guard middleware after successful authentication
	// Required by: protected API handlers, the view binding layer
	// Type: *rbac.User
	UserKey Key = "user"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: logger, security event trail
	// Type: string
	RequestIDKey Key = "request_id"

	// UserIDKey contains the authenticated user's ID
	// Set by: guard middleware after authentication
	// Used by: logger, security event trail
	// Type: string
	UserIDKey Key = "user_id"

	// SecurityLoggerKey contains the security event logger
	// Set by: audit middleware
	// Used by: handlers that record their own security events
	// Type: audit.SecurityLogger
	SecurityLoggerKey Key = "security_logger"
)

// Helper functions for type-safe context operations

// WithUser adds the authenticated user to the context
func WithUser(ctx context.Context, user interface{}) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// WithRequestID adds the request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds the user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithSecurityLogger adds the security event logger to the context
func WithSecurityLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, SecurityLoggerKey, logger)
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetUserID retrieves the user ID from the context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}
