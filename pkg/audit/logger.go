package audit

import (
	"context"

	"github.com/edukit/eduguard/pkg/contextkeys"
)

// SecurityLogger is the interface every security event sink implements
type SecurityLogger interface {
	// LogSecurityEvent records one event
	LogSecurityEvent(ctx context.Context, event *SecurityEvent) error

	// Close flushes and releases the sink
	Close() error
}

// WithLogger stores a security logger in the context
func WithLogger(ctx context.Context, logger SecurityLogger) context.Context {
	return contextkeys.WithSecurityLogger(ctx, logger)
}

// FromContext returns the context's security logger, or a no-op sink
func FromContext(ctx context.Context) SecurityLogger {
	if logger, ok := ctx.Value(contextkeys.SecurityLoggerKey).(SecurityLogger); ok {
		return logger
	}
	return &nopLogger{}
}

// NewNopLogger returns a sink that drops every event
func NewNopLogger() SecurityLogger {
	return &nopLogger{}
}

type nopLogger struct{}

func (l *nopLogger) LogSecurityEvent(ctx context.Context, event *SecurityEvent) error {
	return nil
}

func (l *nopLogger) Close() error { return nil }
