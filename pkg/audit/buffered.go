package audit

import (
	"context"
	"time"

	"github.com/edukit/eduguard/pkg/async"
)

// BufferedLogger decouples event emission from sink latency by pushing
// writes through a bounded worker pool. When the pool is saturated or
// shut down the event is dropped rather than blocking the caller.
type BufferedLogger struct {
	sink SecurityLogger
	pool *async.WorkerPool
}

// NewBufferedLogger wraps a sink with workers goroutines, each write
// capped at writeTimeout.
func NewBufferedLogger(sink SecurityLogger, workers int, writeTimeout time.Duration) *BufferedLogger {
	if workers <= 0 {
		workers = 2
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &BufferedLogger{
		sink: sink,
		pool: async.NewWorkerPool(context.Background(), workers, "security event writer", writeTimeout),
	}
}

// LogSecurityEvent queues the event for background writing
func (b *BufferedLogger) LogSecurityEvent(ctx context.Context, event *SecurityEvent) error {
	return b.pool.Submit(func(ctx context.Context) error {
		return b.sink.LogSecurityEvent(ctx, event)
	})
}

// Errors exposes background write failures
func (b *BufferedLogger) Errors() <-chan error {
	return b.pool.Errors()
}

// Close drains queued events and closes the underlying sink
func (b *BufferedLogger) Close() error {
	poolErr := b.pool.Shutdown(10 * time.Second)
	if err := b.sink.Close(); err != nil {
		return err
	}
	return poolErr
}
