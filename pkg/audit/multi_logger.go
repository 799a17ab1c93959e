package audit

import (
	"context"
	"fmt"
	"sync"
)

// MultiLogger fans events out to several sinks. By default writes are
// asynchronous; a failing sink never blocks the others.
type MultiLogger struct {
	loggers []SecurityLogger
	async   bool
	wg      sync.WaitGroup
	errChan chan error
}

// NewMultiLogger creates an async fan-out over the given sinks
func NewMultiLogger(loggers ...SecurityLogger) *MultiLogger {
	return &MultiLogger{
		loggers: loggers,
		async:   true,
		errChan: make(chan error, len(loggers)*4),
	}
}

// SetAsync toggles asynchronous fan-out
func (m *MultiLogger) SetAsync(async bool) {
	m.async = async
}

// LogSecurityEvent writes the event to every sink
func (m *MultiLogger) LogSecurityEvent(ctx context.Context, event *SecurityEvent) error {
	if len(m.loggers) == 0 {
		return nil
	}
	if m.async {
		return m.logAsync(ctx, event)
	}
	return m.logSync(ctx, event)
}

func (m *MultiLogger) logSync(ctx context.Context, event *SecurityEvent) error {
	var firstErr error
	for _, logger := range m.loggers {
		if err := logger.LogSecurityEvent(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *MultiLogger) logAsync(ctx context.Context, event *SecurityEvent) error {
	for _, logger := range m.loggers {
		m.wg.Add(1)
		go func(l SecurityLogger) {
			defer m.wg.Done()
			if err := l.LogSecurityEvent(ctx, event); err != nil {
				select {
				case m.errChan <- err:
				default:
				}
			}
		}(logger)
	}
	return nil
}

// Wait blocks until pending async writes finish
func (m *MultiLogger) Wait() {
	m.wg.Wait()
}

// Errors drains accumulated sink failures
func (m *MultiLogger) Errors() []error {
	var errors []error
	for {
		select {
		case err := <-m.errChan:
			errors = append(errors, err)
		default:
			return errors
		}
	}
}

// Close waits for pending writes and closes every sink
func (m *MultiLogger) Close() error {
	m.wg.Wait()

	var firstErr error
	for _, logger := range m.loggers {
		if err := logger.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close sink: %w", err)
		}
	}
	return firstErr
}
