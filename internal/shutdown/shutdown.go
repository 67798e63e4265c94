// Package shutdown coordinates graceful shutdown of the serve command.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmmcquay/pgnbook/internal/logging"
)

// DefaultTimeout bounds shutdown triggered by a signal.
const DefaultTimeout = 30 * time.Second

type component struct {
	name string
	fn   func(context.Context) error
}

// Manager stops registered components in reverse registration order.
type Manager struct {
	logger     logging.ContextLogger
	mu         sync.Mutex
	components []component
	once       sync.Once
	err        error
	stopping   context.Context
	stop       context.CancelFunc
	done       chan struct{}
}

// NewManager creates a new shutdown manager.
func NewManager(logger logging.ContextLogger) *Manager {
	stopping, stop := context.WithCancel(context.Background())
	return &Manager{
		logger:   logger,
		stopping: stopping,
		stop:     stop,
		done:     make(chan struct{}),
	}
}

// Register adds a component to stop during shutdown. Components registered
// last are stopped first.
func (m *Manager) Register(name string, fn func(context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{name: name, fn: fn})
}

// HandleSignals starts shutdown on SIGINT or SIGTERM.
func (m *Manager) HandleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			m.logger.Info("Received shutdown signal", "signal", sig.String())
			_ = m.Shutdown(DefaultTimeout)
		case <-m.done:
		}
		signal.Stop(sigCh)
	}()
}

// Stopping returns a context cancelled as soon as shutdown begins.
func (m *Manager) Stopping() context.Context {
	return m.stopping
}

// Shutdown stops every component within timeout. Only the first call does
// any work; later calls wait for it and return the same error.
func (m *Manager) Shutdown(timeout time.Duration) error {
	m.once.Do(func() {
		defer close(m.done)
		m.stop()
		m.logger.Info("Starting graceful shutdown", "timeout", timeout)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		m.mu.Lock()
		components := make([]component, len(m.components))
		copy(components, m.components)
		m.mu.Unlock()

		var errs []error
		for i := len(components) - 1; i >= 0; i-- {
			if ctx.Err() != nil {
				errs = append(errs, fmt.Errorf("shutdown timed out before %s", components[i].name))
				break
			}
			if err := m.stopComponent(ctx, components[i]); err != nil {
				errs = append(errs, err)
			}
		}

		m.err = errors.Join(errs...)
		if m.err != nil {
			m.logger.Error("Graceful shutdown completed with errors", "errors", len(errs))
		} else {
			m.logger.Info("Graceful shutdown completed successfully")
		}
	})
	<-m.done
	return m.err
}

func (m *Manager) stopComponent(ctx context.Context, c component) error {
	m.logger.Info("Shutting down component", "component", c.name)
	start := time.Now()

	errCh := make(chan error, 1)
	go func() { errCh <- c.fn(ctx) }()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil {
		m.logger.Error("Failed to shut down component", "component", c.name, "error", err, "elapsed", time.Since(start))
		return fmt.Errorf("%s: %w", c.name, err)
	}
	m.logger.Info("Component shutdown complete", "component", c.name, "elapsed", time.Since(start))
	return nil
}

// Done returns a channel closed when shutdown is complete.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// WaitForShutdown blocks until shutdown is complete.
func (m *Manager) WaitForShutdown() {
	<-m.done
}
