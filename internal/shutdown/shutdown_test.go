package shutdown

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmmcquay/pgnbook/internal/logging"
)

func TestShutdownManager(t *testing.T) {
	logger, _ := logging.NewLoggerFromConfig(&logging.Config{
		Level:   "debug",
		Format:  logging.FormatJSON,
		Service: "test",
		Version: "1.0.0",
		Output:  &bytes.Buffer{},
	})

	t.Run("components stopped in reverse order", func(t *testing.T) {
		manager := NewManager(logger)
		var mu sync.Mutex
		var order []string

		for i := 0; i < 3; i++ {
			name := fmt.Sprintf("component-%d", i)
			manager.Register(name, func(ctx context.Context) error {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				return nil
			})
		}

		if err := manager.Shutdown(5 * time.Second); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		want := []string{"component-2", "component-1", "component-0"}
		if fmt.Sprint(order) != fmt.Sprint(want) {
			t.Errorf("Expected order %v, got %v", want, order)
		}
	})

	t.Run("shutdown with errors", func(t *testing.T) {
		manager := NewManager(logger)
		errExpected := errors.New("flush failed")

		manager.Register("failing-component", func(ctx context.Context) error {
			return errExpected
		})
		var called atomic.Bool
		manager.Register("successful-component", func(ctx context.Context) error {
			called.Store(true)
			return nil
		})

		err := manager.Shutdown(5 * time.Second)
		if !errors.Is(err, errExpected) {
			t.Errorf("Expected joined error to contain %v, got %v", errExpected, err)
		}
		if !called.Load() {
			t.Error("Expected remaining components to be stopped after an error")
		}
	})

	t.Run("shutdown timeout", func(t *testing.T) {
		manager := NewManager(logger)
		manager.Register("slow-component", func(ctx context.Context) error {
			time.Sleep(2 * time.Second)
			return nil
		})

		start := time.Now()
		err := manager.Shutdown(100 * time.Millisecond)
		elapsed := time.Since(start)

		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Expected deadline exceeded, got %v", err)
		}
		if elapsed > 500*time.Millisecond {
			t.Errorf("Shutdown took too long: %v", elapsed)
		}
	})

	t.Run("concurrent shutdown calls", func(t *testing.T) {
		manager := NewManager(logger)
		var counter atomic.Int32
		manager.Register("component", func(ctx context.Context) error {
			counter.Add(1)
			time.Sleep(50 * time.Millisecond)
			return nil
		})

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = manager.Shutdown(5 * time.Second)
			}()
		}
		wg.Wait()

		if counter.Load() != 1 {
			t.Errorf("Expected shutdown function to be called once, got %d", counter.Load())
		}
	})

	t.Run("stopping context and done channel", func(t *testing.T) {
		manager := NewManager(logger)

		select {
		case <-manager.Done():
			t.Error("Done channel closed before shutdown")
		case <-manager.Stopping().Done():
			t.Error("Stopping context cancelled before shutdown")
		default:
		}

		_ = manager.Shutdown(time.Second)

		select {
		case <-manager.Done():
		case <-time.After(time.Second):
			t.Error("Done channel not closed after shutdown")
		}
		if manager.Stopping().Err() == nil {
			t.Error("Expected stopping context to be cancelled")
		}
	})
}
