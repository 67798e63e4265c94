package health

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmmcquay/pgnbook/internal/book"
	"github.com/dmmcquay/pgnbook/internal/logging"
)

func newTestChecker() *Checker {
	logger := logging.NewLoggerAdapter(logging.NewLoggerWithWriter(&bytes.Buffer{}, "test", "debug"))
	return NewChecker(logger, "1.0.0", "abc123")
}

func TestNewChecker(t *testing.T) {
	checker := newTestChecker()

	if checker.version != "1.0.0" {
		t.Errorf("Expected version 1.0.0, got %s", checker.version)
	}
	if checker.gitCommit != "abc123" {
		t.Errorf("Expected git commit abc123, got %s", checker.gitCommit)
	}
}

func TestCheckHealth(t *testing.T) {
	tests := []struct {
		name           string
		checks         map[string]error
		expectedStatus Status
	}{
		{
			name:           "no checks",
			checks:         map[string]error{},
			expectedStatus: StatusHealthy,
		},
		{
			name:           "all healthy",
			checks:         map[string]error{"book": nil, "cache": nil},
			expectedStatus: StatusHealthy,
		},
		{
			name:           "one degraded",
			checks:         map[string]error{"book": fmt.Errorf("empty: %w", ErrDegraded), "cache": nil},
			expectedStatus: StatusDegraded,
		},
		{
			name: "unhealthy wins over degraded",
			checks: map[string]error{
				"book":  errors.New("book not loaded"),
				"cache": fmt.Errorf("cold: %w", ErrDegraded),
			},
			expectedStatus: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := newTestChecker()
			for name, err := range tt.checks {
				checkErr := err
				checker.RegisterCheck(name, func(ctx context.Context) error {
					return checkErr
				})
			}

			response := checker.CheckHealth(context.Background())

			if response.Status != tt.expectedStatus {
				t.Errorf("Expected status %s, got %s", tt.expectedStatus, response.Status)
			}
			if len(response.Components) != len(tt.checks) {
				t.Fatalf("Expected %d components, got %d", len(tt.checks), len(response.Components))
			}
			for i := 1; i < len(response.Components); i++ {
				if response.Components[i-1].Name > response.Components[i].Name {
					t.Errorf("Components not sorted: %v", response.Components)
				}
			}
			for _, comp := range response.Components {
				err := tt.checks[comp.Name]
				want := StatusHealthy
				switch {
				case errors.Is(err, ErrDegraded):
					want = StatusDegraded
				case err != nil:
					want = StatusUnhealthy
				}
				if comp.Status != want {
					t.Errorf("Component %s: expected %s, got %s", comp.Name, want, comp.Status)
				}
			}
		})
	}
}

func TestBookCheck(t *testing.T) {
	var loaded *book.Tree
	check := BookCheck(func() *book.Tree { return loaded })

	if err := check(context.Background()); err == nil {
		t.Error("Expected error before the book is loaded")
	}

	loaded = book.NewTree()
	if err := check(context.Background()); !errors.Is(err, ErrDegraded) {
		t.Errorf("Expected degraded for empty book, got %v", err)
	}

	loaded.Insert([]string{"e4", "e5"})
	if err := check(context.Background()); err != nil {
		t.Errorf("Expected healthy book, got %v", err)
	}
}

func TestCheckHealthTimeout(t *testing.T) {
	checker := newTestChecker()
	checker.RegisterCheck("slow", func(ctx context.Context) error {
		select {
		case <-time.After(10 * time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	response := checker.CheckHealth(ctx)
	if elapsed := time.Since(start); elapsed > 6*time.Second {
		t.Errorf("Check took too long: %v", elapsed)
	}

	if len(response.Components) != 1 {
		t.Fatalf("Expected 1 component, got %d", len(response.Components))
	}
	if response.Components[0].Status != StatusUnhealthy {
		t.Error("Expected component to be unhealthy due to timeout")
	}
}

func TestLivenessHandler(t *testing.T) {
	checker := newTestChecker()
	checker.RegisterCheck("book", func(ctx context.Context) error {
		return errors.New("not loaded")
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	checker.LivenessHandler()(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}

	var response Response
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Status != StatusHealthy {
		t.Errorf("Expected healthy status, got %s", response.Status)
	}
	if response.Version != "1.0.0" || response.GitCommit != "abc123" {
		t.Errorf("Unexpected build info: %s %s", response.Version, response.GitCommit)
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name         string
		check        error
		expectedCode int
	}{
		{"healthy", nil, http.StatusOK},
		{"degraded", fmt.Errorf("empty: %w", ErrDegraded), http.StatusOK},
		{"unhealthy", errors.New("not loaded"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := newTestChecker()
			checkErr := tt.check
			checker.RegisterCheck("book", func(ctx context.Context) error {
				return checkErr
			})

			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			rec := httptest.NewRecorder()
			checker.ReadinessHandler()(rec, req)

			if rec.Code != tt.expectedCode {
				t.Errorf("Expected status %d, got %d", tt.expectedCode, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Expected JSON content type, got %q", ct)
			}
		})
	}
}

func TestConcurrentHealthChecks(t *testing.T) {
	checker := newTestChecker()
	for i := 0; i < 5; i++ {
		checker.RegisterCheck(string(rune('a'+i)), func(ctx context.Context) error {
			time.Sleep(10 * time.Millisecond)
			return nil
		})
	}

	start := time.Now()
	response := checker.CheckHealth(context.Background())
	// Sequential execution would take 50ms.
	if elapsed := time.Since(start); elapsed > 45*time.Millisecond {
		t.Errorf("Checks took too long, might not be parallel: %v", elapsed)
	}
	if response.Status != StatusHealthy {
		t.Errorf("Expected healthy status, got %s", response.Status)
	}
}
