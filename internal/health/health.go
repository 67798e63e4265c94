// Package health serves liveness and readiness probes for the book server.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/dmmcquay/pgnbook/internal/book"
	"github.com/dmmcquay/pgnbook/internal/logging"
)

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// ErrDegraded marks a check failure that leaves the component usable.
var ErrDegraded = errors.New("degraded")

const checkTimeout = 5 * time.Second

// Check reports the health of one component. A nil error is healthy, an
// error wrapping ErrDegraded is degraded and any other error is unhealthy.
type Check func(ctx context.Context) error

// Component is the result of one check.
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Message     string    `json:"message,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Response is the body of the health endpoints.
type Response struct {
	Status     Status      `json:"status"`
	Timestamp  time.Time   `json:"timestamp"`
	Components []Component `json:"components,omitempty"`
	Version    string      `json:"version,omitempty"`
	GitCommit  string      `json:"git_commit,omitempty"`
}

// Checker manages health checks for the application.
type Checker struct {
	logger    logging.ContextLogger
	checks    map[string]Check
	mu        sync.RWMutex
	version   string
	gitCommit string
}

// NewChecker creates a new health checker.
func NewChecker(logger logging.ContextLogger, version, gitCommit string) *Checker {
	return &Checker{
		logger:    logger,
		checks:    make(map[string]Check),
		version:   version,
		gitCommit: gitCommit,
	}
}

// RegisterCheck registers a health check for a component.
func (c *Checker) RegisterCheck(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// BookCheck reports unhealthy until a book is loaded and degraded when the
// loaded book has no moves.
func BookCheck(loaded func() *book.Tree) Check {
	return func(ctx context.Context) error {
		t := loaded()
		if t == nil {
			return errors.New("book not loaded")
		}
		if t.Size() == 0 {
			return fmt.Errorf("book is empty: %w", ErrDegraded)
		}
		return nil
	}
}

// CheckHealth runs all registered checks in parallel. Components are
// returned ordered by name.
func (c *Checker) CheckHealth(ctx context.Context) Response {
	c.mu.RLock()
	defer c.mu.RUnlock()

	response := Response{
		Status:     StatusHealthy,
		Timestamp:  time.Now().UTC(),
		Version:    c.version,
		GitCommit:  c.gitCommit,
		Components: make([]Component, 0, len(c.checks)),
	}
	if len(c.checks) == 0 {
		return response
	}

	results := make(chan Component, len(c.checks))
	var wg sync.WaitGroup
	for name, check := range c.checks {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()
			results <- c.run(ctx, name, check)
		}(name, check)
	}
	wg.Wait()
	close(results)

	for component := range results {
		response.Components = append(response.Components, component)
		switch {
		case component.Status == StatusUnhealthy:
			response.Status = StatusUnhealthy
		case component.Status == StatusDegraded && response.Status == StatusHealthy:
			response.Status = StatusDegraded
		}
	}
	sort.Slice(response.Components, func(i, j int) bool {
		return response.Components[i].Name < response.Components[j].Name
	})
	return response
}

func (c *Checker) run(ctx context.Context, name string, check Check) Component {
	component := Component{
		Name:        name,
		Status:      StatusHealthy,
		LastChecked: time.Now().UTC(),
	}

	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	if err := check(checkCtx); err != nil {
		component.Message = err.Error()
		if errors.Is(err, ErrDegraded) {
			component.Status = StatusDegraded
			c.logger.WithField("component", name).Warn("Health check degraded", "error", err)
		} else {
			component.Status = StatusUnhealthy
			c.logger.WithField("component", name).Error("Health check failed", "error", err)
		}
	}
	return component
}

// LivenessHandler returns an HTTP handler for liveness checks.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.writeJSON(w, http.StatusOK, Response{
			Status:    StatusHealthy,
			Timestamp: time.Now().UTC(),
			Version:   c.version,
			GitCommit: c.gitCommit,
		})
	}
}

// ReadinessHandler returns an HTTP handler for readiness checks. Degraded
// components still report ready.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.ContextWithCorrelationID(r.Context(), logging.GenerateCorrelationID())
		c.logger.WithContext(ctx).Debug("Performing readiness check")

		response := c.CheckHealth(ctx)
		code := http.StatusOK
		if response.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.writeJSON(w, code, response)
	}
}

func (c *Checker) writeJSON(w http.ResponseWriter, code int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		c.logger.Error("Failed to encode health response", "error", err)
	}
}
