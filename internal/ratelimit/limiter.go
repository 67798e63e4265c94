package ratelimit

import (
	"errors"
	"fmt"

	"github.com/dmmcquay/pgnbook/internal/config"
	"github.com/dmmcquay/pgnbook/internal/logging"
)

// ErrRateLimited is returned when a tool call exceeds a limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// Limiter applies a global bucket plus optional per-tool buckets. A nil
// Limiter allows everything.
type Limiter struct {
	logger      logging.ContextLogger
	config      *config.RateLimitConfig
	global      *TokenBucket
	toolBuckets map[string]*TokenBucket
}

// NewLimiter creates a limiter from cfg, or returns nil when rate limiting
// is disabled.
func NewLimiter(cfg *config.RateLimitConfig, logger logging.ContextLogger) *Limiter {
	if cfg == nil || !cfg.Enabled || cfg.RequestsPerMin < 1 {
		return nil
	}

	l := &Limiter{
		logger:      logger,
		config:      cfg,
		global:      NewTokenBucket(max(cfg.BurstSize, 1), float64(cfg.RequestsPerMin)/60.0),
		toolBuckets: make(map[string]*TokenBucket, len(cfg.PerToolLimits)),
	}

	for tool, limit := range cfg.PerToolLimits {
		if limit < 1 {
			continue
		}
		// Tool bursts keep the global burst ratio.
		burst := max(cfg.BurstSize*limit/cfg.RequestsPerMin, 1)
		l.toolBuckets[tool] = NewTokenBucket(burst, float64(limit)/60.0)
	}
	return l
}

// Allow reports whether a call to tool may proceed. The returned error wraps
// ErrRateLimited and names the limit that was hit.
func (l *Limiter) Allow(tool string) error {
	if l == nil {
		return nil
	}

	if !l.global.Allow(1) {
		l.logger.Warn("Global rate limit exceeded", "tool", tool)
		return fmt.Errorf("global: %w", ErrRateLimited)
	}

	if bucket, ok := l.toolBuckets[tool]; ok && !bucket.Allow(1) {
		l.global.Refund(1)
		l.logger.Warn("Tool rate limit exceeded", "tool", tool)
		return fmt.Errorf("tool %s: %w", tool, ErrRateLimited)
	}
	return nil
}

// Reset refills every bucket.
func (l *Limiter) Reset() {
	if l == nil {
		return
	}
	l.global.Reset()
	for _, bucket := range l.toolBuckets {
		bucket.Reset()
	}
}

// Status describes the limiter for monitoring.
type Status struct {
	Enabled        bool               `json:"enabled"`
	RequestsPerMin int                `json:"requestsPerMin,omitempty"`
	BurstSize      int                `json:"burstSize,omitempty"`
	GlobalTokens   float64            `json:"globalTokens,omitempty"`
	ToolTokens     map[string]float64 `json:"toolTokens,omitempty"`
}

// Status returns the current limiter state.
func (l *Limiter) Status() Status {
	if l == nil {
		return Status{}
	}

	s := Status{
		Enabled:        true,
		RequestsPerMin: l.config.RequestsPerMin,
		BurstSize:      l.config.BurstSize,
		GlobalTokens:   l.global.Tokens(),
		ToolTokens:     make(map[string]float64, len(l.toolBuckets)),
	}
	for tool, bucket := range l.toolBuckets {
		s.ToolTokens[tool] = bucket.Tokens()
	}
	return s
}
