package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmmcquay/pgnbook/internal/logging"
	"github.com/dmmcquay/pgnbook/internal/metrics"
	"github.com/dmmcquay/pgnbook/internal/ratelimit"
	"github.com/mark3labs/mcp-go/mcp"
)

// Middleware wraps MCP tool handlers with request IDs, rate limiting,
// metrics and logging.
type Middleware struct {
	logger      logging.ContextLogger
	metrics     *metrics.Collector
	prometheus  *metrics.PrometheusCollector
	rateLimiter *ratelimit.Limiter
}

// NewMiddleware creates a new middleware instance. prometheus and
// rateLimiter may be nil.
func NewMiddleware(logger logging.ContextLogger, collector *metrics.Collector, prometheus *metrics.PrometheusCollector, rateLimiter *ratelimit.Limiter) *Middleware {
	return &Middleware{
		logger:      logger,
		metrics:     collector,
		prometheus:  prometheus,
		rateLimiter: rateLimiter,
	}
}

// ToolHandler is the function signature for MCP tool handlers.
type ToolHandler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// WrapTool wraps a tool handler with middleware functionality.
func (m *Middleware) WrapTool(toolName string, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		if _, ok := logging.RequestIDFromContext(ctx); !ok {
			ctx = logging.ContextWithRequestID(ctx, logging.GenerateRequestID())
		}
		logger := m.logger.WithContext(ctx).WithField("tool", toolName)

		logger.Debug("Tool request received", "arguments", request.Params.Arguments)

		if err := m.rateLimiter.Allow(toolName); err != nil {
			logger.Warn("Tool request rejected", "error", err)
			m.record(toolName, "rate_limited", time.Since(start))
			if m.prometheus != nil {
				m.prometheus.RecordRateLimit(toolName, true)
			}
			return nil, fmt.Errorf("tool %s: %w", toolName, err)
		}
		if m.prometheus != nil && m.rateLimiter != nil {
			m.prometheus.RecordRateLimit(toolName, false)
		}

		result, err := handler(ctx, request)

		elapsed := time.Since(start)
		status := "success"
		switch {
		case err != nil:
			status = "error"
			logger.Error("Tool request failed", "error", err, "duration", elapsed)
		case result != nil && result.IsError:
			status = "error"
			logger.Warn("Tool returned an error result", "duration", elapsed)
		default:
			logger.Info("Tool request completed", "duration", elapsed)
		}
		m.record(toolName, status, elapsed)
		return result, err
	}
}

func (m *Middleware) record(toolName, status string, elapsed time.Duration) {
	if m.metrics != nil {
		m.metrics.RecordToolCall(toolName, status, elapsed)
	}
	if m.prometheus != nil {
		m.prometheus.RecordToolCall(toolName, status, elapsed.Seconds())
	}
}

// IsRateLimited reports whether err came from the rate limiter.
func IsRateLimited(err error) bool {
	return errors.Is(err, ratelimit.ErrRateLimited)
}
