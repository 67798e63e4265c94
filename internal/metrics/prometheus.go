package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prometheusOnce     sync.Once
	prometheusInstance *PrometheusCollector
)

// PrometheusCollector provides Prometheus metrics for book building and lookups.
type PrometheusCollector struct {
	// Ingestion metrics
	sourcesTotal       *prometheus.CounterVec
	sourceDurationSecs prometheus.Histogram
	gamesTotal         prometheus.Counter
	malformedTotal     prometheus.Counter
	nodesPrunedTotal   prometheus.Counter
	treeNodes          prometheus.Gauge

	// MCP tool metrics
	toolCallsTotal   *prometheus.CounterVec
	toolErrorsTotal  *prometheus.CounterVec
	toolDurationSecs *prometheus.HistogramVec

	// Rate limit metrics
	rateLimitHitsTotal   *prometheus.CounterVec
	rateLimitChecksTotal prometheus.Counter

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Cache metrics
	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter
	cacheSize        prometheus.Gauge
	cacheItems       prometheus.Gauge
}

// NewPrometheusCollector returns the process-wide collector, registering it
// on first use.
func NewPrometheusCollector() *PrometheusCollector {
	prometheusOnce.Do(func() {
		prometheusInstance = &PrometheusCollector{
			sourcesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pgnbook_sources_total",
					Help: "Total number of corpus sources processed",
				},
				[]string{"status"},
			),
			sourceDurationSecs: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "pgnbook_source_duration_seconds",
					Help:    "Time spent ingesting one corpus source",
					Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
				},
			),
			gamesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pgnbook_games_ingested_total",
					Help: "Total number of games inserted into the move tree",
				},
			),
			malformedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pgnbook_malformed_games_total",
					Help: "Total number of games with malformed move text",
				},
			),
			nodesPrunedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pgnbook_nodes_pruned_total",
					Help: "Total number of move tree nodes removed by pruning",
				},
			),
			treeNodes: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "pgnbook_tree_nodes",
					Help: "Current number of nodes in the move tree",
				},
			),

			toolCallsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pgnbook_mcp_tool_calls_total",
					Help: "Total number of MCP tool calls",
				},
				[]string{"tool", "status"},
			),
			toolErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pgnbook_mcp_tool_errors_total",
					Help: "Total number of MCP tool errors",
				},
				[]string{"tool"},
			),
			toolDurationSecs: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "pgnbook_mcp_tool_duration_seconds",
					Help:    "Duration of MCP tool calls in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),

			rateLimitHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pgnbook_mcp_rate_limit_hits_total",
					Help: "Total number of rate limit hits",
				},
				[]string{"tool"},
			),
			rateLimitChecksTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pgnbook_mcp_rate_limit_checks_total",
					Help: "Total number of rate limit checks",
				},
			),

			httpRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pgnbook_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			httpRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "pgnbook_http_request_duration_seconds",
					Help:    "Duration of HTTP requests in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "path"},
			),

			cacheHitsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pgnbook_cache_hits_total",
					Help: "Total number of lookup cache hits",
				},
			),
			cacheMissesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pgnbook_cache_misses_total",
					Help: "Total number of lookup cache misses",
				},
			),
			cacheSize: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "pgnbook_cache_size_bytes",
					Help: "Current lookup cache size in bytes",
				},
			),
			cacheItems: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "pgnbook_cache_items",
					Help: "Current number of items in the lookup cache",
				},
			),
		}
	})
	return prometheusInstance
}

// RecordSource records a processed corpus source.
func (p *PrometheusCollector) RecordSource(status string, durationSecs float64) {
	p.sourcesTotal.WithLabelValues(status).Inc()
	p.sourceDurationSecs.Observe(durationSecs)
}

// RecordGame records one game inserted into the tree.
func (p *PrometheusCollector) RecordGame(malformed bool) {
	p.gamesTotal.Inc()
	if malformed {
		p.malformedTotal.Inc()
	}
}

// RecordPrune records nodes removed by a prune pass and the resulting tree size.
func (p *PrometheusCollector) RecordPrune(removed, remaining int) {
	p.nodesPrunedTotal.Add(float64(removed))
	p.treeNodes.Set(float64(remaining))
}

// SetTreeNodes sets the current tree size.
func (p *PrometheusCollector) SetTreeNodes(count int) {
	p.treeNodes.Set(float64(count))
}

// RecordToolCall records a tool call metric.
func (p *PrometheusCollector) RecordToolCall(tool, status string, durationSecs float64) {
	p.toolCallsTotal.WithLabelValues(tool, status).Inc()
	p.toolDurationSecs.WithLabelValues(tool).Observe(durationSecs)
	if status == "error" {
		p.toolErrorsTotal.WithLabelValues(tool).Inc()
	}
}

// RecordRateLimit records a rate limit check.
func (p *PrometheusCollector) RecordRateLimit(tool string, hit bool) {
	p.rateLimitChecksTotal.Inc()
	if hit {
		p.rateLimitHitsTotal.WithLabelValues(tool).Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func (p *PrometheusCollector) RecordHTTPRequest(method, path, status string, durationSecs float64) {
	p.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	p.httpRequestDuration.WithLabelValues(method, path).Observe(durationSecs)
}

// RecordCacheHit records a cache hit.
func (p *PrometheusCollector) RecordCacheHit() {
	p.cacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss.
func (p *PrometheusCollector) RecordCacheMiss() {
	p.cacheMissesTotal.Inc()
}

// SetCacheStats sets the current cache statistics.
func (p *PrometheusCollector) SetCacheStats(items, sizeBytes float64) {
	p.cacheItems.Set(items)
	p.cacheSize.Set(sizeBytes)
}
