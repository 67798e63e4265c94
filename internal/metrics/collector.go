package metrics

import (
	"sort"
	"sync"
	"time"
)

const durationWindow = 100

// Collector keeps in-process tool call statistics for the bookStats tool.
type Collector struct {
	mu sync.RWMutex

	calls       map[string]int64
	errors      map[string]int64
	rateLimited map[string]int64
	durations   map[string][]time.Duration
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	c := &Collector{}
	c.Reset()
	return c
}

// RecordToolCall records a tool call with its status and duration. status is
// one of "success", "error" or "rate_limited".
func (c *Collector) RecordToolCall(tool, status string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls[tool]++
	switch status {
	case "error":
		c.errors[tool]++
	case "rate_limited":
		c.rateLimited[tool]++
		return
	}

	durations := append(c.durations[tool], duration)
	if len(durations) > durationWindow {
		durations = durations[len(durations)-durationWindow:]
	}
	c.durations[tool] = durations
}

// ToolStats summarizes the calls made to one tool.
type ToolStats struct {
	Tool          string  `json:"tool"`
	Calls         int64   `json:"calls"`
	Errors        int64   `json:"errors"`
	RateLimited   int64   `json:"rateLimited"`
	ErrorRate     float64 `json:"errorRate"`
	AvgDurationMs int64   `json:"avgDurationMs"`
}

// Snapshot returns per-tool statistics ordered by tool name.
func (c *Collector) Snapshot() []ToolStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := make([]ToolStats, 0, len(c.calls))
	for tool, calls := range c.calls {
		s := ToolStats{
			Tool:        tool,
			Calls:       calls,
			Errors:      c.errors[tool],
			RateLimited: c.rateLimited[tool],
		}
		if calls > 0 {
			s.ErrorRate = float64(s.Errors) / float64(calls)
		}
		if durations := c.durations[tool]; len(durations) > 0 {
			var total time.Duration
			for _, d := range durations {
				total += d
			}
			s.AvgDurationMs = (total / time.Duration(len(durations))).Milliseconds()
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Tool < stats[j].Tool })
	return stats
}

// Reset clears all metrics.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = make(map[string]int64)
	c.errors = make(map[string]int64)
	c.rateLimited = make(map[string]int64)
	c.durations = make(map[string][]time.Duration)
}
