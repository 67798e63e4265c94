package cache

import (
	"strings"
	"time"

	"github.com/dmmcquay/pgnbook/internal/config"
	"github.com/dmmcquay/pgnbook/internal/logging"
)

// Result is a cached book answer for one move sequence.
type Result struct {
	Moves []string
	Found bool
}

func (r Result) size() int64 {
	size := int64(16)
	for _, m := range r.Moves {
		size += int64(len(m)) + 16
	}
	return size
}

// Recorder receives cache hit and miss events, normally the Prometheus
// collector.
type Recorder interface {
	RecordCacheHit()
	RecordCacheMiss()
	SetCacheStats(items, sizeBytes float64)
}

// Manager caches book lookup results. A disabled Manager computes every
// result directly.
type Manager struct {
	cache    *LRU[Result]
	logger   logging.ContextLogger
	recorder Recorder
	enabled  bool
	ttl      time.Duration
}

// NewManager creates a cache manager from cfg. recorder may be nil.
func NewManager(cfg *config.CacheConfig, logger logging.ContextLogger, recorder Recorder) *Manager {
	m := &Manager{logger: logger, recorder: recorder}
	if cfg == nil || !cfg.Enabled {
		return m
	}
	m.enabled = true
	m.cache = NewLRU[Result](cfg.MaxItems, cfg.MaxSizeBytes)
	m.ttl = time.Duration(cfg.TTLSeconds) * time.Second
	return m
}

// Key builds the cache key for a tool and a normalized move list.
func Key(tool string, moves []string) string {
	return tool + ":" + strings.Join(moves, " ")
}

// Get returns the cached result for key.
func (m *Manager) Get(key string) (Result, bool) {
	if !m.enabled {
		return Result{}, false
	}

	r, addedAt, ok := m.cache.get(key)
	if ok && m.ttl > 0 && time.Since(addedAt) > m.ttl {
		m.cache.Delete(key)
		m.logger.Debug("Cache entry expired", "key", key, "age", time.Since(addedAt))
		ok = false
	}

	if m.recorder != nil {
		if ok {
			m.recorder.RecordCacheHit()
		} else {
			m.recorder.RecordCacheMiss()
		}
	}
	return r, ok
}

// Put stores a result for key.
func (m *Manager) Put(key string, r Result) {
	if !m.enabled {
		return
	}
	m.cache.Put(key, r, r.size())
	m.logger.Debug("Cached lookup result", "key", key, "found", r.Found)
	if m.recorder != nil {
		s := m.cache.Stats()
		m.recorder.SetCacheStats(float64(s.Items), float64(s.Size))
	}
}

// GetOrCompute returns the cached result for key, computing and storing it
// with fn on a miss.
func (m *Manager) GetOrCompute(key string, fn func() Result) Result {
	if r, ok := m.Get(key); ok {
		return r
	}
	r := fn()
	m.Put(key, r)
	return r
}

// Stats returns cache statistics.
func (m *Manager) Stats() Stats {
	if !m.enabled {
		return Stats{}
	}
	return m.cache.Stats()
}

// Clear clears the cache.
func (m *Manager) Clear() {
	if m.enabled {
		m.cache.Clear()
	}
}

// IsEnabled returns whether caching is enabled.
func (m *Manager) IsEnabled() bool {
	return m.enabled
}
