package observability

import (
	"sync"
	"time"
)

// slowThreshold flags requests worth looking at in the counters.
const slowThreshold = 500 * time.Millisecond

// RouteStats aggregates per-route request outcomes.
type RouteStats struct {
	Requests int64
	Errors   int64
	Slow     int64
}

// Metrics keeps in-memory per-route counters. Snapshot exposes a copy for
// inspection; there is no external metrics backend.
type Metrics struct {
	mu     sync.Mutex
	routes map[string]*RouteStats
}

func NewMetrics() *Metrics {
	return &Metrics{routes: make(map[string]*RouteStats)}
}

// RecordRequest counts one completed request for its route.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.route(method + " " + path)
	stats.Requests++
	if status >= 500 {
		stats.Errors++
	}
	if duration > slowThreshold {
		stats.Slow++
	}
}

// RecordError counts a request that resolved to an application error.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.route(method+" "+path).Errors++
}

// Snapshot returns a copy of every route's counters.
func (m *Metrics) Snapshot() map[string]RouteStats {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]RouteStats, len(m.routes))
	for key, stats := range m.routes {
		out[key] = *stats
	}
	return out
}

func (m *Metrics) route(key string) *RouteStats {
	stats, ok := m.routes[key]
	if !ok {
		stats = &RouteStats{}
		m.routes[key] = stats
	}
	return stats
}
