// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - requests/successes: Total and successful dispatch counts
//   - errors.<kind>:      Failures per GatewayError kind
//   - provider.<name>:    Dispatches per resolved provider
//   - fallbacks:          Unknown provider ids routed to openai
//
// Counter maps are fixed at construction, so lookups need no lock.
package monitoring

import (
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	requests  atomic.Int64
	successes atomic.Int64
	fallbacks atomic.Int64
	latencyMs atomic.Int64
	byKind    map[string]*atomic.Int64
	byProv    map[string]*atomic.Int64
}

// NewMetricsCollector creates a collector with counters for the given error kinds and providers.
func NewMetricsCollector(kinds, providers []string) *MetricsCollector {
	mc := &MetricsCollector{
		byKind: make(map[string]*atomic.Int64, len(kinds)),
		byProv: make(map[string]*atomic.Int64, len(providers)),
	}
	for _, k := range kinds {
		mc.byKind[k] = new(atomic.Int64)
	}
	for _, p := range providers {
		mc.byProv[p] = new(atomic.Int64)
	}
	return mc
}

// RecordDispatch records one exchange. errorKind is empty on success.
func (mc *MetricsCollector) RecordDispatch(provider, errorKind string, latency time.Duration) {
	mc.requests.Add(1)
	mc.latencyMs.Add(latency.Milliseconds())
	if c, ok := mc.byProv[provider]; ok {
		c.Add(1)
	}
	if errorKind == "" {
		mc.successes.Add(1)
		return
	}
	if c, ok := mc.byKind[errorKind]; ok {
		c.Add(1)
	}
}

// RecordFallback records an unknown provider id routed to the default adapter.
func (mc *MetricsCollector) RecordFallback() { mc.fallbacks.Add(1) }

// Stats returns current metrics.
func (mc *MetricsCollector) Stats() map[string]int64 {
	stats := map[string]int64{
		"requests":         mc.requests.Load(),
		"successes":        mc.successes.Load(),
		"fallbacks":        mc.fallbacks.Load(),
		"latency_ms_total": mc.latencyMs.Load(),
	}
	for k, c := range mc.byKind {
		stats["errors."+k] = c.Load()
	}
	for p, c := range mc.byProv {
		stats["provider."+p] = c.Load()
	}
	return stats
}
