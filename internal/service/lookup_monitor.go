package service

import (
	"sort"
	"sync"
	"time"
)

// defaultMaxSamples bounds the latency samples kept per kind
const defaultMaxSamples = 1000

// LookupMonitor tracks price lookup latency and cache effectiveness
type LookupMonitor struct {
	mu            sync.RWMutex
	cachedTimes   []time.Duration
	upstreamTimes []time.Duration
	cacheHits     int64
	cacheMisses   int64
	maxSamples    int
}

// NewLookupMonitor creates a new lookup monitor
func NewLookupMonitor() *LookupMonitor {
	return &LookupMonitor{
		cachedTimes:   make([]time.Duration, 0, defaultMaxSamples),
		upstreamTimes: make([]time.Duration, 0, defaultMaxSamples),
		maxSamples:    defaultMaxSamples,
	}
}

// RecordLookup records one lookup and whether the cache answered it
func (m *LookupMonitor) RecordLookup(duration time.Duration, cached bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cached {
		m.cacheHits++
		m.cachedTimes = appendSample(m.cachedTimes, duration, m.maxSamples)
	} else {
		m.cacheMisses++
		m.upstreamTimes = appendSample(m.upstreamTimes, duration, m.maxSamples)
	}
}

// appendSample keeps only the most recent max samples
func appendSample(samples []time.Duration, d time.Duration, max int) []time.Duration {
	samples = append(samples, d)
	if len(samples) > max {
		samples = samples[len(samples)-max:]
	}
	return samples
}

// LookupStats summarises recorded lookups
type LookupStats struct {
	TotalLookups  int64   `json:"totalLookups"`
	CacheHits     int64   `json:"cacheHits"`
	CacheMisses   int64   `json:"cacheMisses"`
	CacheHitRate  float64 `json:"cacheHitRate"` // Percentage
	AvgCachedMs   float64 `json:"avgCachedMs"`
	AvgUpstreamMs float64 `json:"avgUpstreamMs"`
	P95UpstreamMs float64 `json:"p95UpstreamMs"`
}

// GetStats returns current lookup statistics
func (m *LookupMonitor) GetStats() LookupStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := LookupStats{
		TotalLookups:  m.cacheHits + m.cacheMisses,
		CacheHits:     m.cacheHits,
		CacheMisses:   m.cacheMisses,
		AvgCachedMs:   averageMs(m.cachedTimes),
		AvgUpstreamMs: averageMs(m.upstreamTimes),
	}
	if stats.TotalLookups > 0 {
		stats.CacheHitRate = float64(m.cacheHits) / float64(stats.TotalLookups) * 100
	}

	if len(m.upstreamTimes) > 0 {
		sorted := make([]time.Duration, len(m.upstreamTimes))
		copy(sorted, m.upstreamTimes)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		p95Index := int(float64(len(sorted)) * 0.95)
		if p95Index >= len(sorted) {
			p95Index = len(sorted) - 1
		}
		stats.P95UpstreamMs = float64(sorted[p95Index].Milliseconds())
	}

	return stats
}

func averageMs(samples []time.Duration) float64 {
	if len(samples) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range samples {
		total += d
	}
	return float64(total.Milliseconds()) / float64(len(samples))
}

// Reset clears all recorded lookups
func (m *LookupMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cachedTimes = make([]time.Duration, 0, defaultMaxSamples)
	m.upstreamTimes = make([]time.Duration, 0, defaultMaxSamples)
	m.cacheHits = 0
	m.cacheMisses = 0
}
