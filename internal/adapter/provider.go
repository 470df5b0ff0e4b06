package adapter

import (
	"fmt"
	"sync"
	"time"
)

// EndpointHealth represents the health status of one RPC endpoint
type EndpointHealth struct {
	URL              string        `json:"url"`
	TotalRequests    int64         `json:"totalRequests"`
	FailedRequests   int64         `json:"failedRequests"`
	SuccessRate      float64       `json:"successRate"`
	AverageLatency   time.Duration `json:"averageLatency"`
	LastSuccess      time.Time     `json:"lastSuccess"`
	LastFailure      time.Time     `json:"lastFailure"`
	ConsecutiveFails int           `json:"consecutiveFails"`
	Active           bool          `json:"active"`
}

type endpointStats struct {
	total            int64
	failed           int64
	latency          time.Duration
	lastSuccess      time.Time
	lastFailure      time.Time
	consecutiveFails int
}

// EndpointProvider rotates between an ordered list of RPC endpoints.
// The first endpoint is preferred; Failover moves to the next one in order.
type EndpointProvider struct {
	mu        sync.RWMutex
	endpoints []string
	stats     []endpointStats
	current   int
}

// NewEndpointProvider creates a provider from a primary and optional fallback URLs.
// Empty fallbacks are ignored.
func NewEndpointProvider(primary string, fallbacks ...string) (*EndpointProvider, error) {
	if primary == "" {
		return nil, fmt.Errorf("primary URL cannot be empty")
	}

	endpoints := []string{primary}
	for _, url := range fallbacks {
		if url != "" && url != primary {
			endpoints = append(endpoints, url)
		}
	}

	return &EndpointProvider{
		endpoints: endpoints,
		stats:     make([]endpointStats, len(endpoints)),
	}, nil
}

// Current returns the currently active endpoint URL
func (p *EndpointProvider) Current() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.endpoints[p.current]
}

// Len returns the number of configured endpoints
func (p *EndpointProvider) Len() int {
	return len(p.endpoints)
}

// Failover switches to the next endpoint after failedURL.
// It is a no-op when another caller already moved away from failedURL.
func (p *EndpointProvider) Failover(failedURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.endpoints) < 2 {
		return fmt.Errorf("no secondary endpoint configured")
	}
	if p.endpoints[p.current] != failedURL {
		return nil
	}
	p.current = (p.current + 1) % len(p.endpoints)
	return nil
}

// RecordSuccess records a successful request against url
func (p *EndpointProvider) RecordSuccess(url string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s := p.statsFor(url); s != nil {
		s.total++
		s.latency += duration
		s.lastSuccess = time.Now()
		s.consecutiveFails = 0
	}
}

// RecordFailure records a failed request against url
func (p *EndpointProvider) RecordFailure(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s := p.statsFor(url); s != nil {
		s.total++
		s.failed++
		s.lastFailure = time.Now()
		s.consecutiveFails++
	}
}

// statsFor must be called with the lock held
func (p *EndpointProvider) statsFor(url string) *endpointStats {
	for i, e := range p.endpoints {
		if e == url {
			return &p.stats[i]
		}
	}
	return nil
}

// Health returns the health of every endpoint in preference order
func (p *EndpointProvider) Health() []EndpointHealth {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]EndpointHealth, len(p.endpoints))
	for i, url := range p.endpoints {
		s := p.stats[i]
		h := EndpointHealth{
			URL:              url,
			TotalRequests:    s.total,
			FailedRequests:   s.failed,
			LastSuccess:      s.lastSuccess,
			LastFailure:      s.lastFailure,
			ConsecutiveFails: s.consecutiveFails,
			Active:           i == p.current,
		}
		if s.total > 0 {
			h.SuccessRate = float64(s.total-s.failed) / float64(s.total)
		}
		if succeeded := s.total - s.failed; succeeded > 0 {
			h.AverageLatency = s.latency / time.Duration(succeeded)
		}
		out[i] = h
	}
	return out
}

// Reset makes the primary endpoint active again
func (p *EndpointProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = 0
}
