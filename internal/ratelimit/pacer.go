// Package ratelimit paces calls to rate-sensitive third-party data providers.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultInterval is the minimum spacing between consecutive calls when none is configured.
const DefaultInterval = time.Second

// ErrContextCancelled is returned when the context is cancelled while waiting for a slot.
var ErrContextCancelled = errors.New("context cancelled while waiting for rate limit slot")

// Pacer enforces a minimum interval between consecutive calls to one collaborator.
// It is safe for concurrent use; concurrent callers are spaced out in arrival order.
type Pacer struct {
	name     string
	interval time.Duration
	limiter  *rate.Limiter
	clock    Clock

	mu     sync.Mutex
	calls  int64
	waited time.Duration
}

// PacerConfig holds configuration for a Pacer.
type PacerConfig struct {
	// Name identifies the collaborator in logs and stats.
	Name string

	// Interval is the minimum spacing between calls. Zero means DefaultInterval.
	Interval time.Duration

	// Unlimited disables pacing entirely. Interval is ignored.
	Unlimited bool

	// Clock defaults to SystemClock.
	Clock Clock
}

// Validate checks if the configuration is valid.
func (c *PacerConfig) Validate() error {
	if c.Name == "" {
		return errors.New("pacer name is required")
	}
	if c.Interval < 0 {
		return errors.New("interval cannot be negative")
	}
	return nil
}

// NewPacer creates a new pacer with the given configuration.
func NewPacer(cfg *PacerConfig) (*Pacer, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	interval := cfg.Interval
	if interval == 0 {
		interval = DefaultInterval
	}

	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	// Burst of one: an idle pacer never lets two calls through back to back.
	limit := rate.Every(interval)
	if cfg.Unlimited {
		interval = 0
		limit = rate.Inf
	}

	return &Pacer{
		name:     cfg.Name,
		interval: interval,
		limiter:  rate.NewLimiter(limit, 1),
		clock:    clock,
	}, nil
}

// Wait blocks until the next call to the collaborator is allowed.
func (p *Pacer) Wait(ctx context.Context) error {
	now := p.clock.Now()
	reservation := p.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return fmt.Errorf("pacer %s: reservation rejected", p.name)
	}

	delay := reservation.DelayFrom(now)
	if delay > 0 {
		if err := p.clock.Sleep(ctx, delay); err != nil {
			reservation.CancelAt(p.clock.Now())
			return ErrContextCancelled
		}
	}

	p.mu.Lock()
	p.calls++
	p.waited += delay
	p.mu.Unlock()

	return nil
}

// PacerStats summarises the pacing applied so far.
type PacerStats struct {
	Name        string        `json:"name"`
	Interval    time.Duration `json:"interval"`
	Calls       int64         `json:"calls"`
	TotalWaited time.Duration `json:"totalWaited"`
}

// Stats returns the pacing statistics.
func (p *Pacer) Stats() PacerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PacerStats{
		Name:        p.name,
		Interval:    p.interval,
		Calls:       p.calls,
		TotalWaited: p.waited,
	}
}

// Name returns the collaborator name.
func (p *Pacer) Name() string {
	return p.name
}

// Interval returns the configured minimum spacing.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}
