package service

import (
	"context"
	"time"

	apperrors "github.com/wallet-performance/internal/errors"
	"github.com/wallet-performance/internal/logging"
	"github.com/wallet-performance/internal/ratelimit"
	"github.com/wallet-performance/internal/retry"
	"github.com/wallet-performance/internal/types"
)

// PacedPriceOracle serialises calls to a price collaborator through a pacer.
// Every attempt, retries included, waits for its own slot.
type PacedPriceOracle struct {
	next  PriceOracle
	pacer *ratelimit.Pacer
	retry *retry.RetryConfig
}

// NewPacedPriceOracle wraps next. A nil retry config means a single attempt.
func NewPacedPriceOracle(next PriceOracle, pacer *ratelimit.Pacer, retryConfig *retry.RetryConfig) *PacedPriceOracle {
	cfg := &retry.RetryConfig{MaxAttempts: 1}
	if retryConfig != nil {
		c := *retryConfig
		cfg = &c
	}
	if cfg.Retryable == nil {
		cfg.Retryable = apperrors.IsRetryable
	}

	return &PacedPriceOracle{
		next:  next,
		pacer: pacer,
		retry: cfg,
	}
}

// PriceAt implements PriceOracle
func (o *PacedPriceOracle) PriceAt(ctx context.Context, tokenID string, at time.Time) (types.PricePoint, error) {
	var point types.PricePoint

	err := retry.Do(ctx, o.retry, func(ctx context.Context, attempt int) error {
		if err := o.pacer.Wait(ctx); err != nil {
			return err
		}
		var err error
		point, err = o.next.PriceAt(ctx, tokenID, at)
		return err
	})
	if err != nil {
		return types.PricePoint{TokenID: tokenID, Timestamp: at}, err
	}
	return point, nil
}

// CachedPriceOracle answers repeated lookups from a store before calling next.
// Cache failures are logged and never fail the lookup.
type CachedPriceOracle struct {
	next    PriceOracle
	store   PriceStore
	monitor *LookupMonitor
}

// NewCachedPriceOracle wraps next with store
func NewCachedPriceOracle(next PriceOracle, store PriceStore) *CachedPriceOracle {
	return &CachedPriceOracle{next: next, store: store}
}

// SetMonitor records the latency and cache outcome of every lookup in m
func (o *CachedPriceOracle) SetMonitor(m *LookupMonitor) {
	o.monitor = m
}

func (o *CachedPriceOracle) record(start time.Time, cached bool) {
	if o.monitor != nil {
		o.monitor.RecordLookup(time.Since(start), cached)
	}
}

// PriceAt implements PriceOracle
func (o *CachedPriceOracle) PriceAt(ctx context.Context, tokenID string, at time.Time) (types.PricePoint, error) {
	logger := logging.FromContext(ctx).WithField("token", tokenID)
	start := time.Now()

	point, hit, err := o.store.Get(ctx, tokenID, at)
	if err != nil {
		logger.WithError(err).Warn("Price cache read failed")
	} else if hit {
		logger.Debug("Price cache hit")
		o.record(start, true)
		return point, nil
	}

	point, err = o.next.PriceAt(ctx, tokenID, at)
	if err != nil {
		return point, err
	}
	o.record(start, false)

	if err := o.store.Put(ctx, point); err != nil {
		logger.WithError(err).Warn("Price cache write failed")
	}
	return point, nil
}
