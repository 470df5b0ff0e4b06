package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/wallet-performance/internal/errors"
	"github.com/wallet-performance/internal/logging"
	"github.com/wallet-performance/internal/types"
)

// DefaultLookback is the length of the performance window ending now
const DefaultLookback = 30 * 24 * time.Hour

// HoldingsFetcher returns the normalised holdings of a wallet
type HoldingsFetcher interface {
	FetchHoldings(ctx context.Context, wallet string) ([]types.TokenHolding, error)
}

// SymbolResolution maps a token to a display symbol and never fails
type SymbolResolution interface {
	Resolve(ctx context.Context, tokenID string) string
}

// PerformanceConfig configures a PerformanceService
type PerformanceConfig struct {
	Lookback time.Duration
	Now      func() time.Time
}

// PerformanceService computes the value-weighted performance of a wallet over a window
type PerformanceService struct {
	holdings HoldingsFetcher
	symbols  SymbolResolution
	prices   PriceOracle
	lookback time.Duration
	now      func() time.Time
}

// NewPerformanceService creates a new performance service
func NewPerformanceService(holdings HoldingsFetcher, symbols SymbolResolution, prices PriceOracle, cfg PerformanceConfig) *PerformanceService {
	lookback := cfg.Lookback
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &PerformanceService{
		holdings: holdings,
		symbols:  symbols,
		prices:   prices,
		lookback: lookback,
		now:      now,
	}
}

// RecentWindow returns the window of the configured lookback ending now
func (s *PerformanceService) RecentWindow() types.Window {
	end := s.now().UTC().Truncate(time.Second)
	return types.Window{Start: end.Add(-s.lookback), End: end}
}

// ComputeRecentPerformance computes performance over RecentWindow
func (s *PerformanceService) ComputeRecentPerformance(ctx context.Context, wallet string) (*types.PortfolioPerformance, error) {
	return s.ComputePerformance(ctx, wallet, s.RecentWindow())
}

// ComputePerformance fetches the wallet's holdings once and processes tokens one at a time
// in holding order. Holdings failures are returned; per-token failures become skips.
func (s *PerformanceService) ComputePerformance(ctx context.Context, wallet string, window types.Window) (*types.PortfolioPerformance, error) {
	if window.End.Before(window.Start) {
		return nil, apperrors.NewInvalidParameterError("window", "end is before start")
	}

	runID := uuid.NewString()
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"runId":  runID,
		"wallet": wallet,
	})
	ctx = logging.WithLogger(ctx, logger)

	holdings, err := s.holdings.FetchHoldings(ctx, wallet)
	if err != nil {
		logger.WithError(err).Error("Failed to fetch holdings")
		return nil, err
	}

	result := &types.PortfolioPerformance{
		RunID:         runID,
		Wallet:        wallet,
		Window:        window,
		Tokens:        []types.TokenPerformance{},
		Skipped:       []types.SkippedToken{},
		HoldingsCount: len(holdings),
	}

	if len(holdings) == 0 {
		logger.Info("Wallet holds no tokens")
		result.Status = types.StatusEmptyWallet
		result.ComputedAt = s.now().UTC()
		return result, nil
	}

	for _, h := range holdings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		symbol := h.Symbol
		if symbol == "" {
			symbol = s.symbols.Resolve(ctx, h.TokenID)
		}

		perf, skip, err := s.tokenPerformance(ctx, h, symbol, window)
		if err != nil {
			return nil, err
		}
		if skip != nil {
			logging.FromContext(ctx).WithFields(map[string]interface{}{
				"token":  h.TokenID,
				"symbol": symbol,
				"reason": skip.Reason,
			}).Warn("Skipping token")
			result.Skipped = append(result.Skipped, *skip)
			continue
		}
		result.Tokens = append(result.Tokens, *perf)
	}

	result.OverallPercent = ApplyWeights(result.Tokens)
	result.StartValue, result.EndValue, result.ValueChangePercent = PortfolioValues(result.Tokens)

	switch {
	case len(result.Tokens) == 0:
		result.Status = types.StatusNoPriceData
	case result.OverallPercent == nil:
		result.Status = types.StatusZeroValue
	default:
		result.Status = types.StatusOK
	}
	result.ComputedAt = s.now().UTC()

	logger.WithFields(map[string]interface{}{
		"status":   result.Status,
		"included": len(result.Tokens),
		"skipped":  len(result.Skipped),
	}).Info("Computed wallet performance")

	return result, nil
}

// tokenPerformance looks up both prices of one holding. The end price is not
// requested once the start price rules the token out. A non-nil error is returned
// only when ctx is done.
func (s *PerformanceService) tokenPerformance(ctx context.Context, h types.TokenHolding, symbol string, window types.Window) (*types.TokenPerformance, *types.SkippedToken, error) {
	skip := func(reason types.SkipReason, err error) (*types.TokenPerformance, *types.SkippedToken, error) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		st := &types.SkippedToken{TokenID: h.TokenID, Symbol: symbol, Reason: reason}
		if err != nil {
			st.Error = err.Error()
		}
		return nil, st, nil
	}

	start, err := s.prices.PriceAt(ctx, h.TokenID, window.Start)
	if err != nil {
		return skip(types.SkipPriceUnavailable, err)
	}
	if !start.Found {
		return skip(types.SkipMissingStartPrice, nil)
	}
	if start.Price == 0 {
		return skip(types.SkipZeroStartPrice, nil)
	}

	end, err := s.prices.PriceAt(ctx, h.TokenID, window.End)
	if err != nil {
		return skip(types.SkipPriceUnavailable, err)
	}
	if !end.Found {
		return skip(types.SkipMissingEndPrice, nil)
	}

	pct, _ := PercentChange(start.Price, end.Price)

	return &types.TokenPerformance{
		TokenID:       h.TokenID,
		Symbol:        symbol,
		Quantity:      h.Quantity,
		StartPrice:    start.Price,
		EndPrice:      end.Price,
		PercentChange: pct,
	}, nil, nil
}
