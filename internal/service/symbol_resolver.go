package service

import (
	"context"

	"github.com/wallet-performance/internal/circuitbreaker"
	"github.com/wallet-performance/internal/logging"
	"github.com/wallet-performance/internal/ratelimit"
	"github.com/wallet-performance/internal/types"
)

// placeholderLength is the number of token identifier characters used when no symbol is known
const placeholderLength = 8

// KnownTokens maps well-known token identifiers to their symbols
var KnownTokens = map[string]string{
	types.MintUSDC:       "USDC",
	types.MintUSDT:       "USDT",
	types.MintWrappedSOL: "SOL",
}

// SymbolStrategy is one tier of symbol resolution.
// ok is false when the tier has no answer and the next one should be tried.
type SymbolStrategy interface {
	Name() string
	Resolve(ctx context.Context, tokenID string) (symbol string, ok bool, err error)
}

// SymbolResolver tries each strategy in order and falls back to a placeholder.
// Resolve never fails.
type SymbolResolver struct {
	strategies []SymbolStrategy
}

// NewSymbolResolver creates a resolver from an ordered list of strategies
func NewSymbolResolver(strategies ...SymbolStrategy) *SymbolResolver {
	return &SymbolResolver{strategies: strategies}
}

// Resolve returns the symbol of tokenID
func (r *SymbolResolver) Resolve(ctx context.Context, tokenID string) string {
	logger := logging.FromContext(ctx).WithField("token", tokenID)

	for _, s := range r.strategies {
		symbol, ok, err := s.Resolve(ctx, tokenID)
		if err != nil {
			logger.WithError(err).WithField("strategy", s.Name()).Warn("Symbol lookup failed, trying next strategy")
			continue
		}
		if ok && symbol != "" {
			return symbol
		}
	}

	placeholder := PlaceholderSymbol(tokenID)
	logger.WithField("symbol", placeholder).Debug("Using placeholder symbol")
	return placeholder
}

// PlaceholderSymbol derives a deterministic symbol from the first characters of tokenID
func PlaceholderSymbol(tokenID string) string {
	if len(tokenID) <= placeholderLength {
		return tokenID
	}
	return tokenID[:placeholderLength]
}

// KnownTokenStrategy answers from a fixed table without network calls
type KnownTokenStrategy struct {
	table map[string]string
}

// NewKnownTokenStrategy creates a table strategy. A nil table means KnownTokens.
func NewKnownTokenStrategy(table map[string]string) *KnownTokenStrategy {
	if table == nil {
		table = KnownTokens
	}
	return &KnownTokenStrategy{table: table}
}

func (s *KnownTokenStrategy) Name() string { return "known" }

func (s *KnownTokenStrategy) Resolve(_ context.Context, tokenID string) (string, bool, error) {
	symbol, ok := s.table[tokenID]
	return symbol, ok, nil
}

// CachedSymbolStrategy answers from previously resolved symbols
type CachedSymbolStrategy struct {
	store SymbolStore
}

// NewCachedSymbolStrategy creates a cache strategy
func NewCachedSymbolStrategy(store SymbolStore) *CachedSymbolStrategy {
	return &CachedSymbolStrategy{store: store}
}

func (s *CachedSymbolStrategy) Name() string { return "cache" }

func (s *CachedSymbolStrategy) Resolve(ctx context.Context, tokenID string) (string, bool, error) {
	return s.store.Get(ctx, tokenID)
}

// RemoteSymbolStrategy queries the metadata collaborator.
// Calls are paced, guarded by a circuit breaker and written through to the store when one is set.
type RemoteSymbolStrategy struct {
	lookup  SymbolLookup
	pacer   *ratelimit.Pacer
	breaker *circuitbreaker.CircuitBreaker
	store   SymbolStore
}

// NewRemoteSymbolStrategy creates a remote strategy. pacer, breaker and store may be nil.
func NewRemoteSymbolStrategy(lookup SymbolLookup, pacer *ratelimit.Pacer, breaker *circuitbreaker.CircuitBreaker, store SymbolStore) *RemoteSymbolStrategy {
	return &RemoteSymbolStrategy{
		lookup:  lookup,
		pacer:   pacer,
		breaker: breaker,
		store:   store,
	}
}

func (s *RemoteSymbolStrategy) Name() string { return "remote" }

func (s *RemoteSymbolStrategy) Resolve(ctx context.Context, tokenID string) (string, bool, error) {
	var (
		symbol string
		found  bool
	)

	call := func(ctx context.Context) error {
		if s.pacer != nil {
			if err := s.pacer.Wait(ctx); err != nil {
				return err
			}
		}
		var err error
		symbol, found, err = s.lookup.LookupSymbol(ctx, tokenID)
		return err
	}

	var err error
	if s.breaker != nil {
		err = s.breaker.Execute(ctx, call, nil)
	} else {
		err = call(ctx)
	}
	if err != nil || !found {
		return "", false, err
	}

	if s.store != nil {
		if err := s.store.Put(ctx, tokenID, symbol); err != nil {
			logging.FromContext(ctx).WithError(err).WithField("token", tokenID).Warn("Failed to cache symbol")
		}
	}
	return symbol, true, nil
}
