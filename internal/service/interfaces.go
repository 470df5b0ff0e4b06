package service

import (
	"context"
	"time"

	"github.com/wallet-performance/internal/types"
)

// Collaborator interfaces for dependency injection

// HoldingsSource lists the raw token records a wallet holds
type HoldingsSource interface {
	FetchHoldings(ctx context.Context, wallet string) ([]types.RawHolding, error)
}

// PriceOracle returns the price of a token at an instant.
// Absence of data is a PricePoint with Found false and a nil error.
type PriceOracle interface {
	PriceAt(ctx context.Context, tokenID string, at time.Time) (types.PricePoint, error)
}

// SymbolLookup queries an external metadata source for a token symbol
type SymbolLookup interface {
	LookupSymbol(ctx context.Context, tokenID string) (string, bool, error)
}

// PriceStore caches price lookups
type PriceStore interface {
	Get(ctx context.Context, tokenID string, at time.Time) (types.PricePoint, bool, error)
	Put(ctx context.Context, point types.PricePoint) error
}

// SymbolStore caches resolved symbols
type SymbolStore interface {
	Get(ctx context.Context, tokenID string) (string, bool, error)
	Put(ctx context.Context, tokenID, symbol string) error
}
