// Package types provides common type definitions for the wallet performance system.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Well-known Solana token identifiers
const (
	// MintWrappedSOL is the wrapped SOL mint, used to report the native balance
	MintWrappedSOL = "So11111111111111111111111111111111111111112"
	// MintUSDC is the USDC stablecoin mint
	MintUSDC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	// MintUSDT is the USDT stablecoin mint
	MintUSDT = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"

	// NativeDecimals is the number of decimal places of a lamport balance
	NativeDecimals = 9
)

// PerformanceStatus describes how a performance computation ended
type PerformanceStatus string

const (
	// StatusOK means at least one token was included and the overall figure is defined
	StatusOK PerformanceStatus = "ok"
	// StatusEmptyWallet means the wallet holds no tokens
	StatusEmptyWallet PerformanceStatus = "empty_wallet"
	// StatusNoPriceData means the wallet holds tokens but none had usable prices
	StatusNoPriceData PerformanceStatus = "no_price_data"
	// StatusZeroValue means tokens were included but their end-of-window value sums to zero
	StatusZeroValue PerformanceStatus = "zero_value"
)

// SkipReason explains why a token was left out of the aggregation
type SkipReason string

const (
	// SkipMissingStartPrice means no price point existed at the window start
	SkipMissingStartPrice SkipReason = "missing_start_price"
	// SkipMissingEndPrice means no price point existed at the window end
	SkipMissingEndPrice SkipReason = "missing_end_price"
	// SkipZeroStartPrice means the start price was zero and the change is undefined
	SkipZeroStartPrice SkipReason = "zero_start_price"
	// SkipPriceUnavailable means the price collaborator failed for this token
	SkipPriceUnavailable SkipReason = "price_unavailable"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// RawHolding is a holdings-lookup record before normalisation
type RawHolding struct {
	TokenID   string  `json:"tokenId"`
	RawAmount string  `json:"rawAmount"` // Integer amount in base units (as string for big numbers)
	Decimals  int     `json:"decimals"`
	Symbol    *string `json:"symbol,omitempty"` // Symbol if the source provides one
}

// TokenHolding is a token held by a wallet with its normalised quantity
type TokenHolding struct {
	TokenID  string          `json:"tokenId"`
	Quantity decimal.Decimal `json:"quantity"`
	Symbol   string          `json:"symbol,omitempty"`
}

// PricePoint is the price of a token at a point in time.
// Found is false when the price source has no data point; Price is then meaningless.
type PricePoint struct {
	TokenID   string    `json:"tokenId"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Found     bool      `json:"found"`
}

// Window is the time span over which performance is measured
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TokenPerformance is the change of a single token over the window
type TokenPerformance struct {
	TokenID       string          `json:"tokenId"`
	Symbol        string          `json:"symbol"`
	Quantity      decimal.Decimal `json:"quantity"`
	StartPrice    float64         `json:"startPrice"`
	EndPrice      float64         `json:"endPrice"`
	PercentChange float64         `json:"percentChange"`
	Weight        float64         `json:"weight"`
}

// SkippedToken records a token excluded from the aggregation
type SkippedToken struct {
	TokenID string     `json:"tokenId"`
	Symbol  string     `json:"symbol"`
	Reason  SkipReason `json:"reason"`
	Error   string     `json:"error,omitempty"`
}

// PortfolioPerformance is the outcome of a performance computation.
// OverallPercent and ValueChangePercent are nil when undefined.
type PortfolioPerformance struct {
	RunID              string             `json:"runId"`
	Wallet             string             `json:"wallet"`
	Window             Window             `json:"window"`
	Status             PerformanceStatus  `json:"status"`
	Tokens             []TokenPerformance `json:"tokens"`
	Skipped            []SkippedToken     `json:"skipped"`
	OverallPercent     *float64           `json:"overallPercent,omitempty"`
	StartValue         float64            `json:"startValue"`
	EndValue           float64            `json:"endValue"`
	ValueChangePercent *float64           `json:"valueChangePercent,omitempty"`
	HoldingsCount      int                `json:"holdingsCount"`
	ComputedAt         time.Time          `json:"computedAt"`
}
