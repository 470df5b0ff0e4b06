package service

import (
	"github.com/wallet-performance/internal/types"
)

// PercentChange returns (end - start) / start * 100.
// ok is false when start is zero and the change is undefined.
func PercentChange(start, end float64) (pct float64, ok bool) {
	if start == 0 {
		return 0, false
	}
	return (end - start) / start * 100, true
}

// endValue is quantity times end price
func endValue(t types.TokenPerformance) float64 {
	return t.Quantity.InexactFloat64() * t.EndPrice
}

// ApplyWeights sets each token's weight to its share of total end value and returns
// the weighted overall change. It returns nil when the total end value is not positive.
func ApplyWeights(tokens []types.TokenPerformance) *float64 {
	var total float64
	for _, t := range tokens {
		total += endValue(t)
	}

	if total <= 0 {
		for i := range tokens {
			tokens[i].Weight = 0
		}
		return nil
	}

	var overall float64
	for i := range tokens {
		tokens[i].Weight = endValue(tokens[i]) / total
		overall += tokens[i].Weight * tokens[i].PercentChange
	}
	return &overall
}

// PortfolioValues returns the start and end value of the included tokens and the
// value-based change, which is nil when the start value is zero.
func PortfolioValues(tokens []types.TokenPerformance) (start, end float64, change *float64) {
	for _, t := range tokens {
		q := t.Quantity.InexactFloat64()
		start += q * t.StartPrice
		end += q * t.EndPrice
	}
	if pct, ok := PercentChange(start, end); ok {
		change = &pct
	}
	return start, end, change
}
