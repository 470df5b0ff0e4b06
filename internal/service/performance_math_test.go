package service

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-performance/internal/types"
)

func TestPercentChange(t *testing.T) {
	tests := []struct {
		start, end float64
		want       float64
		ok         bool
	}{
		{start: 1, end: 1, want: 0, ok: true},
		{start: 100, end: 150, want: 50, ok: true},
		{start: 4, end: 1, want: -75, ok: true},
		{start: 0, end: 5, ok: false},
	}

	for _, tt := range tests {
		got, ok := PercentChange(tt.start, tt.end)
		assert.Equal(t, tt.ok, ok)
		assert.Equal(t, tt.want, got)
	}
}

func TestApplyWeights_Empty(t *testing.T) {
	assert.Nil(t, ApplyWeights(nil))

	start, end, change := PortfolioValues(nil)
	assert.Zero(t, start)
	assert.Zero(t, end)
	assert.Nil(t, change)
}

// genTokenPerformance generates an included token with positive quantity and prices
func genTokenPerformance() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(0.000001, 1e9),
		gen.Float64Range(0.000001, 1e5),
		gen.Float64Range(0.000001, 1e5),
	).Map(func(values []interface{}) types.TokenPerformance {
		start := values[1].(float64)
		end := values[2].(float64)
		pct, _ := PercentChange(start, end)
		return types.TokenPerformance{
			Quantity:      decimal.NewFromFloat(values[0].(float64)),
			StartPrice:    start,
			EndPrice:      end,
			PercentChange: pct,
		}
	})
}

func genPortfolio() gopter.Gen {
	return gen.SliceOf(genTokenPerformance()).SuchThat(func(tokens []types.TokenPerformance) bool {
		return len(tokens) > 0
	})
}

func TestApplyWeights_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("weights sum to one", prop.ForAll(
		func(tokens []types.TokenPerformance) bool {
			if ApplyWeights(tokens) == nil {
				return false
			}
			var sum float64
			for _, tok := range tokens {
				if tok.Weight < 0 || tok.Weight > 1 {
					return false
				}
				sum += tok.Weight
			}
			return math.Abs(sum-1) < 1e-9
		},
		genPortfolio(),
	))

	properties.Property("overall lies between the smallest and largest change", prop.ForAll(
		func(tokens []types.TokenPerformance) bool {
			overall := ApplyWeights(tokens)
			if overall == nil {
				return false
			}
			lo, hi := math.Inf(1), math.Inf(-1)
			for _, tok := range tokens {
				lo = math.Min(lo, tok.PercentChange)
				hi = math.Max(hi, tok.PercentChange)
			}
			tolerance := 1e-9 * math.Max(1, math.Max(math.Abs(lo), math.Abs(hi)))
			return *overall >= lo-tolerance && *overall <= hi+tolerance
		},
		genPortfolio(),
	))

	properties.Property("single token overall equals its change exactly", prop.ForAll(
		func(tok types.TokenPerformance) bool {
			tokens := []types.TokenPerformance{tok}
			overall := ApplyWeights(tokens)
			return overall != nil && *overall == tok.PercentChange && tokens[0].Weight == 1
		},
		genTokenPerformance(),
	))

	properties.TestingRun(t)
}

func TestApplyWeights_ZeroTotalResetsWeights(t *testing.T) {
	tokens := []types.TokenPerformance{
		{Quantity: decimal.NewFromInt(1), StartPrice: 1, EndPrice: 0, PercentChange: -100, Weight: 0.5},
		{Quantity: decimal.NewFromInt(2), StartPrice: 1, EndPrice: 0, PercentChange: -100, Weight: 0.5},
	}

	require.Nil(t, ApplyWeights(tokens))
	for _, tok := range tokens {
		assert.Zero(t, tok.Weight)
	}
}
