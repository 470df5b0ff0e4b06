package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wallet-performance/internal/address"
	apperrors "github.com/wallet-performance/internal/errors"
	"github.com/wallet-performance/internal/logging"
	"github.com/wallet-performance/internal/types"
)

const holdingsSource = "holdings"

// HoldingsService fetches and normalises the tokens a wallet holds
type HoldingsService struct {
	source HoldingsSource
}

// NewHoldingsService creates a new holdings service
func NewHoldingsService(source HoldingsSource) *HoldingsService {
	return &HoldingsService{source: source}
}

// FetchHoldings returns the wallet's non-zero token balances in first-seen order.
// The collaborator is queried once with no retry. An empty wallet returns an empty slice.
func (s *HoldingsService) FetchHoldings(ctx context.Context, wallet string) ([]types.TokenHolding, error) {
	if err := address.Validate(wallet); err != nil {
		return nil, err
	}
	wallet = address.Normalize(wallet)

	raw, err := s.source.FetchHoldings(ctx, wallet)
	if err != nil {
		if apperrors.IsInvalidAddress(err) || apperrors.IsDataSourceUnavailable(err) {
			return nil, err
		}
		return nil, apperrors.NewDataSourceError(holdingsSource, err)
	}

	holdings, err := NormalizeHoldings(raw)
	if err != nil {
		return nil, apperrors.NewDataSourceError(holdingsSource, err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"accounts": len(raw),
		"tokens":   len(holdings),
	}).Info("Fetched wallet holdings")

	return holdings, nil
}

// NormalizeHoldings converts raw amounts to quantities (rawAmount / 10^decimals),
// merges records of the same token and drops zero balances.
func NormalizeHoldings(raw []types.RawHolding) ([]types.TokenHolding, error) {
	holdings := make([]types.TokenHolding, 0, len(raw))
	index := make(map[string]int, len(raw))

	for _, r := range raw {
		if r.Decimals < 0 {
			return nil, fmt.Errorf("token %s: negative decimals %d", r.TokenID, r.Decimals)
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(r.RawAmount))
		if err != nil {
			return nil, fmt.Errorf("token %s: invalid amount %q: %w", r.TokenID, r.RawAmount, err)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("token %s: negative amount %s", r.TokenID, r.RawAmount)
		}
		quantity := amount.Shift(-int32(r.Decimals))

		symbol := ""
		if r.Symbol != nil {
			symbol = strings.TrimSpace(*r.Symbol)
		}

		if i, ok := index[r.TokenID]; ok {
			holdings[i].Quantity = holdings[i].Quantity.Add(quantity)
			if holdings[i].Symbol == "" {
				holdings[i].Symbol = symbol
			}
			continue
		}

		index[r.TokenID] = len(holdings)
		holdings = append(holdings, types.TokenHolding{
			TokenID:  r.TokenID,
			Quantity: quantity,
			Symbol:   symbol,
		})
	}

	nonZero := holdings[:0]
	for _, h := range holdings {
		if !h.Quantity.IsZero() {
			nonZero = append(nonZero, h)
		}
	}
	return nonZero, nil
}
