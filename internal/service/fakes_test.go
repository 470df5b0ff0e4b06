package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wallet-performance/internal/types"
)

// Test doubles for collaborators

const testWallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"

var (
	windowEnd   = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	windowStart = windowEnd.Add(-DefaultLookback)
	testWindow  = types.Window{Start: windowStart, End: windowEnd}
)

type fakeHoldingsSource struct {
	raw   []types.RawHolding
	err   error
	calls int
}

func (f *fakeHoldingsSource) FetchHoldings(ctx context.Context, wallet string) ([]types.RawHolding, error) {
	f.calls++
	return f.raw, f.err
}

type priceCall struct {
	TokenID string
	At      time.Time
}

// fakeOracle answers from a table keyed by token and instant; missing entries are Absent
type fakeOracle struct {
	mu     sync.Mutex
	prices map[string]float64
	errs   map[string]error
	calls  []priceCall
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{prices: map[string]float64{}, errs: map[string]error{}}
}

func priceKeyOf(tokenID string, at time.Time) string {
	return fmt.Sprintf("%s@%d", tokenID, at.Unix())
}

func (f *fakeOracle) set(tokenID string, start, end float64) {
	f.prices[priceKeyOf(tokenID, windowStart)] = start
	f.prices[priceKeyOf(tokenID, windowEnd)] = end
}

func (f *fakeOracle) PriceAt(ctx context.Context, tokenID string, at time.Time) (types.PricePoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, priceCall{TokenID: tokenID, At: at})
	key := priceKeyOf(tokenID, at)
	if err, ok := f.errs[key]; ok {
		return types.PricePoint{}, err
	}
	point := types.PricePoint{TokenID: tokenID, Timestamp: at}
	if price, ok := f.prices[key]; ok {
		point.Price = price
		point.Found = true
	}
	return point, nil
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeLookup struct {
	symbols map[string]string
	err     error
	calls   int
}

func (f *fakeLookup) LookupSymbol(ctx context.Context, tokenID string) (string, bool, error) {
	f.calls++
	if f.err != nil {
		return "", false, f.err
	}
	s, ok := f.symbols[tokenID]
	return s, ok, nil
}

// memoryStore implements SymbolStore and PriceStore in memory
type memoryStore struct {
	symbols map[string]string
	prices  map[string]types.PricePoint
	getErr  error
	putErr  error
	puts    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{symbols: map[string]string{}, prices: map[string]types.PricePoint{}}
}

type memorySymbolStore struct{ *memoryStore }

func (m memorySymbolStore) Get(ctx context.Context, tokenID string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	s, ok := m.symbols[tokenID]
	return s, ok, nil
}

func (m memorySymbolStore) Put(ctx context.Context, tokenID, symbol string) error {
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.symbols[tokenID] = symbol
	return nil
}

type memoryPriceStore struct{ *memoryStore }

func (m memoryPriceStore) Get(ctx context.Context, tokenID string, at time.Time) (types.PricePoint, bool, error) {
	if m.getErr != nil {
		return types.PricePoint{}, false, m.getErr
	}
	p, ok := m.prices[priceKeyOf(tokenID, at)]
	return p, ok, nil
}

func (m memoryPriceStore) Put(ctx context.Context, point types.PricePoint) error {
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.prices[priceKeyOf(point.TokenID, point.Timestamp)] = point
	return nil
}

func strPtr(s string) *string { return &s }
