package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-performance/internal/adapter"
	"github.com/wallet-performance/internal/config"
	"github.com/wallet-performance/internal/logging"
	"github.com/wallet-performance/internal/ratelimit"
	"github.com/wallet-performance/internal/service"
	"github.com/wallet-performance/internal/types"
)

const (
	testWallet = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	samoMint   = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
)

var testNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

type upstreams struct {
	rpc     *httptest.Server
	birdeye *httptest.Server
	solscan *httptest.Server

	priceCalls  atomic.Int32
	symbolCalls atomic.Int32
}

func tokenAccount(mint, amount string, decimals int) map[string]interface{} {
	return map[string]interface{}{
		"pubkey": "acct-" + mint[:4],
		"account": map[string]interface{}{
			"data": map[string]interface{}{
				"parsed": map[string]interface{}{
					"info": map[string]interface{}{
						"mint":        mint,
						"tokenAmount": map[string]interface{}{"amount": amount, "decimals": decimals},
					},
				},
			},
		},
	}
}

// startUpstreams serves a wallet holding 100 USDC, 1000 SAMO and 1 SOL.
// Start prices are USDC 1, SAMO 0.01, SOL 100; end prices are USDC 1, SAMO 0.005, SOL 150.
func startUpstreams(t *testing.T) *upstreams {
	t.Helper()
	u := &upstreams{}

	u.rpc = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result interface{}
		switch req.Method {
		case "getTokenAccountsByOwner":
			var filter map[string]string
			require.NoError(t, json.Unmarshal(req.Params[1], &filter))
			accounts := []interface{}{}
			if filter["programId"] == adapter.TokenProgramID {
				accounts = append(accounts,
					tokenAccount(types.MintUSDC, "100000000", 6),
					tokenAccount(samoMint, "1000000000000", 9),
				)
			}
			result = map[string]interface{}{"value": accounts}
		case "getBalance":
			result = map[string]interface{}{"value": 1000000000}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
	t.Cleanup(u.rpc.Close)

	startPrices := map[string]float64{types.MintUSDC: 1, samoMint: 0.01, types.MintWrappedSOL: 100}
	endPrices := map[string]float64{types.MintUSDC: 1, samoMint: 0.005, types.MintWrappedSOL: 150}
	u.birdeye = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.priceCalls.Add(1)
		q := r.URL.Query()
		to, err := strconv.ParseInt(q.Get("time_to"), 10, 64)
		require.NoError(t, err)

		prices := startPrices
		if to >= testNow.Unix() {
			prices = endPrices
		}
		items := []interface{}{}
		if price, ok := prices[q.Get("address")]; ok {
			items = append(items, map[string]interface{}{"unixTime": to - 60, "value": price})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": map[string]interface{}{"items": items}})
	}))
	t.Cleanup(u.birdeye.Close)

	u.solscan = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.symbolCalls.Add(1)
		if r.URL.Query().Get("tokenAddress") != samoMint {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"SAMO","name":"Samoyed Coin"}`))
	}))
	t.Cleanup(u.solscan.Close)

	return u
}

func testConfig(u *upstreams) *config.Config {
	return &config.Config{
		Solana: config.SolanaConfig{
			RPCPrimary:       u.rpc.URL,
			HoldingsSource:   config.HoldingsSourceRPC,
			IncludeNative:    true,
			IncludeToken2022: true,
		},
		Birdeye:  config.BirdeyeConfig{BaseURL: u.birdeye.URL, BucketType: "1D", BucketSpan: 24 * time.Hour},
		Solscan:  config.SolscanConfig{BaseURL: u.solscan.URL},
		SolanaFM: config.SolanaFMConfig{BaseURL: u.rpc.URL},
		Pacing:   config.PacingConfig{PriceInterval: time.Second, MetadataInterval: time.Second},
		Retry:    config.RetryConfig{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond, MaxDelay: 2 * time.Second},
		Window:   config.WindowConfig{Lookback: 30 * 24 * time.Hour},
		Redis: config.RedisConfig{
			PriceTTL:       7 * 24 * time.Hour,
			RecentPriceTTL: 5 * time.Minute,
			SymbolTTL:      24 * time.Hour,
		},
	}
}

func quietLogs() {
	logging.SetGlobalLogger(logging.NewLoggerWithOutput(logging.LevelError, logging.FormatJSON, io.Discard))
}

func findToken(t *testing.T, p *types.PortfolioPerformance, tokenID string) types.TokenPerformance {
	t.Helper()
	for _, tok := range p.Tokens {
		if tok.TokenID == tokenID {
			return tok
		}
	}
	require.Failf(t, "token missing", "token %s not in result", tokenID)
	return types.TokenPerformance{}
}

func TestBuild_EndToEndWithCache(t *testing.T) {
	quietLogs()
	u := startUpstreams(t)
	mr := miniredis.RunT(t)

	cfg := testConfig(u)
	cfg.Redis.Addr = mr.Addr()

	clock := ratelimit.NewManualClock(testNow)
	a, err := Build(cfg, Options{Clock: clock, Now: func() time.Time { return testNow }})
	require.NoError(t, err)
	defer a.Close()

	result, err := a.Performance.ComputeRecentPerformance(context.Background(), testWallet)
	require.NoError(t, err)

	assert.Equal(t, types.StatusOK, result.Status)
	require.Len(t, result.Tokens, 3)
	assert.Empty(t, result.Skipped)

	usdc := findToken(t, result, types.MintUSDC)
	assert.Equal(t, "USDC", usdc.Symbol)
	assert.InDelta(t, 0.0, usdc.PercentChange, 1e-9)

	samo := findToken(t, result, samoMint)
	assert.Equal(t, "SAMO", samo.Symbol)
	assert.Equal(t, "1000", samo.Quantity.String())
	assert.InDelta(t, -50.0, samo.PercentChange, 1e-9)

	sol := findToken(t, result, types.MintWrappedSOL)
	assert.Equal(t, "SOL", sol.Symbol)
	assert.InDelta(t, 50.0, sol.PercentChange, 1e-9)

	// End values 100 + 5 + 150 weight the changes 0, -50 and +50
	require.NotNil(t, result.OverallPercent)
	assert.InDelta(t, (50.0*150-50.0*5)/255, *result.OverallPercent, 1e-9)

	assert.Equal(t, int32(6), u.priceCalls.Load())
	assert.Equal(t, int32(1), u.symbolCalls.Load(), "only the unknown mint reaches the metadata source")
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second, time.Second, time.Second}, clock.Sleeps())

	// A second run is answered from redis
	again, err := a.Performance.ComputeRecentPerformance(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Equal(t, *result.OverallPercent, *again.OverallPercent)
	assert.Equal(t, int32(6), u.priceCalls.Load())
	assert.Equal(t, int32(1), u.symbolCalls.Load())

	diag := a.Diagnostics()
	assert.Equal(t, true, diag["cachingEnabled"])
	assert.Contains(t, diag, "rpcEndpoints")
	lookups := diag["priceLookups"].(service.LookupStats)
	assert.Equal(t, int64(6), lookups.CacheMisses)
	assert.Equal(t, int64(6), lookups.CacheHits)
}

func TestBuild_CacheSharedAcrossRunsInSameBucket(t *testing.T) {
	quietLogs()
	u := startUpstreams(t)
	mr := miniredis.RunT(t)

	cfg := testConfig(u)
	cfg.Redis.Addr = mr.Addr()

	now := testNow
	a, err := Build(cfg, Options{
		Clock: ratelimit.NewManualClock(testNow),
		Now:   func() time.Time { return now },
	})
	require.NoError(t, err)
	defer a.Close()

	first, err := a.Performance.ComputeRecentPerformance(context.Background(), testWallet)
	require.NoError(t, err)
	require.Equal(t, int32(6), u.priceCalls.Load())

	for _, step := range []time.Duration{time.Second, time.Minute, time.Hour} {
		now = now.Add(step)
		again, err := a.Performance.ComputeRecentPerformance(context.Background(), testWallet)
		require.NoError(t, err)
		assert.Equal(t, *first.OverallPercent, *again.OverallPercent)
		assert.Equal(t, int32(6), u.priceCalls.Load(), "run at %s reuses the cached daily prices", now)
	}

	lookups := a.Diagnostics()["priceLookups"].(service.LookupStats)
	assert.Equal(t, int64(6), lookups.CacheMisses)
	assert.Equal(t, int64(18), lookups.CacheHits)
}

func TestBuild_WithoutCache(t *testing.T) {
	quietLogs()
	u := startUpstreams(t)

	clock := ratelimit.NewManualClock(testNow)
	a, err := Build(testConfig(u), Options{Clock: clock, Now: func() time.Time { return testNow }})
	require.NoError(t, err)
	defer a.Close()

	for i := 0; i < 2; i++ {
		_, err := a.Performance.ComputeRecentPerformance(context.Background(), testWallet)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(12), u.priceCalls.Load())
	assert.Equal(t, int32(2), u.symbolCalls.Load())
	assert.Equal(t, false, a.Diagnostics()["cachingEnabled"])
}

func TestBuild_InvalidWallet(t *testing.T) {
	quietLogs()
	u := startUpstreams(t)

	a, err := Build(testConfig(u), Options{Clock: ratelimit.NewManualClock(testNow)})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Performance.ComputeRecentPerformance(context.Background(), "not-a-wallet!")
	require.Error(t, err)
	assert.Equal(t, int32(0), u.priceCalls.Load())
}

func TestBuild_Errors(t *testing.T) {
	quietLogs()
	u := startUpstreams(t)

	t.Run("unknown holdings source", func(t *testing.T) {
		cfg := testConfig(u)
		cfg.Solana.HoldingsSource = "etherscan"
		_, err := Build(cfg, Options{})
		assert.ErrorContains(t, err, "unknown holdings source")
	})

	t.Run("unreachable redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig(u)
		cfg.Redis.Addr = mr.Addr()
		mr.Close()
		_, err := Build(cfg, Options{})
		assert.Error(t, err)
	})

	t.Run("solanafm source has no rpc endpoints", func(t *testing.T) {
		cfg := testConfig(u)
		cfg.Solana.HoldingsSource = config.HoldingsSourceSolanaFM
		a, err := Build(cfg, Options{})
		require.NoError(t, err)
		defer a.Close()
		assert.NotContains(t, a.Diagnostics(), "rpcEndpoints")
	})
}
