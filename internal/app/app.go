// Package app assembles the wallet performance services from configuration.
package app

import (
	"fmt"
	"time"

	"github.com/wallet-performance/internal/adapter"
	"github.com/wallet-performance/internal/circuitbreaker"
	"github.com/wallet-performance/internal/config"
	apperrors "github.com/wallet-performance/internal/errors"
	"github.com/wallet-performance/internal/logging"
	"github.com/wallet-performance/internal/ratelimit"
	"github.com/wallet-performance/internal/retry"
	"github.com/wallet-performance/internal/service"
	"github.com/wallet-performance/internal/storage"
)

// Options overrides runtime collaborators, mostly for tests
type Options struct {
	Clock ratelimit.Clock  // Drives pacing, retry and breaker timing. Nil means the wall clock.
	Now   func() time.Time // Drives window and cache freshness. Nil means time.Now.
}

// App holds the wired services and the resources they own
type App struct {
	Holdings    *service.HoldingsService
	Performance *service.PerformanceService

	pricePacer    *ratelimit.Pacer
	metadataPacer *ratelimit.Pacer
	breaker       *circuitbreaker.CircuitBreaker
	lookups       *service.LookupMonitor
	rpcClient     *adapter.SolanaRPCClient
	redis         *storage.RedisCache
}

// Build wires the holdings source, price oracle chain and symbol resolver described by cfg.
// Caching is enabled only when a Redis address is configured.
func Build(cfg *config.Config, opts Options) (*App, error) {
	logger := logging.GetGlobalLogger()
	a := &App{}

	source, err := a.holdingsSource(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		a.redis, err = storage.NewRedisCache(&cfg.Redis)
		if err != nil {
			a.Close()
			return nil, err
		}
		logger.WithField("addr", cfg.Redis.Addr).Info("Price and symbol caching enabled")
	} else {
		logger.Info("REDIS_ADDR not set, caching disabled")
	}

	a.pricePacer, err = ratelimit.NewPacer(&ratelimit.PacerConfig{
		Name:     "birdeye",
		Interval: cfg.Pacing.PriceInterval,
		Clock:    opts.Clock,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("price pacer: %w", err)
	}

	a.metadataPacer, err = ratelimit.NewPacer(&ratelimit.PacerConfig{
		Name:      "solscan",
		Interval:  cfg.Pacing.MetadataInterval,
		Unlimited: cfg.Pacing.MetadataInterval == 0,
		Clock:     opts.Clock,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("metadata pacer: %w", err)
	}

	breakerCfg := circuitbreaker.DefaultConfig("solscan")
	breakerCfg.Clock = opts.Clock
	a.breaker = circuitbreaker.NewCircuitBreaker(breakerCfg)

	retryCfg := &retry.RetryConfig{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
		Multiplier:   2.0,
		Retryable:    apperrors.IsRetryable,
		Clock:        opts.Clock,
	}

	var prices service.PriceOracle = service.NewPacedPriceOracle(
		adapter.NewBirdeyeClient(adapter.BirdeyeConfig{
			BaseURL:    cfg.Birdeye.BaseURL,
			APIKey:     cfg.Birdeye.APIKey,
			Chain:      cfg.Birdeye.Chain,
			BucketType: cfg.Birdeye.BucketType,
			BucketSpan: cfg.Birdeye.BucketSpan,
		}),
		a.pricePacer,
		retryCfg,
	)

	var symbolStore service.SymbolStore
	strategies := []service.SymbolStrategy{service.NewKnownTokenStrategy(nil)}
	if a.redis != nil {
		cached := service.NewCachedPriceOracle(prices, storage.NewPriceCache(a.redis, storage.PriceCacheConfig{
			SettledTTL: cfg.Redis.PriceTTL,
			RecentTTL:  cfg.Redis.RecentPriceTTL,
			Bucket:     cfg.Birdeye.BucketSpan,
			Now:        opts.Now,
		}))
		a.lookups = service.NewLookupMonitor()
		cached.SetMonitor(a.lookups)
		prices = cached
		symbolStore = storage.NewSymbolCache(a.redis, cfg.Redis.SymbolTTL)
		strategies = append(strategies, service.NewCachedSymbolStrategy(symbolStore))
	}

	solscan := adapter.NewSolscanClient(adapter.SolscanConfig{
		BaseURL: cfg.Solscan.BaseURL,
		APIKey:  cfg.Solscan.APIKey,
	})
	strategies = append(strategies, service.NewRemoteSymbolStrategy(solscan, a.metadataPacer, a.breaker, symbolStore))

	a.Holdings = service.NewHoldingsService(source)
	a.Performance = service.NewPerformanceService(
		a.Holdings,
		service.NewSymbolResolver(strategies...),
		prices,
		service.PerformanceConfig{Lookback: cfg.Window.Lookback, Now: opts.Now},
	)

	return a, nil
}

func (a *App) holdingsSource(cfg *config.Config) (service.HoldingsSource, error) {
	switch cfg.Solana.HoldingsSource {
	case config.HoldingsSourceSolanaFM:
		logging.WithField("baseUrl", cfg.SolanaFM.BaseURL).Info("Using SolanaFM holdings source")
		return adapter.NewSolanaFMClient(adapter.SolanaFMConfig{
			BaseURL: cfg.SolanaFM.BaseURL,
			APIKey:  cfg.SolanaFM.APIKey,
			Timeout: cfg.Solana.Timeout,
		}), nil
	case config.HoldingsSourceRPC, "":
		client, err := adapter.NewSolanaRPCClient(adapter.SolanaRPCConfig{
			PrimaryURL:       cfg.Solana.RPCPrimary,
			SecondaryURL:     cfg.Solana.RPCSecondary,
			IncludeNative:    cfg.Solana.IncludeNative,
			IncludeToken2022: cfg.Solana.IncludeToken2022,
			Timeout:          cfg.Solana.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("solana rpc client: %w", err)
		}
		a.rpcClient = client
		logging.WithField("endpoints", client.Endpoints().Len()).Info("Using Solana RPC holdings source")
		return client, nil
	default:
		return nil, fmt.Errorf("unknown holdings source %q", cfg.Solana.HoldingsSource)
	}
}

// Diagnostics reports pacing, cache and endpoint health
func (a *App) Diagnostics() map[string]interface{} {
	data := map[string]interface{}{
		"pacers":         []ratelimit.PacerStats{a.pricePacer.Stats(), a.metadataPacer.Stats()},
		"symbolBreaker":  a.breaker.GetState(),
		"cachingEnabled": a.redis != nil,
	}
	if a.lookups != nil {
		data["priceLookups"] = a.lookups.GetStats()
	}
	if a.rpcClient != nil {
		data["rpcEndpoints"] = a.rpcClient.Endpoints().Health()
	}
	return data
}

// Close releases the RPC connections and the Redis client
func (a *App) Close() {
	if a.rpcClient != nil {
		a.rpcClient.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logging.WithError(err).Warn("Failed to close redis")
		}
	}
}
