package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/wallet-performance/internal/types"
)

// PriceCacheConfig configures a PriceCache
type PriceCacheConfig struct {
	SettledTTL time.Duration // TTL for prices of buckets that have closed
	RecentTTL  time.Duration // TTL for prices inside the still-open bucket and for misses
	Bucket     time.Duration // Price granularity; instants inside one bucket share an entry
	Now        func() time.Time
}

// PriceCache stores historical price lookups keyed by token and price bucket
type PriceCache struct {
	cache      *CacheService
	settledTTL time.Duration
	recentTTL  time.Duration
	bucket     time.Duration
	now        func() time.Time
}

// cachedPrice is the stored form of a price lookup
type cachedPrice struct {
	Price    float64   `json:"price"`
	Found    bool      `json:"found"`
	CachedAt time.Time `json:"cachedAt"`
}

// NewPriceCache creates a price cache backed by redis
func NewPriceCache(redis *RedisCache, cfg PriceCacheConfig) *PriceCache {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	bucket := cfg.Bucket
	if bucket <= 0 {
		bucket = 24 * time.Hour
	}

	return &PriceCache{
		cache:      NewCacheService(redis, cfg.SettledTTL),
		settledTTL: cfg.SettledTTL,
		recentTTL:  cfg.RecentTTL,
		bucket:     bucket,
		now:        now,
	}
}

// bucketStart returns the start of the UTC-aligned bucket containing at
func (c *PriceCache) bucketStart(at time.Time) time.Time {
	return at.UTC().Truncate(c.bucket)
}

func (c *PriceCache) priceKey(tokenID string, at time.Time) string {
	return GenerateCacheKey(CacheKeyPrice, tokenID, strconv.FormatInt(c.bucketStart(at).Unix(), 10))
}

// Get returns the cached lookup for the bucket containing at.
// hit is false on a cache miss.
func (c *PriceCache) Get(ctx context.Context, tokenID string, at time.Time) (point types.PricePoint, hit bool, err error) {
	var entry cachedPrice
	hit, err = c.cache.Get(ctx, c.priceKey(tokenID, at), &entry)
	if err != nil || !hit {
		return types.PricePoint{}, false, err
	}

	return types.PricePoint{
		TokenID:   tokenID,
		Timestamp: at,
		Price:     entry.Price,
		Found:     entry.Found,
	}, true, nil
}

// Put stores a lookup result. Misses and prices of a bucket that has not closed get the short TTL.
func (c *PriceCache) Put(ctx context.Context, point types.PricePoint) error {
	entry := cachedPrice{
		Price:    point.Price,
		Found:    point.Found,
		CachedAt: c.now().UTC(),
	}
	return c.cache.SetWithTTL(ctx, c.priceKey(point.TokenID, point.Timestamp), entry, c.ttlFor(point))
}

func (c *PriceCache) ttlFor(point types.PricePoint) time.Duration {
	closesAt := c.bucketStart(point.Timestamp).Add(c.bucket)
	if !point.Found || c.now().Before(closesAt) {
		return c.recentTTL
	}
	return c.settledTTL
}
