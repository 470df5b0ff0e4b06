package storage

import (
	"context"
	"time"
)

// SymbolCache stores resolved token symbols
type SymbolCache struct {
	cache *CacheService
}

// NewSymbolCache creates a symbol cache backed by redis
func NewSymbolCache(redis *RedisCache, ttl time.Duration) *SymbolCache {
	return &SymbolCache{cache: NewCacheService(redis, ttl)}
}

func symbolKey(tokenID string) string {
	return GenerateCacheKey(CacheKeySymbol, tokenID)
}

// Get returns the cached symbol of tokenID
func (c *SymbolCache) Get(ctx context.Context, tokenID string) (string, bool, error) {
	var symbol string
	hit, err := c.cache.Get(ctx, symbolKey(tokenID), &symbol)
	if err != nil || !hit || symbol == "" {
		return "", false, err
	}
	return symbol, true, nil
}

// Put stores the symbol of tokenID
func (c *SymbolCache) Put(ctx context.Context, tokenID, symbol string) error {
	if symbol == "" {
		return nil
	}
	return c.cache.Set(ctx, symbolKey(tokenID), symbol)
}
