package twap

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// UsdPriceSource resolves the USD value of one whole token
type UsdPriceSource interface {
	UsdPrice(ctx context.Context, chainID ChainID, token Token) (decimal.Decimal, error)
}

// UsdPriceFunc adapts a plain function to UsdPriceSource
type UsdPriceFunc func(ctx context.Context, chainID ChainID, token Token) (decimal.Decimal, error)

// UsdPrice calls f
func (f UsdPriceFunc) UsdPrice(ctx context.Context, chainID ChainID, token Token) (decimal.Decimal, error) {
	return f(ctx, chainID, token)
}

// PriceCache stores USD prices per chain and token. Get returns ErrNotFound
// for a missing or expired entry.
type PriceCache interface {
	Get(ctx context.Context, chainID ChainID, token string) (decimal.Decimal, error)
	Set(ctx context.Context, chainID ChainID, token string, price decimal.Decimal) error
}

type priceEntry struct {
	price     decimal.Decimal
	timestamp time.Time
}

// MemoryPriceCache is an in-process PriceCache with a fixed TTL
type MemoryPriceCache struct {
	ttl     time.Duration
	now     func() time.Time
	entries map[string]priceEntry
	mu      sync.RWMutex
}

// NewMemoryPriceCache creates an in-process cache. A zero ttl never expires.
func NewMemoryPriceCache(ttl time.Duration) *MemoryPriceCache {
	return &MemoryPriceCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]priceEntry),
	}
}

func priceKey(chainID ChainID, token string) string {
	return fmt.Sprintf("usd:%d:%s", chainID, normalizeHex(token))
}

// Get returns the cached price of token
func (c *MemoryPriceCache) Get(_ context.Context, chainID ChainID, token string) (decimal.Decimal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[priceKey(chainID, token)]
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	if c.ttl > 0 && c.now().Sub(entry.timestamp) >= c.ttl {
		return decimal.Zero, ErrNotFound
	}
	return entry.price, nil
}

// Set stores the price of token
func (c *MemoryPriceCache) Set(_ context.Context, chainID ChainID, token string, price decimal.Decimal) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[priceKey(chainID, token)] = priceEntry{price: price, timestamp: c.now()}
	return nil
}

// RedisPriceCache shares USD prices between processes. Each price is a hash
// at "usd:{chainID}:{token}" with fields "price" and "ts" (unix nanoseconds),
// expiring after the TTL.
type RedisPriceCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewRedisPriceCache creates a PriceCache backed by rdb
func NewRedisPriceCache(rdb redis.UniversalClient, ttl time.Duration) *RedisPriceCache {
	return &RedisPriceCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached price of token
func (c *RedisPriceCache) Get(ctx context.Context, chainID ChainID, token string) (decimal.Decimal, error) {
	key := priceKey(chainID, token)
	vals, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return decimal.Zero, fmt.Errorf("redis: get price %s: %w", key, err)
	}
	return parsePriceFields(key, vals)
}

func parsePriceFields(key string, vals map[string]string) (decimal.Decimal, error) {
	priceStr, ok := vals["price"]
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("redis: parse price %s: %w", key, err)
	}
	return price, nil
}

// Set stores the price of token and refreshes its expiry
func (c *RedisPriceCache) Set(ctx context.Context, chainID ChainID, token string, price decimal.Decimal) error {
	key := priceKey(chainID, token)
	fields := map[string]interface{}{
		"price": price.String(),
		"ts":    strconv.FormatInt(time.Now().UnixNano(), 10),
	}

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set price %s: %w", key, err)
	}
	return nil
}

// CachedPriceSource serves prices from a PriceCache and falls back to the
// wrapped source on a miss
type CachedPriceSource struct {
	source UsdPriceSource
	cache  PriceCache
}

// NewCachedPriceSource wraps source with cache
func NewCachedPriceSource(source UsdPriceSource, cache PriceCache) *CachedPriceSource {
	return &CachedPriceSource{source: source, cache: cache}
}

// UsdPrice returns the cached price of token, fetching it on a miss
func (s *CachedPriceSource) UsdPrice(ctx context.Context, chainID ChainID, token Token) (decimal.Decimal, error) {
	if price, err := s.cache.Get(ctx, chainID, token.Address); err == nil {
		return price, nil
	}

	price, err := s.source.UsdPrice(ctx, chainID, token)
	if err != nil {
		return decimal.Zero, err
	}
	// A failed cache write only costs a refetch next time.
	_ = s.cache.Set(ctx, chainID, token.Address, price)
	return price, nil
}

// Compile-time interface checks.
var (
	_ PriceCache     = (*MemoryPriceCache)(nil)
	_ PriceCache     = (*RedisPriceCache)(nil)
	_ UsdPriceSource = (*CachedPriceSource)(nil)
)
