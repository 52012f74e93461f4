package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// ErrCacheNotFound is returned when a cache key does not exist or expired.
var ErrCacheNotFound = errors.New("cache: key not found")

// localCacheSize bounds the in-process tier.
const localCacheSize = 4096

// localCacheTTL bounds how long the in-process tier may hold any entry;
// entries with a shorter caller TTL expire on that TTL instead.
const localCacheTTL = time.Minute

// localEntry carries the serialized value together with its own deadline so
// the local tier never outlives the TTL the caller asked for.
type localEntry struct {
	data      []byte
	expiresAt time.Time
}

// PricingCache is the short-lived memoization layer in front of the remote
// price function. It is two-tiered: an expirable in-process LRU backed by
// Redis. With no Redis client it degrades to the local tier alone, and
// callers must tolerate full unavailability by recomputing from source.
type PricingCache struct {
	local  *expirable.LRU[string, localEntry]
	rdb    *redis.Client
	logger *log.Helper
}

// NewPricingCache creates the cache. rdb may be nil.
func NewPricingCache(rdb *redis.Client, logger log.Logger) *PricingCache {
	return &PricingCache{
		local:  expirable.NewLRU[string, localEntry](localCacheSize, nil, localCacheTTL),
		rdb:    rdb,
		logger: log.NewHelper(logger),
	}
}

// localAdd stores data in the local tier with the entry's own deadline,
// capped at localCacheTTL. A non-positive ttl means the backing entry never
// expires, so only the hot-layer cap applies.
func (c *PricingCache) localAdd(key string, data []byte, ttl time.Duration) {
	if ttl <= 0 || ttl > localCacheTTL {
		ttl = localCacheTTL
	}
	c.local.Add(key, localEntry{data: data, expiresAt: time.Now().Add(ttl)})
}

// Get deserializes the cached value into dest. Expired entries behave as
// misses: Redis removes them server-side, the local tier checks each entry's
// deadline on read.
func (c *PricingCache) Get(ctx context.Context, key string, dest interface{}) error {
	if entry, ok := c.local.Get(key); ok {
		if time.Now().Before(entry.expiresAt) {
			if err := json.Unmarshal(entry.data, dest); err != nil {
				return fmt.Errorf("cache: failed to unmarshal value for key %s: %w", key, err)
			}
			return nil
		}
		c.local.Remove(key)
	}

	if c.rdb == nil {
		return ErrCacheNotFound
	}

	pipe := c.rdb.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("cache: failed to get key %s: %w", key, err)
	}

	val, err := getCmd.Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheNotFound
		}
		return fmt.Errorf("cache: failed to get key %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("cache: failed to unmarshal value for key %s: %w", key, err)
	}
	// Repopulate the local tier with the remaining Redis lifetime.
	c.localAdd(key, []byte(val), ttlCmd.Val())
	return nil
}

// Set stores a value in both tiers with the specified TTL.
func (c *PricingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: failed to marshal value for key %s: %w", key, err)
	}

	c.localAdd(key, data, ttl)

	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("cache: failed to set key %s: %w", key, err)
	}
	return nil
}

// Invalidate evicts keys matching the prefix from both tiers; an empty
// prefix clears everything. Used after price-affecting writes.
func (c *PricingCache) Invalidate(ctx context.Context, prefix string) error {
	if prefix == "" {
		c.local.Purge()
		if c.rdb != nil {
			if err := c.rdb.FlushDB(ctx).Err(); err != nil {
				return fmt.Errorf("cache: failed to flush: %w", err)
			}
		}
		return nil
	}

	for _, key := range c.local.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.local.Remove(key)
		}
	}

	if c.rdb == nil {
		return nil
	}

	var cursor uint64
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("cache: failed to scan prefix %s: %w", prefix, err)
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("cache: failed to delete keys for prefix %s: %w", prefix, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
