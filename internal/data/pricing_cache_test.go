package data

import (
	"context"
	"io"
	"testing"
	"time"

	"RatePilot/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() log.Logger {
	return log.NewStdLogger(io.Discard)
}

func setupPricingCache(t *testing.T) (*PricingCache, *miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewPricingCache(rdb, testLogger()), mr, rdb
}

func sampleCalendar() []*model.PriceBreakdown {
	return []*model.PriceBreakdown{
		{Date: "2026-09-10", BasePrice: 100, FinalPricePerNight: 95, TotalPrice: 95},
		{Date: "2026-09-11", BasePrice: 100, FinalPricePerNight: 110, TotalPrice: 110},
	}
}

func TestPricingCache_SetGetRoundTrip(t *testing.T) {
	cache, mr, _ := setupPricingCache(t)
	defer mr.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "price:501:2026-09-10:2026-09-11:1", sampleCalendar(), time.Minute))

	var got []*model.PriceBreakdown
	require.NoError(t, cache.Get(ctx, "price:501:2026-09-10:2026-09-11:1", &got))
	require.Len(t, got, 2)
	assert.Equal(t, "2026-09-10", got[0].Date)
	assert.Equal(t, 95.0, got[0].FinalPricePerNight)
}

func TestPricingCache_MissReturnsNotFound(t *testing.T) {
	cache, mr, _ := setupPricingCache(t)
	defer mr.Close()

	var got []*model.PriceBreakdown
	err := cache.Get(context.Background(), "price:999:absent", &got)
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestPricingCache_RedisExpiryIsAMiss(t *testing.T) {
	cache, mr, rdb := setupPricingCache(t)
	defer mr.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "price:501:k", sampleCalendar(), time.Minute))
	mr.FastForward(2 * time.Minute)

	// A fresh cache instance has no local copy, so the expired Redis entry
	// is a miss.
	fresh := NewPricingCache(rdb, testLogger())
	var got []*model.PriceBreakdown
	err := fresh.Get(ctx, "price:501:k", &got)
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestPricingCache_ShortTTLExpiresOnSameInstance(t *testing.T) {
	cache, mr, _ := setupPricingCache(t)
	defer mr.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "price:501:short", sampleCalendar(), 50*time.Millisecond))
	mr.FastForward(time.Second)
	time.Sleep(100 * time.Millisecond)

	// The writing instance's local tier must not serve past the entry TTL.
	var got []*model.PriceBreakdown
	err := cache.Get(ctx, "price:501:short", &got)
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestPricingCache_ShortTTLExpiresWithoutRedis(t *testing.T) {
	cache := NewPricingCache(nil, testLogger())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "price:501:short", sampleCalendar(), 50*time.Millisecond))

	var got []*model.PriceBreakdown
	require.NoError(t, cache.Get(ctx, "price:501:short", &got))

	time.Sleep(100 * time.Millisecond)
	err := cache.Get(ctx, "price:501:short", &got)
	assert.ErrorIs(t, err, ErrCacheNotFound)
}

func TestPricingCache_LocalTierServesAfterRedisLoss(t *testing.T) {
	cache, mr, _ := setupPricingCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "price:501:k", sampleCalendar(), time.Minute))
	mr.Close() // Redis goes away; the hot local tier still answers

	var got []*model.PriceBreakdown
	require.NoError(t, cache.Get(ctx, "price:501:k", &got))
	assert.Len(t, got, 2)
}

func TestPricingCache_InvalidatePrefix(t *testing.T) {
	cache, mr, _ := setupPricingCache(t)
	defer mr.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "price:501:a", sampleCalendar(), time.Minute))
	require.NoError(t, cache.Set(ctx, "price:501:b", sampleCalendar(), time.Minute))
	require.NoError(t, cache.Set(ctx, "price:502:a", sampleCalendar(), time.Minute))

	require.NoError(t, cache.Invalidate(ctx, "price:501:"))

	var got []*model.PriceBreakdown
	assert.ErrorIs(t, cache.Get(ctx, "price:501:a", &got), ErrCacheNotFound)
	assert.ErrorIs(t, cache.Get(ctx, "price:501:b", &got), ErrCacheNotFound)
	// The other property's entries survive.
	assert.NoError(t, cache.Get(ctx, "price:502:a", &got))
}

func TestPricingCache_InvalidateAll(t *testing.T) {
	cache, mr, _ := setupPricingCache(t)
	defer mr.Close()
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "price:501:a", sampleCalendar(), time.Minute))
	require.NoError(t, cache.Set(ctx, "price:502:a", sampleCalendar(), time.Minute))

	require.NoError(t, cache.Invalidate(ctx, ""))

	var got []*model.PriceBreakdown
	assert.ErrorIs(t, cache.Get(ctx, "price:501:a", &got), ErrCacheNotFound)
	assert.ErrorIs(t, cache.Get(ctx, "price:502:a", &got), ErrCacheNotFound)
}

func TestPricingCache_DegradesWithoutRedis(t *testing.T) {
	cache := NewPricingCache(nil, testLogger())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "price:501:a", sampleCalendar(), time.Minute))

	var got []*model.PriceBreakdown
	require.NoError(t, cache.Get(ctx, "price:501:a", &got))
	assert.Len(t, got, 2)

	require.NoError(t, cache.Invalidate(ctx, "price:501:"))
	assert.ErrorIs(t, cache.Get(ctx, "price:501:a", &got), ErrCacheNotFound)
}
