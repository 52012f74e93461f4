// Package data provides data access layer implementations.
// It handles database connections, external HTTP clients, and the pricing
// cache.
package data

import (
	"RatePilot/internal/biz"

	"github.com/google/wire"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewMySQLClient,
	NewRedisClient,
	NewPricingCache,
	NewPropertyRepo,
	NewOverrideRepo,
	NewSyncHistoryRepo,
	NewChannelClient,
	NewComputeClient,
	NewCachedComputeClient,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(biz.PropertyRepo), new(*PropertyRepo)),
	wire.Bind(new(biz.OverrideRepo), new(*OverrideRepo)),
	wire.Bind(new(biz.SyncHistoryRepo), new(*SyncHistoryRepo)),
	wire.Bind(new(biz.ChannelClient), new(*ChannelClient)),
	wire.Bind(new(biz.PricingCache), new(*PricingCache)),
	wire.Bind(new(biz.ComputeClient), new(*CachedComputeClient)),
)
