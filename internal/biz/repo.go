package biz

import (
	"context"
	"time"

	"RatePilot/internal/model"
)

// PropertyRepo reads property records from the store.
type PropertyRepo interface {
	// GetProperty returns one property by ID.
	GetProperty(ctx context.Context, id int64) (*model.Property, error)

	// ListSyncEnabled returns all properties with channel sync enabled.
	ListSyncEnabled(ctx context.Context) ([]*model.Property, error)
}

// OverrideRepo is the override store. Uniqueness per (property, date) is
// enforced by the store.
type OverrideRepo interface {
	// ListActive returns active overrides overlapping [startDate, endDate],
	// both inclusive ISO dates.
	ListActive(ctx context.Context, propertyID int64, startDate, endDate string) ([]*model.PriceOverride, error)

	// Upsert creates or replaces the override for (property, date).
	Upsert(ctx context.Context, o *model.PriceOverride) error

	// Delete removes the override for (property, date).
	Delete(ctx context.Context, propertyID int64, date string) error
}

// SyncHistoryRepo persists one record per sync operation for operator
// visibility and later audit.
type SyncHistoryRepo interface {
	// Record stores a terminal sync operation.
	Record(ctx context.Context, op *model.SyncOperation) error

	// ListRecent returns the most recent operations for a property.
	ListRecent(ctx context.Context, propertyID int64, limit int) ([]*model.SyncOperation, error)
}

// ComputeClient consumes the remote price-computation function layer. Any
// non-success is retryable by default unless the error explicitly denotes a
// validation or client error.
type ComputeClient interface {
	// ComputePrice returns the breakdown for one (property, date, nights).
	ComputePrice(ctx context.Context, propertyID int64, checkDate string, nights int) (*model.PriceBreakdown, error)

	// ComputeCalendar returns dated breakdowns for the inclusive range in
	// a single round trip.
	ComputeCalendar(ctx context.Context, propertyID int64, startDate, endDate string, nights int) ([]*model.PriceBreakdown, error)
}

// ChannelClient pushes rate payloads to the external booking channel.
type ChannelClient interface {
	// PushRates POSTs one property's rates. The returned status is zero
	// when no HTTP response was received.
	PushRates(ctx context.Context, payload *model.RatePayload) (int, error)

	// InvalidateCredential drops any cached channel credential state
	// after an auth rejection.
	InvalidateCredential(ctx context.Context)
}

// PricingCache is the short-lived memoization layer in front of the compute
// function. Callers must tolerate cache unavailability by recomputing from
// source.
type PricingCache interface {
	// Get deserializes the cached value into dest; expired entries behave
	// as misses and are removed.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Invalidate clears keys matching the prefix; an empty prefix clears
	// everything.
	Invalidate(ctx context.Context, prefix string) error
}
