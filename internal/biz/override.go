package biz

import (
	"context"
	"fmt"
	"time"

	"RatePilot/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// PriceCalendarCacheKey is the memoization key for one cached calendar
// fetch: a deterministic composite of property, range, and stay length.
func PriceCalendarCacheKey(propertyID int64, startDate, endDate string, nights int) string {
	return fmt.Sprintf("price:%d:%s:%s:%d", propertyID, startDate, endDate, nights)
}

// PriceCachePrefix scopes invalidation to one property's cached prices.
func PriceCachePrefix(propertyID int64) string {
	return fmt.Sprintf("price:%d:", propertyID)
}

// OverrideUsecase manages manual price overrides. Writes invalidate the
// property's cached prices so the next calendar view reflects them.
type OverrideUsecase struct {
	repo   OverrideRepo
	cache  PricingCache
	logger *log.Helper
}

// NewOverrideUsecase creates the override usecase.
func NewOverrideUsecase(repo OverrideRepo, cache PricingCache, logger log.Logger) *OverrideUsecase {
	return &OverrideUsecase{
		repo:   repo,
		cache:  cache,
		logger: log.NewHelper(logger),
	}
}

// SetOverride creates or replaces the override for (property, date).
func (uc *OverrideUsecase) SetOverride(ctx context.Context, o *model.PriceOverride) error {
	if o.PropertyID <= 0 {
		return &SyncError{Type: ErrorTypeValidation, Message: "property_id must be positive"}
	}
	if o.OverridePrice <= 0 {
		return &SyncError{Type: ErrorTypeValidation, Message: "override_price must be positive"}
	}
	if _, err := time.Parse(model.DateLayout, o.Date); err != nil {
		return &SyncError{Type: ErrorTypeValidation, Message: fmt.Sprintf("invalid date %q", o.Date)}
	}

	if err := uc.repo.Upsert(ctx, o); err != nil {
		return fmt.Errorf("failed to save override for property %d on %s: %w", o.PropertyID, o.Date, err)
	}

	uc.invalidate(ctx, o.PropertyID)
	uc.logger.Infow("price override saved",
		"property_id", o.PropertyID,
		"date", o.Date,
		"price", o.OverridePrice,
		"active", o.IsActive)
	return nil
}

// RemoveOverride deletes the override for (property, date).
func (uc *OverrideUsecase) RemoveOverride(ctx context.Context, propertyID int64, date string) error {
	if err := uc.repo.Delete(ctx, propertyID, date); err != nil {
		return fmt.Errorf("failed to delete override for property %d on %s: %w", propertyID, date, err)
	}
	uc.invalidate(ctx, propertyID)
	uc.logger.Infow("price override removed", "property_id", propertyID, "date", date)
	return nil
}

// ListOverrides returns active overrides in the inclusive range.
func (uc *OverrideUsecase) ListOverrides(ctx context.Context, propertyID int64, startDate, endDate string) ([]*model.PriceOverride, error) {
	return uc.repo.ListActive(ctx, propertyID, startDate, endDate)
}

// invalidate drops the property's cached prices best-effort; the cache is
// not correctness-critical.
func (uc *OverrideUsecase) invalidate(ctx context.Context, propertyID int64) {
	if err := uc.cache.Invalidate(ctx, PriceCachePrefix(propertyID)); err != nil {
		uc.logger.Warnw("failed to invalidate price cache",
			"property_id", propertyID,
			"error", err)
	}
}
