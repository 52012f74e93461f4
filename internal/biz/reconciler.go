package biz

import (
	"context"
	"fmt"

	"RatePilot/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// ReconcileOptions tunes one reconciliation request.
type ReconcileOptions struct {
	// Nights is the stay length priced per date. Defaults to 1.
	Nights int
	// IncludeSeasonalRates keeps the seasonal adjustment in the computed
	// breakdown; when false the adjustment is neutralized before the
	// override step.
	IncludeSeasonalRates bool
	// IncludeDiscountStrategies keeps the last-minute discount; when
	// false the discount is added back before the override step.
	IncludeDiscountStrategies bool
	// FallbackOnOverrideError serves computed prices when the override
	// store is unavailable instead of failing the calendar view.
	FallbackOnOverrideError bool
}

// DefaultReconcileOptions keeps every pricing component enabled and serves
// computed prices when the override store is down.
func DefaultReconcileOptions() ReconcileOptions {
	return ReconcileOptions{
		Nights:                    1,
		IncludeSeasonalRates:      true,
		IncludeDiscountStrategies: true,
		FallbackOnOverrideError:   true,
	}
}

// PriceReconciler merges remote-computed prices with manually-entered
// overrides into the single authoritative per-date view.
type PriceReconciler struct {
	compute   ComputeClient
	overrides OverrideRepo
	logger    *log.Helper
}

// NewPriceReconciler creates a reconciler.
func NewPriceReconciler(compute ComputeClient, overrides OverrideRepo, logger log.Logger) *PriceReconciler {
	return &PriceReconciler{
		compute:   compute,
		overrides: overrides,
		logger:    log.NewHelper(logger),
	}
}

// Reconcile fetches the computed calendar in a single round trip, loads
// active overrides overlapping the range in one query, and merges per date.
// An active override wins completely: per-night and total values are fully
// replaced, never blended, and the pre-override price is preserved for
// audit. Override application always happens last and cannot be toggled off.
func (rc *PriceReconciler) Reconcile(ctx context.Context, propertyID int64, startDate, endDate string, opts ReconcileOptions) ([]*model.ReconciledPriceDay, error) {
	nights := opts.Nights
	if nights < 1 {
		nights = 1
	}

	breakdowns, err := rc.compute.ComputeCalendar(ctx, propertyID, startDate, endDate, nights)
	if err != nil {
		return nil, fmt.Errorf("failed to compute calendar for property %d: %w", propertyID, err)
	}

	overrideByDate := make(map[string]*model.PriceOverride)
	overrides, err := rc.overrides.ListActive(ctx, propertyID, startDate, endDate)
	if err != nil {
		if !opts.FallbackOnOverrideError {
			return nil, fmt.Errorf("failed to load overrides for property %d: %w", propertyID, err)
		}
		// Never block the calendar view on override-store availability.
		rc.logger.Warnw("override lookup failed, serving computed prices only",
			"property_id", propertyID,
			"error", err)
	} else {
		for _, o := range overrides {
			overrideByDate[o.Date] = o
		}
	}

	days := make([]*model.ReconciledPriceDay, 0, len(breakdowns))
	for _, breakdown := range breakdowns {
		days = append(days, mergeDay(breakdown, overrideByDate[breakdown.Date], nights, opts))
	}

	return days, nil
}

// ReconcileDay prices a single (property, date) through the same merge as
// the calendar path, using the single-date compute endpoint instead of a
// one-day range fetch.
func (rc *PriceReconciler) ReconcileDay(ctx context.Context, propertyID int64, date string, opts ReconcileOptions) (*model.ReconciledPriceDay, error) {
	nights := opts.Nights
	if nights < 1 {
		nights = 1
	}

	breakdown, err := rc.compute.ComputePrice(ctx, propertyID, date, nights)
	if err != nil {
		return nil, fmt.Errorf("failed to compute price for property %d on %s: %w", propertyID, date, err)
	}

	var override *model.PriceOverride
	overrides, err := rc.overrides.ListActive(ctx, propertyID, date, date)
	if err != nil {
		if !opts.FallbackOnOverrideError {
			return nil, fmt.Errorf("failed to load overrides for property %d: %w", propertyID, err)
		}
		rc.logger.Warnw("override lookup failed, serving computed price only",
			"property_id", propertyID,
			"date", date,
			"error", err)
	} else if len(overrides) > 0 {
		override = overrides[0]
	}

	return mergeDay(breakdown, override, nights, opts), nil
}

// mergeDay applies the toggles and then the override, which wins completely:
// per-night and total values are fully replaced, never blended, and the
// pre-override price is preserved for audit.
func mergeDay(breakdown *model.PriceBreakdown, o *model.PriceOverride, nights int, opts ReconcileOptions) *model.ReconciledPriceDay {
	day := &model.ReconciledPriceDay{PriceBreakdown: *breakdown}
	applyToggles(&day.PriceBreakdown, nights, opts)

	if o != nil && o.IsActive {
		original := day.FinalPricePerNight
		day.IsOverridden = true
		day.OverridePrice = &o.OverridePrice
		day.OverrideReason = o.Reason
		day.OriginalCalculatedPrice = &original
		day.FinalPricePerNight = o.OverridePrice
		day.TotalPrice = o.OverridePrice * float64(nights)
	}
	return day
}

// applyToggles neutralizes disabled pricing components. SeasonalAdjustment
// is a signed delta included in the final price; LastMinuteDiscount is the
// amount already subtracted from it.
func applyToggles(b *model.PriceBreakdown, nights int, opts ReconcileOptions) {
	changed := false
	if !opts.IncludeSeasonalRates && b.SeasonalAdjustment != 0 {
		b.FinalPricePerNight -= b.SeasonalAdjustment
		b.SeasonalAdjustment = 0
		changed = true
	}
	if !opts.IncludeDiscountStrategies && b.LastMinuteDiscount != 0 {
		b.FinalPricePerNight += b.LastMinuteDiscount
		b.LastMinuteDiscount = 0
		changed = true
	}
	if changed {
		b.TotalPrice = b.FinalPricePerNight * float64(nights)
	}
}
