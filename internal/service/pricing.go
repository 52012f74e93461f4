package service

import (
	"context"
	"net/http"

	"RatePilot/internal/biz"
	"RatePilot/internal/model"

	kratoserrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// PricingService serves the price calendar and manual override operations.
type PricingService struct {
	reconciler *biz.PriceReconciler
	overrides  *biz.OverrideUsecase
	properties biz.PropertyRepo
	logger     *log.Helper
}

// NewPricingService creates a new PricingService instance.
func NewPricingService(reconciler *biz.PriceReconciler, overrides *biz.OverrideUsecase, properties biz.PropertyRepo, logger log.Logger) *PricingService {
	return &PricingService{
		reconciler: reconciler,
		overrides:  overrides,
		properties: properties,
		logger:     log.NewHelper(logger),
	}
}

// GetCalendarRequest asks for the reconciled calendar of one property.
type GetCalendarRequest struct {
	PropertyID                int64  `json:"property_id"`
	StartDate                 string `json:"start_date"`
	EndDate                   string `json:"end_date"`
	Nights                    int    `json:"nights"`
	IncludeSeasonalRates      *bool  `json:"include_seasonal_rates,omitempty"`
	IncludeDiscountStrategies *bool  `json:"include_discount_strategies,omitempty"`
}

// GetCalendarReply carries the per-date reconciled prices.
type GetCalendarReply struct {
	PropertyID int64                       `json:"property_id"`
	StartDate  string                      `json:"start_date"`
	EndDate    string                      `json:"end_date"`
	Nights     int                         `json:"nights"`
	Days       []*model.ReconciledPriceDay `json:"days"`
}

// GetCalendar returns the authoritative per-date prices for the range, with
// active overrides applied last.
func (s *PricingService) GetCalendar(ctx context.Context, req *GetCalendarRequest) (*GetCalendarReply, error) {
	if req.StartDate == "" || req.EndDate == "" {
		return nil, kratoserrors.New(http.StatusBadRequest, "VALIDATION", "start_date and end_date are required")
	}
	if req.StartDate > req.EndDate {
		return nil, kratoserrors.New(http.StatusBadRequest, "VALIDATION", "start_date must not be after end_date")
	}

	if _, err := s.properties.GetProperty(ctx, req.PropertyID); err != nil {
		return nil, kratoserrors.New(http.StatusNotFound, "PROPERTY_NOT_FOUND", "property not found")
	}

	opts := biz.DefaultReconcileOptions()
	if req.Nights > 0 {
		opts.Nights = req.Nights
	}
	if req.IncludeSeasonalRates != nil {
		opts.IncludeSeasonalRates = *req.IncludeSeasonalRates
	}
	if req.IncludeDiscountStrategies != nil {
		opts.IncludeDiscountStrategies = *req.IncludeDiscountStrategies
	}

	days, err := s.reconciler.Reconcile(ctx, req.PropertyID, req.StartDate, req.EndDate, opts)
	if err != nil {
		s.logger.Errorw("failed to reconcile calendar",
			"property_id", req.PropertyID,
			"error", err)
		return nil, toTransportError(err)
	}

	return &GetCalendarReply{
		PropertyID: req.PropertyID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Nights:     opts.Nights,
		Days:       days,
	}, nil
}

// GetPriceRequest asks for the reconciled price of one (property, date).
type GetPriceRequest struct {
	PropertyID                int64  `json:"property_id"`
	Date                      string `json:"date"`
	Nights                    int    `json:"nights"`
	IncludeSeasonalRates      *bool  `json:"include_seasonal_rates,omitempty"`
	IncludeDiscountStrategies *bool  `json:"include_discount_strategies,omitempty"`
}

// GetPriceReply carries the single reconciled day.
type GetPriceReply struct {
	PropertyID int64                     `json:"property_id"`
	Nights     int                       `json:"nights"`
	Day        *model.ReconciledPriceDay `json:"day"`
}

// GetPrice returns the authoritative price for a single date, with an active
// override applied last.
func (s *PricingService) GetPrice(ctx context.Context, req *GetPriceRequest) (*GetPriceReply, error) {
	if req.Date == "" {
		return nil, kratoserrors.New(http.StatusBadRequest, "VALIDATION", "date is required")
	}

	if _, err := s.properties.GetProperty(ctx, req.PropertyID); err != nil {
		return nil, kratoserrors.New(http.StatusNotFound, "PROPERTY_NOT_FOUND", "property not found")
	}

	opts := biz.DefaultReconcileOptions()
	if req.Nights > 0 {
		opts.Nights = req.Nights
	}
	if req.IncludeSeasonalRates != nil {
		opts.IncludeSeasonalRates = *req.IncludeSeasonalRates
	}
	if req.IncludeDiscountStrategies != nil {
		opts.IncludeDiscountStrategies = *req.IncludeDiscountStrategies
	}

	day, err := s.reconciler.ReconcileDay(ctx, req.PropertyID, req.Date, opts)
	if err != nil {
		s.logger.Errorw("failed to reconcile price",
			"property_id", req.PropertyID,
			"date", req.Date,
			"error", err)
		return nil, toTransportError(err)
	}

	return &GetPriceReply{
		PropertyID: req.PropertyID,
		Nights:     opts.Nights,
		Day:        day,
	}, nil
}

// SetOverrideRequest creates or replaces the override for (property, date).
type SetOverrideRequest struct {
	PropertyID    int64   `json:"property_id"`
	Date          string  `json:"date"`
	OverridePrice float64 `json:"override_price"`
	Reason        *string `json:"reason,omitempty"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

// SetOverrideReply returns the saved override.
type SetOverrideReply struct {
	Override *model.PriceOverride `json:"override"`
}

// SetOverride creates or replaces a manual price override. Omitting
// is_active saves the override as active.
func (s *PricingService) SetOverride(ctx context.Context, req *SetOverrideRequest) (*SetOverrideReply, error) {
	o := &model.PriceOverride{
		PropertyID:    req.PropertyID,
		Date:          req.Date,
		OverridePrice: req.OverridePrice,
		Reason:        req.Reason,
		IsActive:      true,
	}
	if req.IsActive != nil {
		o.IsActive = *req.IsActive
	}

	if err := s.overrides.SetOverride(ctx, o); err != nil {
		return nil, toTransportError(err)
	}
	return &SetOverrideReply{Override: o}, nil
}

// RemoveOverrideRequest deletes the override for (property, date).
type RemoveOverrideRequest struct {
	PropertyID int64  `json:"property_id"`
	Date       string `json:"date"`
}

// RemoveOverrideReply acknowledges the deletion.
type RemoveOverrideReply struct {
	Success bool `json:"success"`
}

// RemoveOverride deletes a manual price override. Removing a missing
// override succeeds.
func (s *PricingService) RemoveOverride(ctx context.Context, req *RemoveOverrideRequest) (*RemoveOverrideReply, error) {
	if err := s.overrides.RemoveOverride(ctx, req.PropertyID, req.Date); err != nil {
		return nil, toTransportError(err)
	}
	return &RemoveOverrideReply{Success: true}, nil
}

// ListOverridesRequest asks for active overrides in an inclusive range.
type ListOverridesRequest struct {
	PropertyID int64  `json:"property_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// ListOverridesReply carries the active overrides ordered by date.
type ListOverridesReply struct {
	Overrides []*model.PriceOverride `json:"overrides"`
}

// ListOverrides returns the active overrides in the range.
func (s *PricingService) ListOverrides(ctx context.Context, req *ListOverridesRequest) (*ListOverridesReply, error) {
	if req.StartDate == "" || req.EndDate == "" {
		return nil, kratoserrors.New(http.StatusBadRequest, "VALIDATION", "start_date and end_date are required")
	}

	overrides, err := s.overrides.ListOverrides(ctx, req.PropertyID, req.StartDate, req.EndDate)
	if err != nil {
		s.logger.Errorw("failed to list overrides",
			"property_id", req.PropertyID,
			"error", err)
		return nil, toTransportError(err)
	}
	return &ListOverridesReply{Overrides: overrides}, nil
}
