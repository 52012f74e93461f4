// Package model contains the domain value objects shared across layers.
package model

import "time"

// DateLayout is the ISO date format used for all per-day pricing keys.
const DateLayout = "2006-01-02"

// PriceBreakdown is the computed price for one (property, date, nights)
// tuple as returned by the remote price-compute function. It is immutable
// once returned.
type PriceBreakdown struct {
	Date               string  `json:"date"`
	BasePrice          float64 `json:"base_price"`
	SeasonalAdjustment float64 `json:"seasonal_adjustment"`
	LastMinuteDiscount float64 `json:"last_minute_discount"`
	FinalPricePerNight float64 `json:"final_price_per_night"`
	TotalPrice         float64 `json:"total_price"`
	MinPriceEnforced   bool    `json:"min_price_enforced"`
}

// PriceOverride is an operator-entered price that unconditionally replaces
// the computed price for a specific property and date while active.
type PriceOverride struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	PropertyID    int64     `json:"property_id" gorm:"uniqueIndex:uk_property_date;not null"`
	Date          string    `json:"date" gorm:"uniqueIndex:uk_property_date;size:10;not null"`
	OverridePrice float64   `json:"override_price" gorm:"not null"`
	Reason        *string   `json:"reason,omitempty" gorm:"size:500"`
	IsActive      bool      `json:"is_active" gorm:"default:true"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (PriceOverride) TableName() string {
	return "price_overrides"
}

// ReconciledPriceDay is the authoritative per-date view merging the computed
// breakdown with any active override. When IsOverridden is true,
// FinalPricePerNight equals the override price, TotalPrice equals
// override * nights, and the pre-override value is kept in
// OriginalCalculatedPrice for audit and rollback display.
type ReconciledPriceDay struct {
	PriceBreakdown

	IsOverridden            bool     `json:"is_overridden"`
	OverridePrice           *float64 `json:"override_price,omitempty"`
	OverrideReason          *string  `json:"override_reason,omitempty"`
	OriginalCalculatedPrice *float64 `json:"original_calculated_price,omitempty"`
}

// Property is a vacation-rental property managed by the console. The channel
// identifiers bind it to the external booking channel; SyncEnabled gates the
// nightly auto-push.
type Property struct {
	ID                int64     `json:"id" gorm:"primaryKey"`
	Name              string    `json:"name" gorm:"size:255;not null"`
	BasePrice         float64   `json:"base_price" gorm:"not null"`
	MinPrice          float64   `json:"min_price"`
	ChannelPropertyID int64     `json:"channel_property_id" gorm:"index"`
	ChannelRoomTypeID int64     `json:"channel_room_type_id"`
	SyncEnabled       bool      `json:"sync_enabled" gorm:"default:false"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Property) TableName() string {
	return "properties"
}

// RateEntry is one rate line in a channel push payload. Exactly one entry in
// a payload must have IsDefault set; dated entries carry a closed date range.
type RateEntry struct {
	IsDefault                 bool    `json:"isDefault"`
	StartDate                 string  `json:"startDate,omitempty"`
	EndDate                   string  `json:"endDate,omitempty"`
	PricePerDay               float64 `json:"pricePerDay"`
	MinStay                   int     `json:"minStay"`
	MaxStay                   int     `json:"maxStay"`
	PricePerAdditionalGuest   float64 `json:"pricePerAdditionalGuest"`
	AdditionalGuestsStartFrom int     `json:"additionalGuestsStartFrom"`
}

// RatePayload is the body of a single channel rate-update POST for one
// property.
type RatePayload struct {
	PropertyID int64       `json:"propertyId"`
	RoomTypeID int64       `json:"roomTypeId"`
	Rates      []RateEntry `json:"rates"`
}
