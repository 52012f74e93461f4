package biz

import (
	"time"

	"RatePilot/internal/model"
)

// BuildRatePayload turns a reconciled calendar into a channel payload for
// one property. The property's base price becomes the single default rate;
// consecutive days with the same final per-night price are compressed into
// one dated range, which keeps payloads small for long calendars.
func BuildRatePayload(property *model.Property, days []*model.ReconciledPriceDay) *model.RatePayload {
	payload := &model.RatePayload{
		PropertyID: property.ChannelPropertyID,
		RoomTypeID: property.ChannelRoomTypeID,
		Rates: []model.RateEntry{{
			IsDefault:   true,
			PricePerDay: property.BasePrice,
			MinStay:     1,
		}},
	}

	var (
		runStart string
		runEnd   string
		runPrice float64
	)
	flush := func() {
		if runStart == "" {
			return
		}
		payload.Rates = append(payload.Rates, model.RateEntry{
			StartDate:   runStart,
			EndDate:     runEnd,
			PricePerDay: runPrice,
			MinStay:     1,
		})
		runStart = ""
	}

	for _, day := range days {
		if runStart != "" && day.FinalPricePerNight == runPrice && isNextDay(runEnd, day.Date) {
			runEnd = day.Date
			continue
		}
		flush()
		runStart = day.Date
		runEnd = day.Date
		runPrice = day.FinalPricePerNight
	}
	flush()

	return payload
}

// isNextDay reports whether b is the calendar day after a. Malformed dates
// break the run so they surface in payload validation instead.
func isNextDay(a, b string) bool {
	ta, err := time.Parse(model.DateLayout, a)
	if err != nil {
		return false
	}
	tb, err := time.Parse(model.DateLayout, b)
	if err != nil {
		return false
	}
	return tb.Sub(ta) == 24*time.Hour
}
