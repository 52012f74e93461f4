package biz

import (
	"fmt"
	"strings"
	"time"

	"RatePilot/internal/model"
)

// stayBucket identifies a stay-length bucket for overlap detection.
type stayBucket struct {
	minStay int
	maxStay int
}

// ValidateRatePayload checks a payload structurally before any network call.
// Invalid payloads short-circuit to a failed operation without consuming a
// retry or breaker attempt. All problems are collected into one message.
func ValidateRatePayload(p *model.RatePayload) error {
	var problems []string

	if p == nil {
		return &SyncError{Type: ErrorTypeValidation, Message: "payload is nil"}
	}
	if p.PropertyID <= 0 {
		problems = append(problems, "propertyId must be positive")
	}
	if p.RoomTypeID <= 0 {
		problems = append(problems, "roomTypeId must be positive")
	}
	if len(p.Rates) == 0 {
		problems = append(problems, "at least one rate entry is required")
	}

	defaults := 0
	type datedRange struct {
		start, end time.Time
		bucket     stayBucket
	}
	var ranges []datedRange

	for i, rate := range p.Rates {
		if rate.IsDefault {
			defaults++
			if rate.StartDate != "" || rate.EndDate != "" {
				problems = append(problems, fmt.Sprintf("rates[%d]: default rate must not carry a date range", i))
			}
		} else {
			start, err := time.Parse(model.DateLayout, rate.StartDate)
			if err != nil {
				problems = append(problems, fmt.Sprintf("rates[%d]: invalid startDate %q", i, rate.StartDate))
				continue
			}
			end, err := time.Parse(model.DateLayout, rate.EndDate)
			if err != nil {
				problems = append(problems, fmt.Sprintf("rates[%d]: invalid endDate %q", i, rate.EndDate))
				continue
			}
			if end.Before(start) {
				problems = append(problems, fmt.Sprintf("rates[%d]: endDate before startDate", i))
				continue
			}
			ranges = append(ranges, datedRange{
				start:  start,
				end:    end,
				bucket: stayBucket{minStay: rate.MinStay, maxStay: rate.MaxStay},
			})
		}

		if rate.PricePerDay <= 0 {
			problems = append(problems, fmt.Sprintf("rates[%d]: pricePerDay must be positive", i))
		}
		if rate.MinStay < 1 {
			problems = append(problems, fmt.Sprintf("rates[%d]: minStay must be at least 1", i))
		}
		if rate.MaxStay != 0 && rate.MaxStay < rate.MinStay {
			problems = append(problems, fmt.Sprintf("rates[%d]: maxStay below minStay", i))
		}
		if rate.PricePerAdditionalGuest < 0 {
			problems = append(problems, fmt.Sprintf("rates[%d]: pricePerAdditionalGuest must not be negative", i))
		}
	}

	if defaults == 0 {
		problems = append(problems, "exactly one default rate is required, found none")
	} else if defaults > 1 {
		problems = append(problems, fmt.Sprintf("exactly one default rate is required, found %d", defaults))
	}

	// Overlapping date ranges are only a conflict within the same
	// stay-length bucket.
	for i := 0; i < len(ranges); i++ {
		for j := i + 1; j < len(ranges); j++ {
			if ranges[i].bucket != ranges[j].bucket {
				continue
			}
			if !ranges[i].start.After(ranges[j].end) && !ranges[j].start.After(ranges[i].end) {
				problems = append(problems, fmt.Sprintf(
					"overlapping date ranges for stay bucket %d-%d",
					ranges[i].bucket.minStay, ranges[i].bucket.maxStay))
			}
		}
	}

	if len(problems) > 0 {
		return &SyncError{
			Type:    ErrorTypeValidation,
			Message: "invalid rate payload: " + strings.Join(problems, "; "),
		}
	}
	return nil
}
