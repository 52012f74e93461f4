package biz

import (
	"testing"

	"RatePilot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProperty() *model.Property {
	return &model.Property{
		ID:                1,
		Name:              "Harbor View Cottage",
		BasePrice:         85,
		ChannelPropertyID: 100,
		ChannelRoomTypeID: 9001,
	}
}

func day(date string, price float64) *model.ReconciledPriceDay {
	return &model.ReconciledPriceDay{
		PriceBreakdown: model.PriceBreakdown{
			Date:               date,
			FinalPricePerNight: price,
			TotalPrice:         price,
		},
	}
}

func TestBuildRatePayload_DefaultRateFromBasePrice(t *testing.T) {
	payload := BuildRatePayload(testProperty(), nil)

	assert.Equal(t, int64(100), payload.PropertyID)
	assert.Equal(t, int64(9001), payload.RoomTypeID)
	require.Len(t, payload.Rates, 1)
	assert.True(t, payload.Rates[0].IsDefault)
	assert.Equal(t, 85.0, payload.Rates[0].PricePerDay)
	assert.Equal(t, 1, payload.Rates[0].MinStay)
	assert.NoError(t, ValidateRatePayload(payload))
}

func TestBuildRatePayload_CompressesEqualPriceRuns(t *testing.T) {
	days := []*model.ReconciledPriceDay{
		day("2026-09-10", 100),
		day("2026-09-11", 100),
		day("2026-09-12", 100),
		day("2026-09-13", 120),
		day("2026-09-14", 100),
	}

	payload := BuildRatePayload(testProperty(), days)
	require.Len(t, payload.Rates, 4) // default + 3 runs

	first := payload.Rates[1]
	assert.Equal(t, "2026-09-10", first.StartDate)
	assert.Equal(t, "2026-09-12", first.EndDate)
	assert.Equal(t, 100.0, first.PricePerDay)

	second := payload.Rates[2]
	assert.Equal(t, "2026-09-13", second.StartDate)
	assert.Equal(t, "2026-09-13", second.EndDate)
	assert.Equal(t, 120.0, second.PricePerDay)

	third := payload.Rates[3]
	assert.Equal(t, "2026-09-14", third.StartDate)
	assert.Equal(t, "2026-09-14", third.EndDate)

	assert.NoError(t, ValidateRatePayload(payload))
}

func TestBuildRatePayload_GapBreaksRun(t *testing.T) {
	days := []*model.ReconciledPriceDay{
		day("2026-09-10", 100),
		day("2026-09-11", 100),
		// 2026-09-12 missing
		day("2026-09-13", 100),
	}

	payload := BuildRatePayload(testProperty(), days)
	require.Len(t, payload.Rates, 3)
	assert.Equal(t, "2026-09-11", payload.Rates[1].EndDate)
	assert.Equal(t, "2026-09-13", payload.Rates[2].StartDate)
}

func TestBuildRatePayload_OverriddenPricesUseFinalValue(t *testing.T) {
	overridden := day("2026-09-10", 120)
	overridden.IsOverridden = true

	payload := BuildRatePayload(testProperty(), []*model.ReconciledPriceDay{overridden})
	require.Len(t, payload.Rates, 2)
	assert.Equal(t, 120.0, payload.Rates[1].PricePerDay)
}
