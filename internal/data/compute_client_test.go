package data

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"RatePilot/internal/biz"
	"RatePilot/internal/conf"
	"RatePilot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"
)

func computeConf(url string) *conf.Sync {
	return &conf.Sync{
		ComputeUrl:     url,
		RequestTimeout: durationpb.New(2 * time.Second),
		CacheTtl:       durationpb.New(time.Minute),
	}
}

func TestComputeClient_ComputePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/price", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "501", q.Get("property_id"))
		assert.Equal(t, "2026-09-10", q.Get("check_date"))
		assert.Equal(t, "2", q.Get("nights"))

		_ = json.NewEncoder(w).Encode(&model.PriceBreakdown{
			Date:               "2026-09-10",
			BasePrice:          100,
			SeasonalAdjustment: 10,
			FinalPricePerNight: 110,
			TotalPrice:         220,
		})
	}))
	defer srv.Close()

	client, err := NewComputeClient(computeConf(srv.URL), testLogger())
	require.NoError(t, err)

	breakdown, err := client.ComputePrice(context.Background(), 501, "2026-09-10", 2)
	require.NoError(t, err)
	assert.Equal(t, 110.0, breakdown.FinalPricePerNight)
	assert.Equal(t, 220.0, breakdown.TotalPrice)
}

func TestComputeClient_ComputeCalendar(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendar", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2026-09-10", q.Get("start_date"))
		assert.Equal(t, "2026-09-11", q.Get("end_date"))

		_ = json.NewEncoder(w).Encode(sampleCalendar())
	}))
	defer srv.Close()

	client, err := NewComputeClient(computeConf(srv.URL), testLogger())
	require.NoError(t, err)

	days, err := client.ComputeCalendar(context.Background(), 501, "2026-09-10", "2026-09-11", 1)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2026-09-11", days[1].Date)
}

func TestComputeClient_BadRequestIsValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nights must be positive", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewComputeClient(computeConf(srv.URL), testLogger())
	require.NoError(t, err)

	_, err = client.ComputeCalendar(context.Background(), 501, "2026-09-10", "2026-09-11", -1)

	var syncErr *biz.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, biz.ErrorTypeValidation, syncErr.Type)
	assert.Contains(t, syncErr.Message, "nights must be positive")
}

func TestComputeClient_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewComputeClient(computeConf(srv.URL), testLogger())
	require.NoError(t, err)

	_, err = client.ComputeCalendar(context.Background(), 501, "2026-09-10", "2026-09-11", 1)

	var syncErr *biz.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, biz.ErrorTypeAPI, syncErr.Type)
	assert.Equal(t, 500, syncErr.StatusCode)
	assert.True(t, syncErr.Recoverable())
}

func TestCachedComputeClient_CalendarIsMemoized(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(sampleCalendar())
	}))
	defer srv.Close()

	cfg := computeConf(srv.URL)
	inner, err := NewComputeClient(cfg, testLogger())
	require.NoError(t, err)
	cached := NewCachedComputeClient(inner, NewPricingCache(nil, testLogger()), cfg, testLogger())

	ctx := context.Background()
	first, err := cached.ComputeCalendar(ctx, 501, "2026-09-10", "2026-09-11", 1)
	require.NoError(t, err)
	second, err := cached.ComputeCalendar(ctx, 501, "2026-09-10", "2026-09-11", 1)
	require.NoError(t, err)

	assert.Equal(t, 1, calls, "second call must be served from cache")
	assert.Equal(t, first, second)

	// A different range misses the cache.
	_, err = cached.ComputeCalendar(ctx, 501, "2026-09-10", "2026-09-12", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCachedComputeClient_ErrorsAreNotCached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(sampleCalendar())
	}))
	defer srv.Close()

	cfg := computeConf(srv.URL)
	inner, err := NewComputeClient(cfg, testLogger())
	require.NoError(t, err)
	cached := NewCachedComputeClient(inner, NewPricingCache(nil, testLogger()), cfg, testLogger())

	ctx := context.Background()
	_, err = cached.ComputeCalendar(ctx, 501, "2026-09-10", "2026-09-11", 1)
	require.Error(t, err)

	days, err := cached.ComputeCalendar(ctx, 501, "2026-09-10", "2026-09-11", 1)
	require.NoError(t, err)
	assert.Len(t, days, 2)
	assert.Equal(t, 2, calls)
}
