package biz

import (
	"context"
	"errors"
	"testing"
	"time"

	"RatePilot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockPricingCache mocks the cache for invalidation accounting.
type mockPricingCache struct {
	mock.Mock
}

func (m *mockPricingCache) Get(ctx context.Context, key string, dest interface{}) error {
	return m.Called(ctx, key, dest).Error(0)
}

func (m *mockPricingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *mockPricingCache) Invalidate(ctx context.Context, prefix string) error {
	return m.Called(ctx, prefix).Error(0)
}

func validOverride() *model.PriceOverride {
	reason := "regatta weekend"
	return &model.PriceOverride{
		PropertyID:    501,
		Date:          "2026-09-10",
		OverridePrice: 120,
		Reason:        &reason,
		IsActive:      true,
	}
}

func TestOverrideUsecase_SetOverrideInvalidatesCache(t *testing.T) {
	repo := new(mockOverrideRepo)
	cache := new(mockPricingCache)
	uc := NewOverrideUsecase(repo, cache, testLogger())

	o := validOverride()
	repo.On("Upsert", mock.Anything, o).Return(nil)
	cache.On("Invalidate", mock.Anything, "price:501:").Return(nil)

	require.NoError(t, uc.SetOverride(context.Background(), o))
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestOverrideUsecase_SetOverrideValidation(t *testing.T) {
	uc := NewOverrideUsecase(new(mockOverrideRepo), new(mockPricingCache), testLogger())
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(o *model.PriceOverride)
	}{
		{"missing property", func(o *model.PriceOverride) { o.PropertyID = 0 }},
		{"zero price", func(o *model.PriceOverride) { o.OverridePrice = 0 }},
		{"negative price", func(o *model.PriceOverride) { o.OverridePrice = -10 }},
		{"bad date", func(o *model.PriceOverride) { o.Date = "10/09/2026" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := validOverride()
			tc.mutate(o)
			err := uc.SetOverride(ctx, o)

			var syncErr *SyncError
			require.ErrorAs(t, err, &syncErr)
			assert.Equal(t, ErrorTypeValidation, syncErr.Type)
		})
	}
}

func TestOverrideUsecase_SetOverrideStoreFailure(t *testing.T) {
	repo := new(mockOverrideRepo)
	cache := new(mockPricingCache)
	uc := NewOverrideUsecase(repo, cache, testLogger())

	repo.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("deadlock"))

	err := uc.SetOverride(context.Background(), validOverride())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save override")
	cache.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestOverrideUsecase_RemoveOverrideInvalidatesCache(t *testing.T) {
	repo := new(mockOverrideRepo)
	cache := new(mockPricingCache)
	uc := NewOverrideUsecase(repo, cache, testLogger())

	repo.On("Delete", mock.Anything, int64(501), "2026-09-10").Return(nil)
	cache.On("Invalidate", mock.Anything, "price:501:").Return(nil)

	require.NoError(t, uc.RemoveOverride(context.Background(), 501, "2026-09-10"))
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestOverrideUsecase_CacheFailureDoesNotFailWrite(t *testing.T) {
	repo := new(mockOverrideRepo)
	cache := new(mockPricingCache)
	uc := NewOverrideUsecase(repo, cache, testLogger())

	repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	cache.On("Invalidate", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	assert.NoError(t, uc.SetOverride(context.Background(), validOverride()))
}
