package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"airwave/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, catalogID string, start, end time.Time) (*models.AvailabilityInfo, bool, error) {
	args := m.Called(ctx, catalogID, start, end)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.AvailabilityInfo), args.Bool(1), args.Error(2)
}

func (m *mockCache) Set(ctx context.Context, catalogID string, start, end time.Time, info *models.AvailabilityInfo) error {
	args := m.Called(ctx, catalogID, start, end, info)
	return args.Error(0)
}

func (m *mockCache) Invalidate(ctx context.Context, catalogID string) error {
	args := m.Called(ctx, catalogID)
	return args.Error(0)
}

func TestFailoverAvailabilityCache(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)
	info := &models.AvailabilityInfo{CatalogID: "crew-6", AvailableCount: 1, TotalCount: 1, IsAvailable: true}
	errDown := errors.New("connection refused")

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary := new(mockCache)
		fallback := new(mockCache)
		cache := NewFailoverAvailabilityCache(primary, fallback, &logger)

		primary.On("Get", ctx, "crew-6", start, end).Return(info, true, nil).Once()

		got, hit, err := cache.Get(ctx, "crew-6", start, end)
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, info, got)
		primary.AssertExpectations(t)
		fallback.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("GetFallsBackOnError", func(t *testing.T) {
		primary := new(mockCache)
		fallback := new(mockCache)
		cache := NewFailoverAvailabilityCache(primary, fallback, &logger)

		primary.On("Get", ctx, "crew-6", start, end).Return(nil, false, errDown).Once()
		fallback.On("Get", ctx, "crew-6", start, end).Return(info, true, nil).Twice()

		got, hit, err := cache.Get(ctx, "crew-6", start, end)
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, info, got)

		// Primary is marked down: the next read goes straight to fallback
		_, _, err = cache.Get(ctx, "crew-6", start, end)
		require.NoError(t, err)
		primary.AssertNumberOfCalls(t, "Get", 1)
		fallback.AssertExpectations(t)
	})

	t.Run("SetFallsBackOnError", func(t *testing.T) {
		primary := new(mockCache)
		fallback := new(mockCache)
		cache := NewFailoverAvailabilityCache(primary, fallback, &logger)

		primary.On("Set", ctx, "crew-6", start, end, info).Return(errDown).Once()
		fallback.On("Set", ctx, "crew-6", start, end, info).Return(nil).Once()

		require.NoError(t, cache.Set(ctx, "crew-6", start, end, info))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("InvalidateHitsBothWhileHealthy", func(t *testing.T) {
		primary := new(mockCache)
		fallback := new(mockCache)
		cache := NewFailoverAvailabilityCache(primary, fallback, &logger)

		primary.On("Invalidate", ctx, "crew-6").Return(nil).Once()
		fallback.On("Invalidate", ctx, "crew-6").Return(nil).Once()

		require.NoError(t, cache.Invalidate(ctx, "crew-6"))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoversAfterCooldown", func(t *testing.T) {
		primary := new(mockCache)
		fallback := new(mockCache)
		cache := NewFailoverAvailabilityCache(primary, fallback, &logger)

		cache.isDown.Store(true)
		cache.lastCheck = time.Now().Add(-2 * time.Minute)

		primary.On("Get", ctx, "crew-6", start, end).Return(info, true, nil).Once()

		got, hit, err := cache.Get(ctx, "crew-6", start, end)
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Equal(t, info, got)
		assert.False(t, cache.isDown.Load())
		fallback.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
