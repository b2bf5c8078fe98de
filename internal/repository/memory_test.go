package repository

import (
	"context"
	"testing"
	"time"

	"airwave/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAvailabilityCache(t *testing.T) {
	cache := NewMemoryAvailabilityCache(time.Hour)
	ctx := context.Background()

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 3)
	info := &models.AvailabilityInfo{
		CatalogID:      "crew-6",
		AvailableCount: 2,
		TotalCount:     3,
		IsAvailable:    true,
	}

	t.Run("MissBeforeSet", func(t *testing.T) {
		got, hit, err := cache.Get(ctx, "crew-6", start, end)
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Nil(t, got)
	})

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, cache.Set(ctx, "crew-6", start, end, info))

		got, hit, err := cache.Get(ctx, "crew-6", start, end)
		require.NoError(t, err)
		require.True(t, hit)
		assert.Equal(t, 2, got.AvailableCount)
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		got, hit, err := cache.Get(ctx, "crew-6", start, end)
		require.NoError(t, err)
		require.True(t, hit)

		got.AvailableCount = 0

		again, hit, err := cache.Get(ctx, "crew-6", start, end)
		require.NoError(t, err)
		require.True(t, hit)
		assert.Equal(t, 2, again.AvailableCount)
	})

	t.Run("InvalidateHidesOldGeneration", func(t *testing.T) {
		require.NoError(t, cache.Invalidate(ctx, "crew-6"))

		_, hit, err := cache.Get(ctx, "crew-6", start, end)
		require.NoError(t, err)
		assert.False(t, hit)
	})

	t.Run("TTLExpiry", func(t *testing.T) {
		short := NewMemoryAvailabilityCache(10 * time.Millisecond)
		require.NoError(t, short.Set(ctx, "crew-6", start, end, info))

		time.Sleep(20 * time.Millisecond)

		_, hit, err := short.Get(ctx, "crew-6", start, end)
		require.NoError(t, err)
		assert.False(t, hit)
	})
}
