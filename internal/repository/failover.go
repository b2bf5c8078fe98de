package repository

import (
	"context"
	"sync/atomic"
	"time"

	"airwave/internal/domain"
	"airwave/internal/models"

	"github.com/rs/zerolog"
)

// FailoverAvailabilityCache wraps a Redis-backed cache with an in-memory
// fallback so availability lookups keep working through a Redis outage.
type FailoverAvailabilityCache struct {
	primary   domain.AvailabilityCache
	fallback  domain.AvailabilityCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverAvailabilityCache(primary, fallback domain.AvailabilityCache, logger *zerolog.Logger) *FailoverAvailabilityCache {
	return &FailoverAvailabilityCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (c *FailoverAvailabilityCache) Get(ctx context.Context, catalogID string, start, end time.Time) (*models.AvailabilityInfo, bool, error) {
	if !c.isDown.Load() {
		info, hit, err := c.primary.Get(ctx, catalogID, start, end)
		if err == nil {
			return info, hit, nil
		}
		c.logger.Error().Err(err).Msg("Primary availability cache failed, falling back to memory")
		c.isDown.Store(true)
		c.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if c.isDown.Load() && time.Since(c.lastCheck) > time.Minute {
		info, hit, err := c.primary.Get(ctx, catalogID, start, end)
		if err == nil {
			c.isDown.Store(false)
			return info, hit, nil
		}
		c.lastCheck = time.Now()
	}

	return c.fallback.Get(ctx, catalogID, start, end)
}

func (c *FailoverAvailabilityCache) Set(ctx context.Context, catalogID string, start, end time.Time, info *models.AvailabilityInfo) error {
	if !c.isDown.Load() {
		err := c.primary.Set(ctx, catalogID, start, end, info)
		if err == nil {
			return nil
		}
		c.logger.Error().Err(err).Msg("Primary availability cache failed, falling back to memory")
		c.isDown.Store(true)
		c.lastCheck = time.Now()
	}

	return c.fallback.Set(ctx, catalogID, start, end, info)
}

func (c *FailoverAvailabilityCache) Invalidate(ctx context.Context, catalogID string) error {
	if !c.isDown.Load() {
		err := c.primary.Invalidate(ctx, catalogID)
		if err == nil {
			// Keep the fallback generation in step so stale entries
			// cannot be served after a later failover.
			return c.fallback.Invalidate(ctx, catalogID)
		}
		c.logger.Error().Err(err).Msg("Primary availability cache failed, falling back to memory")
		c.isDown.Store(true)
		c.lastCheck = time.Now()
	}

	return c.fallback.Invalidate(ctx, catalogID)
}
