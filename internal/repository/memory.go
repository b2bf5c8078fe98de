package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"airwave/internal/models"
)

// MemoryAvailabilityCache is the in-process fallback cache used when Redis
// is unreachable or not configured.
type MemoryAvailabilityCache struct {
	mu          sync.RWMutex
	entries     map[string]memoryCacheEntry
	generations map[string]int64
	ttl         time.Duration
}

type memoryCacheEntry struct {
	info      models.AvailabilityInfo
	expiresAt time.Time
}

func NewMemoryAvailabilityCache(ttl time.Duration) *MemoryAvailabilityCache {
	if ttl <= 0 {
		ttl = models.AvailabilityCacheTTL * time.Second
	}
	return &MemoryAvailabilityCache{
		entries:     make(map[string]memoryCacheEntry),
		generations: make(map[string]int64),
		ttl:         ttl,
	}
}

func (c *MemoryAvailabilityCache) key(catalogID string, gen int64, start, end time.Time) string {
	return fmt.Sprintf("%s:%d:%s:%s",
		catalogID, gen, start.Format(models.DateLayout), end.Format(models.DateLayout))
}

func (c *MemoryAvailabilityCache) Get(ctx context.Context, catalogID string, start, end time.Time) (*models.AvailabilityInfo, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[c.key(catalogID, c.generations[catalogID], start, end)]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}
	info := entry.info
	return &info, true, nil
}

func (c *MemoryAvailabilityCache) Set(ctx context.Context, catalogID string, start, end time.Time, info *models.AvailabilityInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[c.key(catalogID, c.generations[catalogID], start, end)] = memoryCacheEntry{
		info:      *info,
		expiresAt: time.Now().Add(c.ttl),
	}
	return nil
}

func (c *MemoryAvailabilityCache) Invalidate(ctx context.Context, catalogID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generations[catalogID]++

	// Expired and superseded entries are dropped lazily here rather than
	// on a timer; the cache stays small either way.
	now := time.Now()
	for k, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, k)
		}
	}
	return nil
}
