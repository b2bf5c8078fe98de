package database

import (
	"context"
	"testing"

	"airwave/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncCatalog_UpsertAndDeactivate(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	seedCatalog(t, db)

	entry, err := db.GetCatalogEntry(ctx, "crew-6")
	require.NoError(t, err)
	assert.Equal(t, "Crew of 6", entry.Name)
	require.NotNil(t, entry.Pooled)
	assert.Equal(t, 6, entry.Pooled.UnitCount)
	assert.Equal(t, 5, entry.Pooled.HeadsetDistribution[models.HeadsetSurveillance])

	// Re-sync with crew-6 changed and walkie-cp200d missing
	err = db.SyncCatalog(ctx, []models.CatalogEntry{
		{
			ID: "crew-6", Name: "Crew of 6 (updated)",
			Kind: models.KindPooled, DailyRateCents: 16000, WeeklyRateCents: 80000,
			IsActive: true,
			Pooled: &models.PooledSpec{
				UnitCount: 6, BatteriesPerUnit: 2, HeadsetsPerUnit: 1,
				HeadsetDistribution: models.HeadsetDistribution{models.HeadsetSurveillance: 6},
			},
		},
	})
	require.NoError(t, err)

	entry, err = db.GetCatalogEntry(ctx, "crew-6")
	require.NoError(t, err)
	assert.Equal(t, "Crew of 6 (updated)", entry.Name)
	assert.Equal(t, int64(16000), entry.DailyRateCents)

	// The missing entry is deactivated, not deleted
	stale, err := db.GetCatalogEntry(ctx, "walkie-cp200d")
	require.NoError(t, err)
	assert.False(t, stale.IsActive)

	active, err := db.GetActiveCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "crew-6", active[0].ID)
}

func TestGetCatalogEntry_NotFound(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)

	_, err := db.GetCatalogEntry(context.Background(), "crew-99")
	assert.ErrorIs(t, err, ErrCatalogNotFound)
}

func TestGetActiveCatalog_Order(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.SyncCatalog(ctx, []models.CatalogEntry{
		{ID: "b", Name: "B", Kind: models.KindSerialized, IsActive: true, SortOrder: 20},
		{ID: "a", Name: "A", Kind: models.KindSerialized, IsActive: true, SortOrder: 10},
		{ID: "hidden", Name: "Hidden", Kind: models.KindSerialized, IsActive: false, SortOrder: 0},
	})
	require.NoError(t, err)

	active, err := db.GetActiveCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "a", active[0].ID)
	assert.Equal(t, "b", active[1].ID)
}
