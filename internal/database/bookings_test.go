package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"airwave/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedCatalog(t *testing.T, db *DB) {
	entries := []models.CatalogEntry{
		{
			ID: "walkie-cp200d", Name: "Motorola CP200d Walkie",
			Kind: models.KindSerialized, DailyRateCents: 3000, WeeklyRateCents: 15000,
			IsActive: true, SortOrder: 10,
		},
		{
			ID: "crew-6", Name: "Crew of 6",
			Kind: models.KindPooled, DailyRateCents: 15000, WeeklyRateCents: 75000,
			IsActive: true, SortOrder: 20,
			Pooled: &models.PooledSpec{
				UnitCount: 6, BatteriesPerUnit: 2, HeadsetsPerUnit: 1,
				HeadsetDistribution: models.HeadsetDistribution{
					models.HeadsetSurveillance: 5,
					models.HeadsetLightweight:  1,
				},
			},
		},
	}
	require.NoError(t, db.SyncCatalog(context.Background(), entries))
}

func addUnit(t *testing.T, db *DB, catalogID, serial string) *models.SerializedUnit {
	unit := &models.SerializedUnit{
		CatalogID:    catalogID,
		SerialNumber: serial,
		Model:        "CP200d",
	}
	require.NoError(t, db.CreateUnit(context.Background(), unit))
	return unit
}

func mkBooking(catalogID, start, end string) *models.Booking {
	return &models.Booking{
		CatalogID:     catalogID,
		CatalogName:   catalogID,
		CustomerName:  "Dana Crew",
		CustomerEmail: "dana@example.com",
		StartDate:     date(start),
		EndDate:       date(end),
		Status:        models.StatusPending,
	}
}

func date(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestGetAvailability_Serialized(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	ctx := context.Background()

	addUnit(t, db, "walkie-cp200d", "W-001")
	addUnit(t, db, "walkie-cp200d", "W-002")
	addUnit(t, db, "walkie-cp200d", "W-003")

	info, err := db.GetAvailability(ctx, "walkie-cp200d", date("2026-04-01"), date("2026-04-03"))
	require.NoError(t, err)
	assert.Equal(t, 3, info.TotalCount)
	assert.Equal(t, 3, info.AvailableCount)
	assert.True(t, info.IsAvailable)

	require.NoError(t, db.CreateBookingWithLock(ctx, mkBooking("walkie-cp200d", "2026-04-02", "2026-04-05")))

	info, err = db.GetAvailability(ctx, "walkie-cp200d", date("2026-04-01"), date("2026-04-03"))
	require.NoError(t, err)
	assert.Equal(t, 2, info.AvailableCount)

	// Disjoint window sees the full fleet
	info, err = db.GetAvailability(ctx, "walkie-cp200d", date("2026-04-10"), date("2026-04-12"))
	require.NoError(t, err)
	assert.Equal(t, 3, info.AvailableCount)

	_, err = db.GetAvailability(ctx, "no-such-entry", date("2026-04-01"), date("2026-04-03"))
	assert.ErrorIs(t, err, ErrCatalogNotFound)
}

func TestGetAvailability_SerializedExcludesMaintenance(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	ctx := context.Background()

	addUnit(t, db, "walkie-cp200d", "W-001")
	unit := addUnit(t, db, "walkie-cp200d", "W-002")

	status := models.UnitMaintenance
	_, err := db.PatchUnit(ctx, unit.ID, models.UnitPatch{Status: &status})
	require.NoError(t, err)

	info, err := db.GetAvailability(ctx, "walkie-cp200d", date("2026-04-01"), date("2026-04-03"))
	require.NoError(t, err)
	assert.Equal(t, 1, info.TotalCount)
	assert.Equal(t, 1, info.AvailableCount)
}

func TestGetAvailability_Pooled(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	ctx := context.Background()

	info, err := db.GetAvailability(ctx, "crew-6", date("2026-04-01"), date("2026-04-03"))
	require.NoError(t, err)
	assert.Equal(t, 1, info.TotalCount)
	assert.Equal(t, 1, info.AvailableCount)

	require.NoError(t, db.CreateBookingWithLock(ctx, mkBooking("crew-6", "2026-04-02", "2026-04-04")))

	// Whole package is held for any overlapping window
	info, err = db.GetAvailability(ctx, "crew-6", date("2026-04-04"), date("2026-04-06"))
	require.NoError(t, err)
	assert.Equal(t, 0, info.AvailableCount)
	assert.False(t, info.IsAvailable)

	info, err = db.GetAvailability(ctx, "crew-6", date("2026-04-05"), date("2026-04-07"))
	require.NoError(t, err)
	assert.Equal(t, 1, info.AvailableCount)
}

func TestCreateBookingWithLock_LowestSerialWins(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	ctx := context.Background()

	// Inserted out of order on purpose
	addUnit(t, db, "walkie-cp200d", "W-003")
	addUnit(t, db, "walkie-cp200d", "W-001")
	addUnit(t, db, "walkie-cp200d", "W-002")

	first := mkBooking("walkie-cp200d", "2026-04-01", "2026-04-03")
	require.NoError(t, db.CreateBookingWithLock(ctx, first))
	assert.Equal(t, "W-001", first.UnitSerial)
	assert.NotEmpty(t, first.UnitID)
	assert.Equal(t, int64(1), first.Version)

	second := mkBooking("walkie-cp200d", "2026-04-01", "2026-04-03")
	require.NoError(t, db.CreateBookingWithLock(ctx, second))
	assert.Equal(t, "W-002", second.UnitSerial)

	third := mkBooking("walkie-cp200d", "2026-04-01", "2026-04-03")
	require.NoError(t, db.CreateBookingWithLock(ctx, third))
	assert.Equal(t, "W-003", third.UnitSerial)

	fourth := mkBooking("walkie-cp200d", "2026-04-01", "2026-04-03")
	err := db.CreateBookingWithLock(ctx, fourth)
	assert.ErrorIs(t, err, ErrNoAvailableUnit)

	// Cancelling releases the unit for the window
	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, second.ID, second.Version, models.StatusCancelled))

	fifth := mkBooking("walkie-cp200d", "2026-04-01", "2026-04-03")
	require.NoError(t, db.CreateBookingWithLock(ctx, fifth))
	assert.Equal(t, "W-002", fifth.UnitSerial)
}

func TestCreateBookingWithLock_BoundaryDatesConflict(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	ctx := context.Background()

	require.NoError(t, db.CreateBookingWithLock(ctx, mkBooking("crew-6", "2026-04-01", "2026-04-03")))

	// Return day and pickup day are the same calendar day
	err := db.CreateBookingWithLock(ctx, mkBooking("crew-6", "2026-04-03", "2026-04-05"))
	assert.ErrorIs(t, err, ErrNoAvailableUnit)

	require.NoError(t, db.CreateBookingWithLock(ctx, mkBooking("crew-6", "2026-04-04", "2026-04-06")))
}

func TestCreateBookingWithLock_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	ctx := context.Background()

	addUnit(t, db, "walkie-cp200d", "W-001")
	addUnit(t, db, "walkie-cp200d", "W-002")
	addUnit(t, db, "walkie-cp200d", "W-003")

	const attempts = 10
	var wg sync.WaitGroup
	wg.Add(attempts)

	type result struct {
		unitID string
		err    error
	}
	results := make(chan result, attempts)

	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			b := mkBooking("walkie-cp200d", "2026-04-01", "2026-04-03")
			err := db.CreateBookingWithLock(ctx, b)
			results <- result{unitID: b.UnitID, err: err}
		}()
	}

	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	successes, failures := 0, 0
	for r := range results {
		if r.err == nil {
			successes++
			assert.False(t, seen[r.unitID], "unit %s allocated twice", r.unitID)
			seen[r.unitID] = true
		} else {
			failures++
			assert.ErrorIs(t, r.err, ErrNoAvailableUnit)
		}
	}

	assert.Equal(t, 3, successes)
	assert.Equal(t, attempts-3, failures)
}

func TestUpdateBookingStatusWithVersion(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	ctx := context.Background()

	booking := mkBooking("crew-6", "2026-04-01", "2026-04-03")
	require.NoError(t, db.CreateBookingWithLock(ctx, booking))

	require.NoError(t, db.UpdateBookingStatusWithVersion(ctx, booking.ID, 1, models.StatusConfirmed))

	// Stale version loses the race
	err := db.UpdateBookingStatusWithVersion(ctx, booking.ID, 1, models.StatusCancelled)
	assert.ErrorIs(t, err, ErrConcurrentModification)

	updated, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.Equal(t, int64(2), updated.Version)
}

func TestGetBooking_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	ctx := context.Background()

	booking := mkBooking("crew-6", "2026-04-01", "2026-04-08")
	booking.CustomerPhone = "+1-555-0100"
	booking.Notes = "night shoot"
	booking.TotalCostCents = 150000
	booking.HeadsetOverride = models.HeadsetDistribution{
		models.HeadsetSurveillance: 4,
		models.HeadsetLightweight:  2,
	}
	require.NoError(t, db.CreateBookingWithLock(ctx, booking))

	got, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.CustomerName, got.CustomerName)
	assert.Equal(t, booking.CustomerPhone, got.CustomerPhone)
	assert.Equal(t, "night shoot", got.Notes)
	assert.Equal(t, int64(150000), got.TotalCostCents)
	assert.True(t, got.StartDate.Equal(date("2026-04-01")))
	assert.True(t, got.EndDate.Equal(date("2026-04-08")))
	assert.Equal(t, 4, got.HeadsetOverride[models.HeadsetSurveillance])
	assert.Equal(t, 2, got.HeadsetOverride[models.HeadsetLightweight])

	_, err = db.GetBooking(ctx, "missing")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestGetDailyBookings(t *testing.T) {
	db := setupTestDB(t)
	seedCatalog(t, db)
	ctx := context.Background()

	require.NoError(t, db.CreateBookingWithLock(ctx, mkBooking("crew-6", "2026-04-01", "2026-04-03")))

	daily, err := db.GetDailyBookings(ctx, date("2026-04-02"), date("2026-04-05"))
	require.NoError(t, err)

	// Only days inside the requested window are expanded
	assert.Len(t, daily["2026-04-02"], 1)
	assert.Len(t, daily["2026-04-03"], 1)
	assert.Empty(t, daily["2026-04-01"])
	assert.Empty(t, daily["2026-04-04"])
}
