package reports

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"airwave/internal/database"
	"airwave/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportSchedule(t *testing.T) {
	tempDir := t.TempDir()
	logger := zerolog.Nop()

	db, err := database.NewDB(filepath.Join(tempDir, "reports.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	entries := []models.CatalogEntry{
		{
			ID: "crew-6", Name: "Crew of 6", Kind: models.KindPooled,
			DailyRateCents: 15000, WeeklyRateCents: 75000, IsActive: true, SortOrder: 10,
			Pooled: &models.PooledSpec{
				UnitCount: 6, BatteriesPerUnit: 2, HeadsetsPerUnit: 1,
				HeadsetDistribution: models.HeadsetDistribution{models.HeadsetSurveillance: 6},
			},
		},
	}
	require.NoError(t, db.SyncCatalog(ctx, entries))

	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	booking := &models.Booking{
		CatalogID:     "crew-6",
		CatalogName:   "Crew of 6",
		CustomerName:  "Dana Crew",
		CustomerEmail: "dana@example.com",
		StartDate:     start,
		EndDate:       start.AddDate(0, 0, 1),
		Status:        models.StatusPending,
	}
	require.NoError(t, db.CreateBookingWithLock(ctx, booking))

	reporter := NewScheduleReporter(db, filepath.Join(tempDir, "exports"), &logger)

	path, err := reporter.ExportSchedule(ctx, start, start.AddDate(0, 0, 4))
	require.NoError(t, err)
	assert.Contains(t, path, "schedule_2026-04-01_to_2026-04-05.xlsx")

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("Schedule", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Rental schedule: 2026-04-01 - 2026-04-05", title)

	// Row label carries the package size
	label, err := f.GetCellValue("Schedule", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Crew of 6 (6 walkies)", label)

	// Booked days show the customer, free days say so
	booked, err := f.GetCellValue("Schedule", "B3")
	require.NoError(t, err)
	assert.Contains(t, booked, "Dana Crew [pending]")

	free, err := f.GetCellValue("Schedule", "E3")
	require.NoError(t, err)
	assert.Equal(t, "free", free)
}
