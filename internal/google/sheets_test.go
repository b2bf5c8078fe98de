package google

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"airwave/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingRowValues(t *testing.T) {
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	booking := &models.Booking{
		ID:             "b-1",
		CatalogID:      "crew-6",
		CatalogName:    "Crew of 6",
		UnitSerial:     "W-001",
		CustomerName:   "Dana Crew",
		CustomerEmail:  "dana@example.com",
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, 2),
		Status:         models.StatusConfirmed,
		TotalCostCents: 30000,
		CreatedAt:      start,
		UpdatedAt:      start,
	}

	row := bookingRowValues(booking)
	require.Len(t, row, 12)
	assert.Equal(t, "b-1", row[0])
	assert.Equal(t, "crew-6", row[1])
	assert.Equal(t, "2026-04-01", row[6])
	assert.Equal(t, "2026-04-03", row[7])
	assert.Equal(t, models.StatusConfirmed, row[8])
	// Money is exported in dollars
	assert.Equal(t, 300.0, row[9])
}

func TestGetServiceAccountEmail(t *testing.T) {
	dir := t.TempDir()
	credsPath := filepath.Join(dir, "creds.json")
	creds := `{"type":"service_account","client_email":"exports@airwave.iam.gserviceaccount.com"}`
	require.NoError(t, os.WriteFile(credsPath, []byte(creds), 0o600))

	s := &SheetsService{}
	email, err := s.GetServiceAccountEmail(credsPath)
	require.NoError(t, err)
	assert.Equal(t, "exports@airwave.iam.gserviceaccount.com", email)

	_, err = s.GetServiceAccountEmail(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestRowCache(t *testing.T) {
	s := &SheetsService{rowCache: make(map[string]int)}

	_, ok := s.getCachedRow("b-1")
	assert.False(t, ok)

	s.setCachedRow("b-1", 7)
	row, ok := s.getCachedRow("b-1")
	require.True(t, ok)
	assert.Equal(t, 7, row)
}
