package domain

import (
	"context"
	"time"

	"airwave/internal/models"
)

// Repository is the persistence contract the engine runs against.
// Allocation and status transitions must be atomic on the storage side;
// the services above never take their own locks.
type Repository interface {
	GetAvailability(ctx context.Context, catalogID string, start, end time.Time) (*models.AvailabilityInfo, error)
	CreateBookingWithLock(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]*models.Booking, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id string, version int64, status string) error

	GetCatalogEntry(ctx context.Context, id string) (*models.CatalogEntry, error)
	GetActiveCatalog(ctx context.Context) ([]*models.CatalogEntry, error)
	SyncCatalog(ctx context.Context, entries []models.CatalogEntry) error

	CreateUnit(ctx context.Context, unit *models.SerializedUnit) error
	GetUnit(ctx context.Context, id string) (*models.SerializedUnit, error)
	ListUnits(ctx context.Context, catalogID, status string) ([]*models.SerializedUnit, error)
	PatchUnit(ctx context.Context, id string, patch models.UnitPatch) (*models.SerializedUnit, error)
}

// AvailabilityCache is a read-through cache for availability answers.
// Implementations must tolerate being stale-invalidated whole catalog
// entries at a time.
type AvailabilityCache interface {
	Get(ctx context.Context, catalogID string, start, end time.Time) (*models.AvailabilityInfo, bool, error)
	Set(ctx context.Context, catalogID string, start, end time.Time, info *models.AvailabilityInfo) error
	Invalidate(ctx context.Context, catalogID string) error
}

// EventPublisher delivers booking lifecycle events to in-process consumers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// ExportWorker queues schedule export jobs triggered by booking changes.
type ExportWorker interface {
	EnqueueTask(ctx context.Context, taskType string, booking *models.Booking, status string) error
	EnqueueScheduleExport(ctx context.Context, startDate, endDate time.Time) error
}
