package service

import (
	"context"
	"errors"
	"time"

	"airwave/internal/database"
	"airwave/internal/domain"
	"airwave/internal/events"
	"airwave/internal/metrics"
	"airwave/internal/models"

	"github.com/rs/zerolog"
)

// CreateBookingRequest carries the raw booking form as received from the
// API. Dates stay strings until validation so a malformed value surfaces
// as ErrInvalidDateRange instead of a transport error.
type CreateBookingRequest struct {
	CatalogID       string                     `json:"catalogEntryId"`
	CustomerName    string                     `json:"customerName"`
	CustomerEmail   string                     `json:"customerEmail"`
	CustomerPhone   string                     `json:"customerPhone"`
	StartDate       string                     `json:"startDate"`
	EndDate         string                     `json:"endDate"`
	Notes           string                     `json:"notes"`
	HeadsetOverride models.HeadsetDistribution `json:"headsetDistribution"`
}

type BookingService struct {
	repo         domain.Repository
	cache        domain.AvailabilityCache
	eventBus     domain.EventPublisher
	exportWorker domain.ExportWorker
	logger       *zerolog.Logger
}

func NewBookingService(repo domain.Repository, cache domain.AvailabilityCache, eventBus domain.EventPublisher, exportWorker domain.ExportWorker, logger *zerolog.Logger) *BookingService {
	return &BookingService{
		repo:         repo,
		cache:        cache,
		eventBus:     eventBus,
		exportWorker: exportWorker,
		logger:       logger,
	}
}

// ParseDateRange parses a date-only pair and rejects inverted ranges.
func ParseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(models.DateLayout, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	end, err := time.Parse(models.DateLayout, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	return start, end, nil
}

func validateRequiredFields(req *CreateBookingRequest) error {
	// Порядок проверки фиксирован: клиенту всегда называется первое
	// отсутствующее поле.
	required := []struct {
		name  string
		value string
	}{
		{"catalogEntryId", req.CatalogID},
		{"customerName", req.CustomerName},
		{"customerEmail", req.CustomerEmail},
		{"startDate", req.StartDate},
		{"endDate", req.EndDate},
	}
	for _, f := range required {
		if f.value == "" {
			return &MissingFieldError{Field: f.name}
		}
	}
	return nil
}

func validateHeadsetOverride(entry *models.CatalogEntry, override models.HeadsetDistribution) error {
	if len(override) == 0 {
		return nil
	}
	if entry.Kind != models.KindPooled || entry.Pooled == nil {
		return ErrInvalidHeadsetDistribution
	}
	for headset, count := range override {
		switch headset {
		case models.HeadsetSurveillance, models.HeadsetLightweight, models.HeadsetSpeakerMic:
		default:
			return ErrInvalidHeadsetDistribution
		}
		if count < 0 {
			return ErrInvalidHeadsetDistribution
		}
	}
	if override.Sum() != entry.Pooled.UnitCount {
		return ErrInvalidHeadsetDistribution
	}
	return nil
}

// resolveActiveEntry maps inactive entries to the same error as unknown
// ids: the storefront never distinguishes hidden from nonexistent.
func (s *BookingService) resolveActiveEntry(ctx context.Context, catalogID string) (*models.CatalogEntry, error) {
	entry, err := s.repo.GetCatalogEntry(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	if !entry.IsActive {
		return nil, database.ErrCatalogNotFound
	}
	return entry, nil
}

// CreateBooking validates the request, prices the rental and persists the
// booking together with its allocation. The new booking starts in pending.
func (s *BookingService) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*models.Booking, error) {
	if err := validateRequiredFields(req); err != nil {
		return nil, err
	}

	start, end, err := ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	entry, err := s.resolveActiveEntry(ctx, req.CatalogID)
	if err != nil {
		return nil, err
	}

	if err := validateHeadsetOverride(entry, req.HeadsetOverride); err != nil {
		// Занятое окно важнее кривого распределения: клиенту сначала
		// сообщается, что дат нет.
		if info, aErr := s.repo.GetAvailability(ctx, entry.ID, start, end); aErr == nil && !info.IsAvailable {
			return nil, database.ErrNoAvailableUnit
		}
		return nil, err
	}

	days := models.RentalDays(start, end)
	booking := &models.Booking{
		CatalogID:       entry.ID,
		CatalogName:     entry.Name,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		StartDate:       start,
		EndDate:         end,
		Status:          models.StatusPending,
		TotalCostCents:  models.RentalCost(days, entry.DailyRateCents, entry.WeeklyRateCents),
		Notes:           req.Notes,
		HeadsetOverride: req.HeadsetOverride.Clone(),
	}

	// Аллокация и запись — одна транзакция на стороне хранилища
	if err := s.repo.CreateBookingWithLock(ctx, booking); err != nil {
		if errors.Is(err, database.ErrNoAvailableUnit) {
			metrics.IncAllocationConflict()
		}
		return nil, err
	}

	metrics.IncBookingCreated(entry.ID)
	s.invalidateCache(ctx, entry.ID)
	s.publishEvent(events.EventBookingCreated, booking)
	s.enqueueExport(ctx, "upsert", booking, "")

	return booking, nil
}

// CheckAvailability answers a storefront availability query, serving
// cached answers when the entry's generation has not moved.
func (s *BookingService) CheckAvailability(ctx context.Context, catalogID string, start, end time.Time) (*models.AvailabilityInfo, error) {
	if end.Before(start) {
		return nil, ErrInvalidDateRange
	}
	if _, err := s.resolveActiveEntry(ctx, catalogID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if info, hit, err := s.cache.Get(ctx, catalogID, start, end); err == nil && hit {
			return info, nil
		}
	}

	began := time.Now()
	info, err := s.repo.GetAvailability(ctx, catalogID, start, end)
	if err != nil {
		return nil, err
	}
	metrics.ObserveAvailability(time.Since(began))

	if s.cache != nil {
		if err := s.cache.Set(ctx, catalogID, start, end, info); err != nil {
			s.logger.Warn().Err(err).Str("catalog_id", catalogID).Msg("availability cache set error")
		}
	}
	return info, nil
}

func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID string, version int64) (*models.Booking, error) {
	return s.transition(ctx, bookingID, version, models.StatusConfirmed, events.EventBookingConfirmed)
}

func (s *BookingService) ActivateBooking(ctx context.Context, bookingID string, version int64) (*models.Booking, error) {
	return s.transition(ctx, bookingID, version, models.StatusActive, events.EventBookingActivated)
}

func (s *BookingService) CompleteBooking(ctx context.Context, bookingID string, version int64) (*models.Booking, error) {
	return s.transition(ctx, bookingID, version, models.StatusCompleted, events.EventBookingCompleted)
}

func (s *BookingService) CancelBooking(ctx context.Context, bookingID string, version int64) (*models.Booking, error) {
	return s.transition(ctx, bookingID, version, models.StatusCancelled, events.EventBookingCancelled)
}

func (s *BookingService) transition(ctx context.Context, bookingID string, version int64, to, eventType string) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !models.CanTransition(booking.Status, to) {
		return nil, ErrInvalidTransition
	}

	if err := s.repo.UpdateBookingStatusWithVersion(ctx, bookingID, version, to); err != nil {
		return nil, err
	}

	// Leaving a blocking status frees the unit or the package slot for
	// the window, so the cached availability answers are stale.
	if models.BlocksAllocation(booking.Status) && !models.BlocksAllocation(to) {
		s.invalidateCache(ctx, booking.CatalogID)
	}

	updated, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", bookingID).Msg("reload after transition error")
		return nil, err
	}

	s.publishEvent(eventType, updated)
	s.enqueueExport(ctx, "update_status", updated, to)

	return updated, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return s.repo.ListBookings(ctx)
}

func (s *BookingService) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return s.repo.GetBookingsByDateRange(ctx, start, end)
}

func (s *BookingService) GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]*models.Booking, error) {
	return s.repo.GetDailyBookings(ctx, start, end)
}

func (s *BookingService) invalidateCache(ctx context.Context, catalogID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, catalogID); err != nil {
		s.logger.Warn().Err(err).Str("catalog_id", catalogID).Msg("availability cache invalidate error")
	}
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:     booking.ID,
		CatalogID:     booking.CatalogID,
		CatalogName:   booking.CatalogName,
		UnitID:        booking.UnitID,
		UnitSerial:    booking.UnitSerial,
		CustomerName:  booking.CustomerName,
		CustomerEmail: booking.CustomerEmail,
		Status:        booking.Status,
		StartDate:     booking.StartDate,
		EndDate:       booking.EndDate,
		TotalCost:     booking.TotalCostCents,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueExport(ctx context.Context, taskType string, booking *models.Booking, status string) {
	if s.exportWorker == nil {
		return
	}

	if err := s.exportWorker.EnqueueTask(ctx, taskType, booking, status); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Str("task", taskType).Msg("export enqueue error")
	}
	if err := s.exportWorker.EnqueueScheduleExport(ctx, time.Time{}, time.Time{}); err != nil {
		s.logger.Error().Err(err).Msg("schedule export enqueue error")
	}
}
