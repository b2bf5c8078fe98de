package service

import (
	"context"
	"fmt"

	"airwave/internal/domain"
	"airwave/internal/events"
	"airwave/internal/models"

	"github.com/rs/zerolog"
)

// InventoryService manages the serialized unit fleet behind the catalog.
type InventoryService struct {
	repo     domain.Repository
	cache    domain.AvailabilityCache
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewInventoryService(repo domain.Repository, cache domain.AvailabilityCache, eventBus domain.EventPublisher, logger *zerolog.Logger) *InventoryService {
	return &InventoryService{
		repo:     repo,
		cache:    cache,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *InventoryService) CreateUnit(ctx context.Context, unit *models.SerializedUnit) error {
	if unit.CatalogID == "" {
		return &MissingFieldError{Field: "catalogEntryId"}
	}
	if unit.SerialNumber == "" {
		return &MissingFieldError{Field: "serialNumber"}
	}
	if unit.Status != "" && !models.ValidUnitStatus(unit.Status) {
		return fmt.Errorf("%w: unknown status %s", ErrInvalidUnit, unit.Status)
	}
	if unit.Condition != "" && !models.ValidCondition(unit.Condition) {
		return fmt.Errorf("%w: unknown condition %s", ErrInvalidUnit, unit.Condition)
	}

	entry, err := s.repo.GetCatalogEntry(ctx, unit.CatalogID)
	if err != nil {
		return err
	}
	if entry.Kind != models.KindSerialized {
		return fmt.Errorf("%w: catalog entry %s does not track serialized units", ErrInvalidUnit, entry.ID)
	}

	if err := s.repo.CreateUnit(ctx, unit); err != nil {
		return err
	}

	s.invalidateCache(ctx, unit.CatalogID)
	return nil
}

func (s *InventoryService) GetUnit(ctx context.Context, id string) (*models.SerializedUnit, error) {
	return s.repo.GetUnit(ctx, id)
}

func (s *InventoryService) ListUnits(ctx context.Context, catalogID, status string) ([]*models.SerializedUnit, error) {
	if status != "" && !models.ValidUnitStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %s", ErrInvalidUnit, status)
	}
	return s.repo.ListUnits(ctx, catalogID, status)
}

// PatchUnit applies a partial update. Moving a unit out of 'available'
// shrinks the entry's bookable pool immediately, so cached availability
// for the entry is dropped on any status change.
func (s *InventoryService) PatchUnit(ctx context.Context, id string, patch models.UnitPatch) (*models.SerializedUnit, error) {
	if patch.Empty() {
		return s.repo.GetUnit(ctx, id)
	}
	if patch.Status != nil && !models.ValidUnitStatus(*patch.Status) {
		return nil, fmt.Errorf("%w: unknown status %s", ErrInvalidUnit, *patch.Status)
	}
	if patch.Condition != nil && !models.ValidCondition(*patch.Condition) {
		return nil, fmt.Errorf("%w: unknown condition %s", ErrInvalidUnit, *patch.Condition)
	}

	unit, err := s.repo.PatchUnit(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil {
		s.invalidateCache(ctx, unit.CatalogID)
	}

	if s.eventBus != nil {
		if err := s.eventBus.PublishJSON(events.EventUnitUpdated, unit); err != nil {
			s.logger.Error().Err(err).Str("unit_id", id).Msg("publish event error")
		}
	}
	return unit, nil
}

func (s *InventoryService) invalidateCache(ctx context.Context, catalogID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, catalogID); err != nil {
		s.logger.Warn().Err(err).Str("catalog_id", catalogID).Msg("availability cache invalidate error")
	}
}
