package service

import (
	"context"
	"sync"

	"airwave/internal/domain"
	"airwave/internal/models"

	"github.com/rs/zerolog"
)

// CatalogService serves the storefront package list. The catalog comes
// from configuration and changes only on sync, so a refreshed in-memory
// snapshot backs all reads.
type CatalogService struct {
	repo    domain.Repository
	logger  *zerolog.Logger
	entries []*models.CatalogEntry
	byID    map[string]*models.CatalogEntry
	mu      sync.RWMutex
}

func NewCatalogService(repo domain.Repository, logger *zerolog.Logger) *CatalogService {
	return &CatalogService{
		repo:   repo,
		logger: logger,
		byID:   make(map[string]*models.CatalogEntry),
	}
}

// Sync pushes the configured catalog into storage and refreshes the
// snapshot. Entries absent from the new catalog are deactivated, never
// deleted, so historical bookings keep resolving.
func (s *CatalogService) Sync(ctx context.Context, entries []models.CatalogEntry) error {
	if err := s.repo.SyncCatalog(ctx, entries); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

func (s *CatalogService) GetActiveCatalog(ctx context.Context) ([]*models.CatalogEntry, error) {
	s.mu.RLock()
	entries := s.entries
	s.mu.RUnlock()
	if entries != nil {
		return entries, nil
	}

	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries, nil
}

func (s *CatalogService) GetEntry(ctx context.Context, id string) (*models.CatalogEntry, error) {
	s.mu.RLock()
	entry, ok := s.byID[id]
	s.mu.RUnlock()
	if ok {
		return entry, nil
	}
	return s.repo.GetCatalogEntry(ctx, id)
}

func (s *CatalogService) Refresh(ctx context.Context) error {
	entries, err := s.repo.GetActiveCatalog(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	s.byID = make(map[string]*models.CatalogEntry, len(entries))
	for _, entry := range entries {
		s.byID[entry.ID] = entry
	}
	return nil
}
