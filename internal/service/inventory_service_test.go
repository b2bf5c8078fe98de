package service

import (
	"context"
	"testing"

	"airwave/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func serializedEntry() *models.CatalogEntry {
	return &models.CatalogEntry{
		ID: "walkie-cp200d", Name: "Motorola CP200d", Kind: models.KindSerialized,
		DailyRateCents: 3000, WeeklyRateCents: 15000, IsActive: true,
	}
}

func newTestInventoryService(repo *mockRepo) *InventoryService {
	logger := zerolog.Nop()
	return NewInventoryService(repo, nil, nil, &logger)
}

func TestCreateUnit(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingFields", func(t *testing.T) {
		svc := newTestInventoryService(new(mockRepo))

		err := svc.CreateUnit(ctx, &models.SerializedUnit{SerialNumber: "W-001"})
		field, ok := IsMissingField(err)
		require.True(t, ok)
		assert.Equal(t, "catalogEntryId", field)

		err = svc.CreateUnit(ctx, &models.SerializedUnit{CatalogID: "walkie-cp200d"})
		field, ok = IsMissingField(err)
		require.True(t, ok)
		assert.Equal(t, "serialNumber", field)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		svc := newTestInventoryService(new(mockRepo))
		err := svc.CreateUnit(ctx, &models.SerializedUnit{
			CatalogID: "walkie-cp200d", SerialNumber: "W-001", Status: "lost",
		})
		assert.ErrorIs(t, err, ErrInvalidUnit)
	})

	t.Run("PooledEntryRejected", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetCatalogEntry", mock.Anything, "crew-6").Return(pooledEntry(), nil)
		svc := newTestInventoryService(repo)

		err := svc.CreateUnit(ctx, &models.SerializedUnit{
			CatalogID: "crew-6", SerialNumber: "W-001",
		})
		assert.ErrorIs(t, err, ErrInvalidUnit)
		repo.AssertNotCalled(t, "CreateUnit", mock.Anything, mock.Anything)
	})

	t.Run("Success", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetCatalogEntry", mock.Anything, "walkie-cp200d").Return(serializedEntry(), nil)
		repo.On("CreateUnit", mock.Anything, mock.Anything).Return(nil)
		svc := newTestInventoryService(repo)

		err := svc.CreateUnit(ctx, &models.SerializedUnit{
			CatalogID: "walkie-cp200d", SerialNumber: "W-001",
		})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})
}

func TestPatchUnit(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyPatchReadsBack", func(t *testing.T) {
		repo := new(mockRepo)
		unit := &models.SerializedUnit{ID: "u-1", CatalogID: "walkie-cp200d", SerialNumber: "W-001"}
		repo.On("GetUnit", mock.Anything, "u-1").Return(unit, nil)
		svc := newTestInventoryService(repo)

		got, err := svc.PatchUnit(ctx, "u-1", models.UnitPatch{})
		require.NoError(t, err)
		assert.Equal(t, "W-001", got.SerialNumber)
		repo.AssertNotCalled(t, "PatchUnit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UnknownCondition", func(t *testing.T) {
		svc := newTestInventoryService(new(mockRepo))
		bad := "mint"
		_, err := svc.PatchUnit(ctx, "u-1", models.UnitPatch{Condition: &bad})
		assert.ErrorIs(t, err, ErrInvalidUnit)
	})

	t.Run("StatusChange", func(t *testing.T) {
		repo := new(mockRepo)
		status := models.UnitMaintenance
		patched := &models.SerializedUnit{ID: "u-1", CatalogID: "walkie-cp200d", Status: status}
		repo.On("PatchUnit", mock.Anything, "u-1", mock.Anything).Return(patched, nil)
		svc := newTestInventoryService(repo)

		got, err := svc.PatchUnit(ctx, "u-1", models.UnitPatch{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, models.UnitMaintenance, got.Status)
	})
}

func TestListUnits_UnknownStatusRejected(t *testing.T) {
	svc := newTestInventoryService(new(mockRepo))
	_, err := svc.ListUnits(context.Background(), "", "lost")
	assert.ErrorIs(t, err, ErrInvalidUnit)
}
