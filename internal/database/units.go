package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"airwave/internal/models"

	"github.com/google/uuid"
)

const unitColumns = `id, catalog_id, serial_number, model, status, condition,
	last_serviced, notes, created_at, updated_at`

func scanUnit(scan func(dest ...any) error) (*models.SerializedUnit, error) {
	var u models.SerializedUnit
	var model, notes sql.NullString
	var lastServiced sql.NullTime
	if err := scan(
		&u.ID, &u.CatalogID, &u.SerialNumber, &model, &u.Status, &u.Condition,
		&lastServiced, &notes, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Model = model.String
	u.Notes = notes.String
	if lastServiced.Valid {
		t := lastServiced.Time
		u.LastServiced = &t
	}
	return &u, nil
}

// CreateUnit registers a serialized device under a catalog entry.
func (db *DB) CreateUnit(ctx context.Context, unit *models.SerializedUnit) error {
	if unit.ID == "" {
		unit.ID = uuid.NewString()
	}
	if unit.Status == "" {
		unit.Status = models.UnitAvailable
	}
	if unit.Condition == "" {
		unit.Condition = models.ConditionExcellent
	}

	now := time.Now()
	query := `INSERT INTO units (
				id, catalog_id, serial_number, model, status, condition,
				last_serviced, notes, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		unit.ID, unit.CatalogID, unit.SerialNumber, unit.Model, unit.Status,
		unit.Condition, unit.LastServiced, unit.Notes, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create unit: %w", err)
	}
	unit.CreatedAt = now
	unit.UpdatedAt = now
	return nil
}

// GetUnit returns a serialized unit by id.
func (db *DB) GetUnit(ctx context.Context, id string) (*models.SerializedUnit, error) {
	row := db.QueryRowContext(ctx, `SELECT `+unitColumns+` FROM units WHERE id = ?`, id)
	u, err := scanUnit(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrUnitNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get unit: %w", err)
	}
	return u, nil
}

// ListUnits returns units optionally filtered by catalog entry and status,
// ordered by model then serial number.
func (db *DB) ListUnits(ctx context.Context, catalogID, status string) ([]*models.SerializedUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM units`
	var where []string
	var args []any
	if catalogID != "" {
		where = append(where, "catalog_id = ?")
		args = append(args, catalogID)
	}
	if status != "" {
		where = append(where, "status = ?")
		args = append(args, status)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY model, serial_number"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	defer rows.Close()

	var units []*models.SerializedUnit
	for rows.Next() {
		u, err := scanUnit(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// PatchUnit applies a partial update. Only the fields set on the patch
// are written; absent fields keep their stored values.
func (db *DB) PatchUnit(ctx context.Context, id string, patch models.UnitPatch) (*models.SerializedUnit, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now()}

	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.Condition != nil {
		sets = append(sets, "condition = ?")
		args = append(args, *patch.Condition)
	}
	if patch.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *patch.Notes)
	}
	if patch.LastServiced != nil {
		sets = append(sets, "last_serviced = ?")
		args = append(args, *patch.LastServiced)
	}

	args = append(args, id)
	query := `UPDATE units SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to patch unit: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return nil, ErrUnitNotFound
	}

	return db.GetUnit(ctx, id)
}
