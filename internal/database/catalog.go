package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"airwave/internal/models"
)

// marshalDistribution serializes the headset distribution at the storage
// edge. The domain layer only ever sees the typed map.
func marshalDistribution(d models.HeadsetDistribution) (sql.NullString, error) {
	if d == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal headset distribution: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func unmarshalDistribution(raw sql.NullString) (models.HeadsetDistribution, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var d models.HeadsetDistribution
	if err := json.Unmarshal([]byte(raw.String), &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal headset distribution: %w", err)
	}
	return d, nil
}

// SyncCatalog upserts the configured catalog into the database and
// refreshes the in-memory cache. Entries absent from the new set are
// deactivated, not deleted.
func (db *DB) SyncCatalog(ctx context.Context, entries []models.CatalogEntry) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin catalog sync: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	seen := make(map[string]bool, len(entries))
	for i := range entries {
		e := &entries[i]
		seen[e.ID] = true

		var unitCount, batteries, headsets sql.NullInt64
		var dist sql.NullString
		if e.Pooled != nil {
			unitCount = sql.NullInt64{Int64: int64(e.Pooled.UnitCount), Valid: true}
			batteries = sql.NullInt64{Int64: int64(e.Pooled.BatteriesPerUnit), Valid: true}
			headsets = sql.NullInt64{Int64: int64(e.Pooled.HeadsetsPerUnit), Valid: true}
			dist, err = marshalDistribution(e.Pooled.HeadsetDistribution)
			if err != nil {
				return err
			}
		}

		query := `INSERT INTO catalog_entries (
					id, name, description, kind, daily_rate_cents, weekly_rate_cents,
					popular, is_active, sort_order, unit_count, batteries_per_unit,
					headsets_per_unit, headset_distribution, created_at, updated_at
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					name = excluded.name,
					description = excluded.description,
					kind = excluded.kind,
					daily_rate_cents = excluded.daily_rate_cents,
					weekly_rate_cents = excluded.weekly_rate_cents,
					popular = excluded.popular,
					is_active = excluded.is_active,
					sort_order = excluded.sort_order,
					unit_count = excluded.unit_count,
					batteries_per_unit = excluded.batteries_per_unit,
					headsets_per_unit = excluded.headsets_per_unit,
					headset_distribution = excluded.headset_distribution,
					updated_at = excluded.updated_at`
		if _, err := tx.ExecContext(ctx, query,
			e.ID, e.Name, e.Description, e.Kind, e.DailyRateCents, e.WeeklyRateCents,
			e.Popular, e.IsActive, e.SortOrder, unitCount, batteries, headsets, dist,
			now, now,
		); err != nil {
			return fmt.Errorf("failed to upsert catalog entry %s: %w", e.ID, err)
		}
	}

	rows, err := tx.QueryContext(ctx, `SELECT id FROM catalog_entries WHERE is_active = 1`)
	if err != nil {
		return fmt.Errorf("failed to list active entries: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan entry id: %w", err)
		}
		if !seen[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx,
			`UPDATE catalog_entries SET is_active = 0, updated_at = ? WHERE id = ?`, now, id); err != nil {
			return fmt.Errorf("failed to deactivate entry %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog sync: %w", err)
	}

	return db.reloadCatalogCache(ctx)
}

func (db *DB) reloadCatalogCache(ctx context.Context) error {
	entries, err := db.queryCatalog(ctx, `SELECT `+catalogColumns+` FROM catalog_entries`)
	if err != nil {
		return err
	}

	cache := make(map[string]*models.CatalogEntry, len(entries))
	for _, e := range entries {
		cache[e.ID] = e
	}

	db.mu.Lock()
	db.catalogCache = cache
	db.mu.Unlock()
	return nil
}

const catalogColumns = `id, name, description, kind, daily_rate_cents, weekly_rate_cents,
	popular, is_active, sort_order, unit_count, batteries_per_unit, headsets_per_unit,
	headset_distribution, created_at, updated_at`

func scanCatalogEntry(scan func(dest ...any) error) (*models.CatalogEntry, error) {
	var e models.CatalogEntry
	var desc sql.NullString
	var unitCount, batteries, headsets sql.NullInt64
	var dist sql.NullString
	if err := scan(
		&e.ID, &e.Name, &desc, &e.Kind, &e.DailyRateCents, &e.WeeklyRateCents,
		&e.Popular, &e.IsActive, &e.SortOrder, &unitCount, &batteries, &headsets,
		&dist, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.Description = desc.String

	if e.Kind == models.KindPooled {
		d, err := unmarshalDistribution(dist)
		if err != nil {
			return nil, err
		}
		e.Pooled = &models.PooledSpec{
			UnitCount:           int(unitCount.Int64),
			BatteriesPerUnit:    int(batteries.Int64),
			HeadsetsPerUnit:     int(headsets.Int64),
			HeadsetDistribution: d,
		}
	}
	return &e, nil
}

func (db *DB) queryCatalog(ctx context.Context, query string, args ...any) ([]*models.CatalogEntry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var entries []*models.CatalogEntry
	for rows.Next() {
		e, err := scanCatalogEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetCatalogEntry resolves an entry by id, preferring the cache.
func (db *DB) GetCatalogEntry(ctx context.Context, id string) (*models.CatalogEntry, error) {
	db.mu.RLock()
	entry, ok := db.catalogCache[id]
	db.mu.RUnlock()
	if ok {
		return entry, nil
	}

	row := db.QueryRowContext(ctx, `SELECT `+catalogColumns+` FROM catalog_entries WHERE id = ?`, id)
	e, err := scanCatalogEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrCatalogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog entry: %w", err)
	}

	db.mu.Lock()
	db.catalogCache[e.ID] = e
	db.mu.Unlock()
	return e, nil
}

// GetActiveCatalog returns active entries sorted by sort order then
// pooled unit count, matching storefront display order.
func (db *DB) GetActiveCatalog(ctx context.Context) ([]*models.CatalogEntry, error) {
	entries, err := db.queryCatalog(ctx,
		`SELECT `+catalogColumns+` FROM catalog_entries WHERE is_active = 1`)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].SortOrder != entries[j].SortOrder {
			return entries[i].SortOrder < entries[j].SortOrder
		}
		ci, cj := 0, 0
		if entries[i].Pooled != nil {
			ci = entries[i].Pooled.UnitCount
		}
		if entries[j].Pooled != nil {
			cj = entries[j].Pooled.UnitCount
		}
		if ci != cj {
			return ci < cj
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}
