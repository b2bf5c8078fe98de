package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"airwave/internal/models"

	"github.com/google/uuid"
)

const bookingColumns = `id, catalog_id, catalog_name, unit_id, unit_serial,
	customer_name, customer_email, customer_phone, start_date, end_date,
	status, total_cost_cents, notes, headset_distribution, version,
	created_at, updated_at`

func scanBooking(scan func(dest ...any) error) (*models.Booking, error) {
	var b models.Booking
	var unitID, unitSerial, phone, notes, dist sql.NullString
	var startStr, endStr string
	if err := scan(
		&b.ID, &b.CatalogID, &b.CatalogName, &unitID, &unitSerial,
		&b.CustomerName, &b.CustomerEmail, &phone, &startStr, &endStr,
		&b.Status, &b.TotalCostCents, &notes, &dist, &b.Version,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.UnitID = unitID.String
	b.UnitSerial = unitSerial.String
	b.CustomerPhone = phone.String
	b.Notes = notes.String

	var err error
	if b.StartDate, err = time.Parse(models.DateLayout, startStr); err != nil {
		return nil, fmt.Errorf("failed to parse booking start date %s: %w", startStr, err)
	}
	if b.EndDate, err = time.Parse(models.DateLayout, endStr); err != nil {
		return nil, fmt.Errorf("failed to parse booking end date %s: %w", endStr, err)
	}
	if b.HeadsetOverride, err = unmarshalDistribution(dist); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetAvailability answers how much of an entry is free for [start, end].
// Serialized entries count physically available units minus those holding a
// live overlapping booking. Pooled entries are atomic: one package slot,
// taken or free per catalog entry for the window.
func (db *DB) GetAvailability(ctx context.Context, catalogID string, start, end time.Time) (*models.AvailabilityInfo, error) {
	entry, err := db.GetCatalogEntry(ctx, catalogID)
	if err != nil {
		return nil, err
	}

	startStr := start.Format(models.DateLayout)
	endStr := end.Format(models.DateLayout)

	info := &models.AvailabilityInfo{CatalogID: catalogID}
	switch entry.Kind {
	case models.KindSerialized:
		total, busy, err := db.countSerializedAvailability(ctx, catalogID, startStr, endStr)
		if err != nil {
			return nil, err
		}
		info.TotalCount = total
		info.AvailableCount = total - busy
	case models.KindPooled:
		taken, err := db.pooledWindowTaken(ctx, catalogID, startStr, endStr)
		if err != nil {
			return nil, err
		}
		info.TotalCount = 1
		if !taken {
			info.AvailableCount = 1
		}
	default:
		return nil, fmt.Errorf("unknown catalog kind %q for entry %s", entry.Kind, catalogID)
	}

	info.IsAvailable = info.AvailableCount > 0
	return info, nil
}

func (db *DB) countSerializedAvailability(ctx context.Context, catalogID, startStr, endStr string) (total, busy int, err error) {
	// Units in maintenance or retired are physically out regardless of
	// booking conflicts, so only 'available' units count toward totals.
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM units WHERE catalog_id = ? AND status = ?`,
		catalogID, models.UnitAvailable,
	).Scan(&total)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count units: %w", err)
	}

	query := `SELECT COUNT(DISTINCT b.unit_id) FROM bookings b
	          JOIN units u ON u.id = b.unit_id
	          WHERE u.catalog_id = ? AND u.status = ?
	          AND b.status IN (?, ?, ?)
	          AND b.start_date <= ? AND b.end_date >= ?`
	err = db.QueryRowContext(ctx, query,
		catalogID, models.UnitAvailable,
		models.StatusPending, models.StatusConfirmed, models.StatusActive,
		endStr, startStr,
	).Scan(&busy)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count busy units: %w", err)
	}
	return total, busy, nil
}

func (db *DB) pooledWindowTaken(ctx context.Context, catalogID, startStr, endStr string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM bookings
	          WHERE catalog_id = ? AND status IN (?, ?, ?)
	          AND start_date <= ? AND end_date >= ?`
	err := db.QueryRowContext(ctx, query,
		catalogID,
		models.StatusPending, models.StatusConfirmed, models.StatusActive,
		endStr, startStr,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check pooled window: %w", err)
	}
	return count > 0, nil
}

// CreateBookingWithLock allocates and persists a booking as one transaction.
// For serialized entries the free unit with the lowest serial number is
// chosen, so allocation is reproducible. Concurrent requests for the same
// window cannot both commit against the same unit or package slot.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	entry, err := db.GetCatalogEntry(ctx, booking.CatalogID)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	startStr := booking.StartDate.Format(models.DateLayout)
	endStr := booking.EndDate.Format(models.DateLayout)

	switch entry.Kind {
	case models.KindSerialized:
		unitQuery := `SELECT u.id, u.serial_number FROM units u
		              WHERE u.catalog_id = ? AND u.status = ?
		              AND NOT EXISTS (
		                  SELECT 1 FROM bookings b
		                  WHERE b.unit_id = u.id
		                  AND b.status IN (?, ?, ?)
		                  AND b.start_date <= ? AND b.end_date >= ?
		              )
		              ORDER BY u.serial_number ASC LIMIT 1`
		err = tx.QueryRowContext(ctx, unitQuery,
			booking.CatalogID, models.UnitAvailable,
			models.StatusPending, models.StatusConfirmed, models.StatusActive,
			endStr, startStr,
		).Scan(&booking.UnitID, &booking.UnitSerial)
		if err == sql.ErrNoRows {
			return ErrNoAvailableUnit
		}
		if err != nil {
			return fmt.Errorf("failed to select free unit: %w", err)
		}
	case models.KindPooled:
		var count int
		windowQuery := `SELECT COUNT(*) FROM bookings
		                WHERE catalog_id = ? AND status IN (?, ?, ?)
		                AND start_date <= ? AND end_date >= ?`
		err = tx.QueryRowContext(ctx, windowQuery,
			booking.CatalogID,
			models.StatusPending, models.StatusConfirmed, models.StatusActive,
			endStr, startStr,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check pooled window in tx: %w", err)
		}
		if count > 0 {
			return ErrNoAvailableUnit
		}
	default:
		return fmt.Errorf("unknown catalog kind %q for entry %s", entry.Kind, booking.CatalogID)
	}

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}

	dist, err := marshalDistribution(booking.HeadsetOverride)
	if err != nil {
		return err
	}

	var unitID, unitSerial sql.NullString
	if booking.UnitID != "" {
		unitID = sql.NullString{String: booking.UnitID, Valid: true}
		unitSerial = sql.NullString{String: booking.UnitSerial, Valid: true}
	}

	now := time.Now()
	insertQuery := `INSERT INTO bookings (
				id, catalog_id, catalog_name, unit_id, unit_serial,
				customer_name, customer_email, customer_phone, start_date, end_date,
				status, total_cost_cents, notes, headset_distribution, version,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, insertQuery,
		booking.ID, booking.CatalogID, booking.CatalogName, unitID, unitSerial,
		booking.CustomerName, booking.CustomerEmail, booking.CustomerPhone,
		startStr, endStr, booking.Status, booking.TotalCostCents, booking.Notes,
		dist, 1, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	booking.Version = 1
	booking.CreatedAt = now
	booking.UpdatedAt = now

	return tx.Commit()
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// ListBookings returns every booking, newest first.
func (db *DB) ListBookings(ctx context.Context) ([]*models.Booking, error) {
	return db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC, id DESC`)
}

// GetBookingsByDateRange returns bookings whose rental window intersects
// [start, end], ordered by start date.
func (db *DB) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return db.queryBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE start_date <= ? AND end_date >= ?
		 ORDER BY start_date ASC, created_at ASC`,
		end.Format(models.DateLayout), start.Format(models.DateLayout))
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// GetDailyBookings groups bookings by each day of their rental window
// within [start, end]. Used by the schedule exports.
func (db *DB) GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]*models.Booking, error) {
	bookings, err := db.GetBookingsByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	daily := make(map[string][]*models.Booking)
	for _, b := range bookings {
		for d := b.StartDate; !d.After(b.EndDate); d = d.AddDate(0, 0, 1) {
			if d.Before(start) || d.After(end) {
				continue
			}
			key := d.Format(models.DateLayout)
			daily[key] = append(daily[key], b)
		}
	}
	return daily, nil
}

// UpdateBookingStatusWithVersion moves a booking to a new status only if
// the caller still holds the current version. A zero row count means
// someone else got there first.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id string, fromVersion int64, status string) error {
	query := `UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}
