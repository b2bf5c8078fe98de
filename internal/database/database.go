package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"airwave/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type DB struct {
	*sql.DB
	mu           sync.RWMutex
	catalogCache map[string]*models.CatalogEntry
	logger       *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Transactions take the write lock up front and queue up to 5s, so
	// concurrent allocation attempts serialize instead of deadlocking on
	// a shared-to-reserved lock upgrade.
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{
		DB:           db,
		catalogCache: make(map[string]*models.CatalogEntry),
		logger:       logger,
	}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS catalog_entries (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            description TEXT,
            kind TEXT NOT NULL DEFAULT 'serialized',
            daily_rate_cents INTEGER NOT NULL DEFAULT 0,
            weekly_rate_cents INTEGER NOT NULL DEFAULT 0,
            popular BOOLEAN NOT NULL DEFAULT 0,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            sort_order INTEGER NOT NULL DEFAULT 0,
            unit_count INTEGER,
            batteries_per_unit INTEGER,
            headsets_per_unit INTEGER,
            headset_distribution TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS units (
            id TEXT PRIMARY KEY,
            catalog_id TEXT NOT NULL,
            serial_number TEXT UNIQUE NOT NULL,
            model TEXT,
            status TEXT NOT NULL DEFAULT 'available',
            condition TEXT NOT NULL DEFAULT 'excellent',
            last_serviced DATETIME,
            notes TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id TEXT PRIMARY KEY,
            catalog_id TEXT NOT NULL,
            catalog_name TEXT NOT NULL,
            unit_id TEXT,
            unit_serial TEXT,
            customer_name TEXT NOT NULL,
            customer_email TEXT NOT NULL,
            customer_phone TEXT,
            start_date TEXT NOT NULL,
            end_date TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            total_cost_cents INTEGER NOT NULL DEFAULT 0,
            notes TEXT,
            headset_distribution TEXT,
            version INTEGER NOT NULL DEFAULT 1,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS export_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            booking_id TEXT,
            payload TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_units_catalog_id ON units(catalog_id)`,
		`CREATE INDEX IF NOT EXISTS idx_units_status ON units(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_catalog_id ON bookings(catalog_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_unit_id ON bookings(unit_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_dates ON bookings(start_date, end_date)`,
		`CREATE INDEX IF NOT EXISTS idx_export_queue_status ON export_queue(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}
