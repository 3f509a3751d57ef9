// Package sqlstore persists property records over database/sql through sqlx.
// The same queries run on PostgreSQL (lib/pq) and SQLite (go-sqlite3); decimals
// are stored as TEXT so no precision is lost on either.
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Supported driver names
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var (
	// ErrNotFound is returned when no row matches a lookup
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an append-once record already exists
	ErrDuplicate = errors.New("record already exists")
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS properties (
		id TEXT PRIMARY KEY,
		allottee_name TEXT NOT NULL,
		allottee_email TEXT NOT NULL DEFAULT '',
		scheme_name TEXT NOT NULL,
		floor_category TEXT NOT NULL,
		total_sale_price TEXT NOT NULL,
		registration_amount TEXT NOT NULL,
		allotment_amount TEXT NOT NULL,
		lump_sum_discount TEXT NOT NULL,
		annual_interest_rate_percent TEXT NOT NULL,
		number_of_installments INTEGER NOT NULL,
		allotment_date TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS installments (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		sequence_number INTEGER NOT NULL,
		due_date TIMESTAMP NOT NULL,
		payment_date TIMESTAMP,
		principal_paid TEXT NOT NULL,
		interest_paid TEXT NOT NULL,
		late_fee_paid TEXT NOT NULL,
		days_delinquent INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (property_id, sequence_number)
	)`,
	`CREATE TABLE IF NOT EXISTS service_charges (
		id TEXT PRIMARY KEY,
		property_id TEXT NOT NULL REFERENCES properties(id),
		financial_year TEXT NOT NULL,
		base_amount TEXT NOT NULL,
		late_fee_amount TEXT NOT NULL,
		payment_date TIMESTAMP,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		UNIQUE (property_id, financial_year)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_scheme ON properties (scheme_name)`,
}

// Open connects to the database and verifies the connection
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite allows one writer; a single connection keeps PRAGMAs in effect.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA journal_mode = WAL"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	return db, nil
}

// Migrate creates the tables if they don't already exist
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a unique constraint failure on either driver
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}
