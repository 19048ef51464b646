// Package sqlite provides SQLite-based storage for extracted trials.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB represents a SQLite database connection.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB creates a new DB instance with the given path.
// Use ":memory:" for an in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open opens the database connection and creates the schema if needed.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit to one connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Wait 5 seconds on lock contention before failing.
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// WAL mode is not supported for in-memory databases.
	if db.path != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			conn.Close()
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db.db = conn

	if err := db.createSchema(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// BeginTx starts a transaction.
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, nil)
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// createSchema creates the database tables if they don't exist.
func (db *DB) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS trial_cards (
			eudract_number TEXT PRIMARY KEY,
			sponsor_protocol_number TEXT NOT NULL DEFAULT '',
			start_date TEXT NOT NULL DEFAULT '',
			sponsor_name TEXT NOT NULL DEFAULT '',
			full_title TEXT NOT NULL DEFAULT '',
			medical_condition TEXT NOT NULL DEFAULT '',
			population_age TEXT NOT NULL DEFAULT '',
			gender TEXT NOT NULL DEFAULT '',
			disease_version TEXT,
			disease_soc_term TEXT,
			disease_classification_code TEXT,
			disease_term TEXT,
			disease_level TEXT,
			trial_results_link TEXT,
			run_id TEXT NOT NULL DEFAULT '',
			fetched_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS trial_protocols (
			protocol_id TEXT PRIMARY KEY,
			eudract_number TEXT NOT NULL REFERENCES trial_cards(eudract_number) ON DELETE CASCADE,
			protocol_name TEXT NOT NULL DEFAULT '',
			protocol_url TEXT NOT NULL,
			protocol_status TEXT NOT NULL DEFAULT '',
			document TEXT NOT NULL DEFAULT '',
			content_hash TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS trial_results (
			eudract_number TEXT NOT NULL REFERENCES trial_cards(eudract_number) ON DELETE CASCADE,
			version TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			global_end_date TEXT,
			document TEXT NOT NULL DEFAULT '',
			html_hash TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (eudract_number, version)
		);

		CREATE INDEX IF NOT EXISTS idx_trial_protocols_eudract ON trial_protocols(eudract_number);
		CREATE INDEX IF NOT EXISTS idx_trial_results_eudract ON trial_results(eudract_number);
	`

	_, err := db.db.Exec(schema)
	return err
}
