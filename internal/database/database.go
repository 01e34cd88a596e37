package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps the sqlite connection holding the inventory, reservation ledger
// and cart tables.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

// NewDB opens (creating if needed) the database at path and ensures the schema.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL for concurrent readers; txlock=immediate so write transactions take
	// the write lock at BEGIN, serializing check-then-insert sequences.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}

	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			image TEXT,
			description TEXT,
			note TEXT,
			created_at DATETIME,
			stored_in TEXT,
			responsible_person TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS users (
			telegram_username TEXT PRIMARY KEY,
			sire TEXT
		)`,

		// start_ts/end_ts are stored as "YYYY-MM-DD HH:MM:SS" UTC strings;
		// the same strings feed the deterministic reservation id hash.
		`CREATE TABLE IF NOT EXISTS reservations (
			id TEXT PRIMARY KEY,
			start_ts TEXT NOT NULL,
			end_ts TEXT NOT NULL,
			made_by TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS reservations_entries (
			reservation_id TEXT NOT NULL,
			entry_id TEXT NOT NULL,
			PRIMARY KEY (reservation_id, entry_id),
			FOREIGN KEY (reservation_id) REFERENCES reservations(id)
		)`,

		`CREATE TABLE IF NOT EXISTS cart (
			id TEXT NOT NULL,
			entry_id TEXT NOT NULL,
			PRIMARY KEY (id, entry_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_reservations_entries_entry ON reservations_entries(entry_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reservations_window ON reservations(start_ts, end_ts)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_name ON entries(name)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %v", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
