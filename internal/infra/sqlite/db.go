// Package sqlite provides SQLite-based persistent storage for Keybeat.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Key-value store for scalar state (totals, streak, xp, settings,
		// device identity)
		`CREATE TABLE IF NOT EXISTS state (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Time-bucketed counters
		`CREATE TABLE IF NOT EXISTS daily_counts (
			date  TEXT PRIMARY KEY,
			count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS hourly_counts (
			date  TEXT NOT NULL,
			hour  INTEGER NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (date, hour)
		)`,

		// Unlocked achievements (append-only)
		`CREATE TABLE IF NOT EXISTS achievements (
			id          TEXT PRIMARY KEY,
			category    TEXT NOT NULL,
			unlocked_at INTEGER NOT NULL
		)`,

		// Day/week challenges with progress tracking
		`CREATE TABLE IF NOT EXISTS challenges (
			id         TEXT PRIMARY KEY,
			type       TEXT NOT NULL,
			title      TEXT NOT NULL,
			target     INTEGER NOT NULL,
			progress   INTEGER NOT NULL DEFAULT 0,
			start_date TEXT NOT NULL,
			end_date   TEXT NOT NULL,
			completed  BOOLEAN NOT NULL DEFAULT 0,
			reward_xp  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_challenges_end ON challenges(end_date)`,

		// User-defined goals (never auto-expired)
		`CREATE TABLE IF NOT EXISTS goals (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			type        TEXT NOT NULL,
			target      INTEGER NOT NULL,
			current     INTEGER NOT NULL DEFAULT 0,
			target_date TEXT,
			completed   BOOLEAN NOT NULL DEFAULT 0,
			created_at  INTEGER NOT NULL
		)`,

		// XP ledger (append-only audit trail; balance mirrors state.user_xp)
		`CREATE TABLE IF NOT EXISTS xp_ledger (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			delta      INTEGER NOT NULL,
			source     TEXT NOT NULL,
			ref        TEXT,
			balance    INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_created ON xp_ledger(created_at)`,

		// One-shot notification log
		`CREATE TABLE IF NOT EXISTS notifications (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			kind       TEXT NOT NULL,
			title      TEXT NOT NULL,
			body       TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notif_created ON notifications(created_at)`,

		// Hosted replica rows (relay mode). The daemon never touches this
		// table; each device's row is replaced wholesale on upsert.
		`CREATE TABLE IF NOT EXISTS replicas (
			user_id      TEXT NOT NULL,
			device_id    TEXT NOT NULL,
			device_name  TEXT NOT NULL DEFAULT '',
			payload      TEXT NOT NULL,
			last_updated INTEGER NOT NULL,
			PRIMARY KEY (user_id, device_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_replicas_updated ON replicas(user_id, last_updated)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
