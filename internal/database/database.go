package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNoSchedule is returned when no schedule has been stored for a source.
var ErrNoSchedule = errors.New("no stored schedule")

// DB wraps sql.DB for schedule snapshots and status history.
type DB struct {
	*sql.DB
	path string
}

// NewDB opens the database at path and runs migrations.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{DB: db, path: path}, nil
}

// Path returns the file the database was opened from.
func (db *DB) Path() string {
	return db.path
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS schedules (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			utc_offset_minutes INTEGER NOT NULL DEFAULT 0,
			has_offset INTEGER NOT NULL DEFAULT 0,
			skipped_periods INTEGER NOT NULL DEFAULT 0,
			skipped_overrides INTEGER NOT NULL DEFAULT 0,
			fetched_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS weekly_periods (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			schedule_id TEXT NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			open_day INTEGER NOT NULL,
			open_time TEXT NOT NULL,
			close_day INTEGER NOT NULL,
			close_time TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS special_days (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			schedule_id TEXT NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
			date TEXT NOT NULL,
			UNIQUE(schedule_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS special_day_intervals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			special_day_id INTEGER NOT NULL REFERENCES special_days(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS status_changes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			status TEXT NOT NULL,
			previous TEXT NOT NULL DEFAULT '',
			date TEXT NOT NULL,
			active_start TEXT NOT NULL DEFAULT '',
			active_end TEXT NOT NULL DEFAULT '',
			next_open TEXT NOT NULL DEFAULT '',
			changed_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_schedules_source_fetched ON schedules(source, fetched_at)`,
		`CREATE INDEX IF NOT EXISTS idx_weekly_periods_schedule ON weekly_periods(schedule_id, position)`,
		`CREATE INDEX IF NOT EXISTS idx_special_days_schedule ON special_days(schedule_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_status_changes_source ON status_changes(source, changed_at)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
