// Package sqlite is the relational system of record for the editorial cache.
//
// Every public method holds the adapter mutex for its whole read-modify-write
// sequence, so concurrent writers to the same key are serialized and the last
// one wins. Timestamps are stored as fixed-width UTC text so they compare
// correctly as strings in SQL.
package sqlite

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"editorial-cache/internal/common/logging"
	"editorial-cache/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

const timeLayout = "2006-01-02T15:04:05.000000Z"

// Adapter implements storage.Store on top of SQLite.
type Adapter struct {
	db     *sql.DB
	config *Config
	logger logging.Logger

	mu  sync.Mutex
	now func() time.Time
}

var _ storage.Store = (*Adapter)(nil)

// NewAdapter opens (creating if needed) the database and applies the schema.
func NewAdapter(config *Config) (*Adapter, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SQLite config: %w", err)
	}

	db, err := sql.Open("sqlite3", config.DatabasePath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps ":memory:" databases alive and matches the mutex model
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	adapter := &Adapter{
		db:     db,
		config: config,
		logger: logging.Component("sqlite"),
		now:    time.Now,
	}

	if err := adapter.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	adapter.logger.Debug("SQLite store opened", logging.String("path", config.DatabasePath))
	return adapter, nil
}

// Close closes the database.
func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Health pings the database.
func (a *Adapter) Health() error {
	return a.db.Ping()
}

// Path returns the database file path.
func (a *Adapter) Path() string {
	return a.config.DatabasePath
}

func (a *Adapter) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS referees (
			email TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			institution TEXT NOT NULL DEFAULT '',
			department TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			orcid TEXT NOT NULL DEFAULT '',
			last_seen TEXT NOT NULL,
			last_updated TEXT NOT NULL,
			journals_seen TEXT NOT NULL DEFAULT '[]',
			affiliations_history TEXT NOT NULL DEFAULT '[]',
			data_hash TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS manuscripts (
			manuscript_id TEXT NOT NULL,
			journal TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			authors TEXT NOT NULL DEFAULT '[]',
			submission_date TEXT NOT NULL DEFAULT '',
			last_updated TEXT NOT NULL DEFAULT '',
			extraction_date TEXT NOT NULL,
			data_hash TEXT NOT NULL DEFAULT '',
			referee_count INTEGER NOT NULL DEFAULT 0,
			has_version_history INTEGER NOT NULL DEFAULT 0,
			full_data TEXT,
			PRIMARY KEY (manuscript_id, journal)
		)`,
		`CREATE TABLE IF NOT EXISTS institutions (
			domain TEXT PRIMARY KEY,
			institution_name TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			last_updated TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS referee_performance_cache (
			referee_email TEXT PRIMARY KEY,
			metrics TEXT NOT NULL,
			calculated_at TEXT NOT NULL,
			valid_until TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS journal_statistics (
			journal_id TEXT NOT NULL,
			period_start TEXT NOT NULL,
			period_end TEXT NOT NULL,
			total_submissions INTEGER NOT NULL DEFAULT 0,
			average_review_time REAL NOT NULL DEFAULT 0,
			acceptance_rate REAL NOT NULL DEFAULT 0,
			desk_rejection_rate REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (journal_id, period_start, period_end)
		)`,
		`CREATE TABLE IF NOT EXISTS extraction_runs (
			run_id TEXT PRIMARY KEY,
			journal TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT,
			manuscripts_extracted INTEGER NOT NULL DEFAULT 0,
			new_manuscripts INTEGER NOT NULL DEFAULT 0,
			updated_manuscripts INTEGER NOT NULL DEFAULT 0,
			new_referees INTEGER NOT NULL DEFAULT 0,
			errors INTEGER NOT NULL DEFAULT 0,
			metadata TEXT
		)`,

		`CREATE INDEX IF NOT EXISTS idx_manuscripts_journal ON manuscripts(journal)`,
		`CREATE INDEX IF NOT EXISTS idx_manuscripts_extraction_date ON manuscripts(extraction_date)`,
		`CREATE INDEX IF NOT EXISTS idx_referees_last_seen ON referees(last_seen)`,
		`CREATE INDEX IF NOT EXISTS idx_extraction_runs_journal ON extraction_runs(journal, start_time)`,
	}

	for _, query := range queries {
		if _, err := a.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration query: %w", err)
		}
	}

	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}
