package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/ngmaloney/forecast-terminal/internal/models"
)

// DBPath returns the path to the single shared database under dataDir.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, "forecast-terminal.db")
}

// Open opens (creating if needed) the SQLite database and ensures the schema.
func Open(dbPath string) (*sqlx.DB, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// :memory: databases are per connection.
	db.SetMaxOpenConns(1)
	_, _ = db.Exec("PRAGMA journal_mode=WAL")
	_, _ = db.Exec("PRAGMA synchronous=NORMAL")

	if err := EnsureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the tables that are not provisioned from downloads.
func EnsureSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS forecast_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run TEXT NOT NULL,
			run_date TEXT NOT NULL,
			run_hour INTEGER NOT NULL,
			bytes INTEGER NOT NULL DEFAULT 0,
			fallback INTEGER NOT NULL DEFAULT 0,
			acquired_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_forecast_runs_acquired ON forecast_runs(acquired_at);
	`)
	if err != nil {
		return fmt.Errorf("creating forecast_runs table: %w", err)
	}
	return nil
}

// RunRecord is one row of the acquisition history.
type RunRecord struct {
	Run        string    `db:"run"`
	RunDate    string    `db:"run_date"`
	RunHour    int       `db:"run_hour"`
	Bytes      int64     `db:"bytes"`
	Fallback   bool      `db:"fallback"`
	AcquiredAt time.Time `db:"acquired_at"`
}

// History records every run the pipeline acquired.
type History struct {
	db *sqlx.DB
}

func NewHistory(db *sqlx.DB) *History {
	return &History{db: db}
}

// RecordRun appends an acquired run.
func (h *History) RecordRun(ctx context.Context, run models.RunID, bytes int64, fallback bool, acquiredAt time.Time) error {
	rec := RunRecord{
		Run:        run.String(),
		RunDate:    run.DateString(),
		RunHour:    run.Hour,
		Bytes:      bytes,
		Fallback:   fallback,
		AcquiredAt: acquiredAt.UTC(),
	}
	_, err := h.db.NamedExecContext(ctx, `
		INSERT INTO forecast_runs (run, run_date, run_hour, bytes, fallback, acquired_at)
		VALUES (:run, :run_date, :run_hour, :bytes, :fallback, :acquired_at)
	`, rec)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run, err)
	}
	return nil
}

// Recent returns up to n runs, newest first.
func (h *History) Recent(ctx context.Context, n int) ([]RunRecord, error) {
	var recs []RunRecord
	err := h.db.SelectContext(ctx, &recs, `
		SELECT run, run_date, run_hour, bytes, fallback, acquired_at
		FROM forecast_runs
		ORDER BY acquired_at DESC, id DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("querying run history: %w", err)
	}
	return recs, nil
}
