// Package history persists sync pass summaries for the status endpoint.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// PassRecord is one persisted sync pass summary.
type PassRecord struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Updated    int           `json:"updated"`
	Unchanged  int           `json:"unchanged"`
	TimedOut   int           `json:"timed_out"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration"`
}

// Store persists pass summaries in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (or creates) the pass history database.
// Use ":memory:" for an in-memory database, or a file path for persistence.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS passes (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		updated INTEGER NOT NULL,
		unchanged INTEGER NOT NULL,
		timed_out INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_passes_started_at ON passes(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordPass appends one pass summary.
func (s *Store) RecordPass(ctx context.Context, rec PassRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO passes (id, started_at, finished_at, updated, unchanged, timed_out, failed, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		rec.ID, rec.StartedAt.Unix(), rec.FinishedAt.Unix(),
		rec.Updated, rec.Unchanged, rec.TimedOut, rec.Failed,
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert pass: %w", err)
	}
	return nil
}

// RecentPasses returns up to limit passes, newest first.
func (s *Store) RecentPasses(ctx context.Context, limit int) ([]PassRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started_at, finished_at, updated, unchanged, timed_out, failed, duration_ms FROM passes ORDER BY started_at DESC, id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	var records []PassRecord
	for rows.Next() {
		var rec PassRecord
		var started, finished, durationMS int64
		if err := rows.Scan(&rec.ID, &started, &finished, &rec.Updated, &rec.Unchanged, &rec.TimedOut, &rec.Failed, &durationMS); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		rec.StartedAt = time.Unix(started, 0).UTC()
		rec.FinishedAt = time.Unix(finished, 0).UTC()
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune deletes passes older than the cutoff and returns the rows removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM passes WHERE started_at < ?", olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("prune passes: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
