package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend implements the Backend interface using a local SQLite file.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (creating if necessary) the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// The driver serializes access through a single connection.
	db.SetMaxOpenConns(1)

	if err := ensureSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func ensureSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS update_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version TEXT NOT NULL,
		previous TEXT NOT NULL DEFAULT '',
		success INTEGER NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		occurred_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS counter_samples (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		total_requests INTEGER NOT NULL,
		successful_requests INTEGER NOT NULL,
		failed_requests INTEGER NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		sampled_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_update_events_time ON update_events(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_counter_samples_time ON counter_samples(sampled_at);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordUpdate stores one update attempt.
func (b *SQLiteBackend) RecordUpdate(ctx context.Context, event UpdateEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO update_events (version, previous, success, detail, occurred_at)
		VALUES (?, ?, ?, ?, ?)
	`, event.Version, event.Previous, event.Success, event.Detail, event.OccurredAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert update event: %w", err)
	}
	return nil
}

// RecordSample stores one counter snapshot.
func (b *SQLiteBackend) RecordSample(ctx context.Context, sample Sample) error {
	if sample.SampledAt.IsZero() {
		sample.SampledAt = time.Now()
	}
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO counter_samples
			(total_requests, successful_requests, failed_requests, input_tokens, output_tokens, sampled_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sample.TotalRequests, sample.SuccessfulRequests, sample.FailedRequests,
		sample.InputTokens, sample.OutputTokens, sample.SampledAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert counter sample: %w", err)
	}
	return nil
}

// RecentUpdates returns the newest update events, newest first.
func (b *SQLiteBackend) RecentUpdates(ctx context.Context, limit int) ([]UpdateEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := b.db.QueryContext(ctx, `
		SELECT version, previous, success, detail, occurred_at
		FROM update_events
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query update events: %w", err)
	}
	defer rows.Close()

	var results []UpdateEvent
	for rows.Next() {
		var e UpdateEvent
		var occurredAt string
		if err := rows.Scan(&e.Version, &e.Previous, &e.Success, &e.Detail, &occurredAt); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, occurredAt); err == nil {
			e.OccurredAt = t
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// DailyTotals returns per-day counter high-water marks since the given time.
// Samples are cumulative, so the day's maximum is its closing value.
func (b *SQLiteBackend) DailyTotals(ctx context.Context, since time.Time) ([]DailyTotal, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT
			substr(sampled_at, 1, 10) AS day,
			MAX(total_requests) AS requests,
			MAX(input_tokens + output_tokens) AS tokens
		FROM counter_samples
		WHERE sampled_at >= ?
		GROUP BY day
		ORDER BY day
	`, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("query daily totals: %w", err)
	}
	defer rows.Close()

	var results []DailyTotal
	for rows.Next() {
		var d DailyTotal
		if err := rows.Scan(&d.Day, &d.Requests, &d.Tokens); err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}

// PruneSamples removes counter samples older than the given time.
func (b *SQLiteBackend) PruneSamples(ctx context.Context, before time.Time) (int64, error) {
	result, err := b.db.ExecContext(ctx, `
		DELETE FROM counter_samples WHERE sampled_at < ?
	`, before.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Close releases the underlying database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
