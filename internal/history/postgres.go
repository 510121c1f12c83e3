package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend implements the Backend interface using PostgreSQL with pgx.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend connects to the database at dsn and ensures the schema.
func NewPostgresBackend(dsn string) (*PostgresBackend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := ensurePostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

func ensurePostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	schema := `
	CREATE TABLE IF NOT EXISTS update_events (
		id BIGSERIAL PRIMARY KEY,
		version TEXT NOT NULL,
		previous TEXT NOT NULL DEFAULT '',
		success BOOLEAN NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		occurred_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS counter_samples (
		id BIGSERIAL PRIMARY KEY,
		total_requests BIGINT NOT NULL,
		successful_requests BIGINT NOT NULL,
		failed_requests BIGINT NOT NULL,
		input_tokens BIGINT NOT NULL,
		output_tokens BIGINT NOT NULL,
		sampled_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_update_events_time ON update_events(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_counter_samples_time ON counter_samples(sampled_at);
	`
	_, err := pool.Exec(ctx, schema)
	return err
}

// RecordUpdate stores one update attempt.
func (b *PostgresBackend) RecordUpdate(ctx context.Context, event UpdateEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	_, err := b.pool.Exec(ctx, `
		INSERT INTO update_events (version, previous, success, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`, event.Version, event.Previous, event.Success, event.Detail, event.OccurredAt)
	if err != nil {
		return fmt.Errorf("insert update event: %w", err)
	}
	return nil
}

// RecordSample stores one counter snapshot.
func (b *PostgresBackend) RecordSample(ctx context.Context, sample Sample) error {
	if sample.SampledAt.IsZero() {
		sample.SampledAt = time.Now()
	}
	_, err := b.pool.Exec(ctx, `
		INSERT INTO counter_samples
			(total_requests, successful_requests, failed_requests, input_tokens, output_tokens, sampled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, int64(sample.TotalRequests), int64(sample.SuccessfulRequests), int64(sample.FailedRequests),
		int64(sample.InputTokens), int64(sample.OutputTokens), sample.SampledAt)
	if err != nil {
		return fmt.Errorf("insert counter sample: %w", err)
	}
	return nil
}

// RecentUpdates returns the newest update events, newest first.
func (b *PostgresBackend) RecentUpdates(ctx context.Context, limit int) ([]UpdateEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := b.pool.Query(ctx, `
		SELECT version, previous, success, detail, occurred_at
		FROM update_events
		ORDER BY occurred_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query update events: %w", err)
	}
	defer rows.Close()

	var results []UpdateEvent
	for rows.Next() {
		var e UpdateEvent
		if err := rows.Scan(&e.Version, &e.Previous, &e.Success, &e.Detail, &e.OccurredAt); err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// DailyTotals returns per-day counter high-water marks since the given time.
func (b *PostgresBackend) DailyTotals(ctx context.Context, since time.Time) ([]DailyTotal, error) {
	rows, err := b.pool.Query(ctx, `
		SELECT
			TO_CHAR(sampled_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
			MAX(total_requests) AS requests,
			MAX(input_tokens + output_tokens) AS tokens
		FROM counter_samples
		WHERE sampled_at >= $1
		GROUP BY day
		ORDER BY day
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query daily totals: %w", err)
	}
	defer rows.Close()

	var results []DailyTotal
	for rows.Next() {
		var d DailyTotal
		var requests, tokens int64
		if err := rows.Scan(&d.Day, &requests, &tokens); err != nil {
			return nil, err
		}
		d.Requests = uint64(requests)
		d.Tokens = uint64(tokens)
		results = append(results, d)
	}
	return results, rows.Err()
}

// PruneSamples removes counter samples older than the given time.
func (b *PostgresBackend) PruneSamples(ctx context.Context, before time.Time) (int64, error) {
	result, err := b.pool.Exec(ctx, `
		DELETE FROM counter_samples WHERE sampled_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// Close releases the connection pool.
func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}
