package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corpuskit/novel-analyzer/pkg/postgres"
	"github.com/corpuskit/novel-analyzer/pkg/resilience"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS search_events (
	id          BIGSERIAL PRIMARY KEY,
	doc_id      TEXT        NOT NULL,
	query       TEXT        NOT NULL,
	total_hits  INTEGER     NOT NULL,
	returned    INTEGER     NOT NULL,
	latency_ms  BIGINT      NOT NULL,
	cache_hit   BOOLEAN     NOT NULL,
	request_id  TEXT        NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// QueryLog persists search events to PostgreSQL so query history survives
// restarts. It is optional; the service runs without it.
type QueryLog struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewQueryLog ensures the search_events table exists and returns a QueryLog.
func NewQueryLog(ctx context.Context, db *postgres.Client) (*QueryLog, error) {
	err := resilience.Retry(ctx, "querylog-migrate", resilience.RetryConfig{}, func() error {
		_, err := db.DB.ExecContext(ctx, createTableSQL)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating search_events table: %w", err)
	}
	return &QueryLog{
		db:     db,
		logger: slog.Default().With("component", "query-log"),
	}, nil
}

// Record inserts one search event.
func (q *QueryLog) Record(ctx context.Context, event SearchEvent) error {
	const insertSQL = `
		INSERT INTO search_events
			(doc_id, query, total_hits, returned, latency_ms, cache_hit, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	return resilience.Retry(ctx, "querylog-insert", resilience.RetryConfig{MaxAttempts: 2}, func() error {
		_, err := q.db.DB.ExecContext(ctx, insertSQL,
			event.DocID,
			event.Query,
			event.TotalHits,
			event.Returned,
			event.LatencyMs,
			event.CacheHit,
			event.RequestID,
			event.Timestamp,
		)
		return err
	})
}

// LoggedQuery is one row of the durable query log.
type LoggedQuery struct {
	DocID     string    `json:"doc_id"`
	Query     string    `json:"query"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	CreatedAt time.Time `json:"created_at"`
}

// Recent returns the most recent logged queries, newest first.
func (q *QueryLog) Recent(ctx context.Context, limit int) ([]LoggedQuery, error) {
	const selectSQL = `
		SELECT doc_id, query, total_hits, returned, latency_ms, cache_hit, created_at
		FROM search_events
		ORDER BY created_at DESC
		LIMIT $1`
	rows, err := q.db.DB.QueryContext(ctx, selectSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("querying search_events: %w", err)
	}
	defer rows.Close()

	queries := make([]LoggedQuery, 0, limit)
	for rows.Next() {
		var lq LoggedQuery
		if err := rows.Scan(&lq.DocID, &lq.Query, &lq.TotalHits, &lq.Returned,
			&lq.LatencyMs, &lq.CacheHit, &lq.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning search_events row: %w", err)
		}
		queries = append(queries, lq)
	}
	return queries, rows.Err()
}
