// Package querylog records executed list queries in a DuckDB table so they
// can be inspected later, itself through the query pipeline.
package querylog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coral-mesh/listquery/internal/duckdb"
	"github.com/coral-mesh/listquery/pkg/query"
)

const tableName = "query_log"

const schema = `CREATE TABLE IF NOT EXISTS query_log (
	id VARCHAR PRIMARY KEY,
	request_id VARCHAR,
	dataset VARCHAR,
	raw_query VARCHAR,
	match_count BIGINT,
	returned INTEGER,
	duration_ms DOUBLE,
	error VARCHAR,
	created_at TIMESTAMP
)`

// Entry is one executed query.
type Entry struct {
	ID         string    `duckdb:"id,pk" json:"id"`
	RequestID  string    `duckdb:"request_id" json:"requestId,omitempty"`
	Dataset    string    `duckdb:"dataset" json:"dataset"`
	RawQuery   string    `duckdb:"raw_query" json:"rawQuery"`
	Count      int64     `duckdb:"match_count" json:"count"`
	Returned   int       `duckdb:"returned" json:"returned"`
	DurationMs float64   `duckdb:"duration_ms" json:"durationMs"`
	Error      string    `duckdb:"error" json:"error,omitempty"`
	CreatedAt  time.Time `duckdb:"created_at" json:"createdAt"`
}

// Store persists entries.
type Store struct {
	db       *sql.DB
	table    *duckdb.Table[Entry]
	pipeline *query.Pipeline
	logger   zerolog.Logger
}

// Open opens or creates the log database at path. ":memory:" keeps the log
// in memory.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := duckdb.OpenDB(path)
	if err != nil {
		return nil, fmt.Errorf("open query log: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create query log table: %w", err)
	}

	logger = logger.With().Str("component", "querylog").Logger()
	return &Store{
		db:    db,
		table: duckdb.NewTable[Entry](db, tableName),
		// Columns resolve case-insensitively.
		pipeline: query.NewPipeline(
			query.WithCompiler(query.NewCompiler(query.WithPropertyMapper(query.Verbatim))),
			query.WithLogger(logger),
		),
		logger: logger,
	}, nil
}

// Record inserts e, assigning an ID and timestamp when missing.
func (s *Store) Record(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := s.table.Insert(ctx, e); err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

// Get returns the entry with the given ID, or sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	return s.table.Get(ctx, id)
}

// List runs settings against the log. Without an explicit ordering, newest
// entries come first.
func (s *Store) List(ctx context.Context, settings *query.Settings) (*query.Page[Entry], error) {
	if settings == nil {
		settings = &query.Settings{}
	}
	if settings.OrderBy == nil {
		settings = settings.Clone()
		settings.OrderBy = &query.OrderBy{Property: "created_at", Descending: true}
	}

	result, err := query.PageResult(ctx, s.pipeline, s.table.Query().WithLogger(s.logger), settings, nil)
	if err != nil {
		return nil, err
	}
	return result.Materialize(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
