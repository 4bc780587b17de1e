// Package catalog serves named datasets through the query pipeline. A dataset
// is either a JSON file held in memory or a table in a DuckDB database file.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/listquery/internal/config"
	"github.com/coral-mesh/listquery/internal/constants"
	"github.com/coral-mesh/listquery/internal/duckdb"
	lqerrors "github.com/coral-mesh/listquery/internal/errors"
	"github.com/coral-mesh/listquery/pkg/query"
	"github.com/coral-mesh/listquery/pkg/query/memory"
)

// ErrDatasetNotFound is returned for names that are not in the catalog.
var ErrDatasetNotFound = errors.New("dataset not found")

// Record is a schemaless dataset row.
type Record = map[string]any

// Dataset is an opened dataset.
type Dataset struct {
	config.DatasetConfig

	records []Record // json
	db      *sql.DB  // duckdb
}

// Query returns a fresh queryable over the dataset.
func (d *Dataset) Query(logger zerolog.Logger) query.Queryable[Record] {
	if d.db != nil {
		return duckdb.Rows(d.db, d.Table).WithLogger(logger)
	}
	return memory.New(d.records)
}

// Catalog holds the opened datasets. It is safe for concurrent use.
type Catalog struct {
	datasets map[string]*Dataset
	names    []string
	pipeline *query.Pipeline
	logger   zerolog.Logger
}

// Open loads every configured dataset. JSON files are read into memory;
// DuckDB files are opened read-only. On failure, datasets opened so far are
// closed.
func Open(ctx context.Context, datasets []config.DatasetConfig, pipeline *query.Pipeline, logger zerolog.Logger) (*Catalog, error) {
	if pipeline == nil {
		pipeline = query.NewPipeline(query.WithLogger(logger))
	}
	c := &Catalog{
		datasets: make(map[string]*Dataset, len(datasets)),
		pipeline: pipeline,
		logger:   logger.With().Str("component", "catalog").Logger(),
	}

	for _, cfg := range datasets {
		if err := ctx.Err(); err != nil {
			c.Close()
			return nil, err
		}
		if _, dup := c.datasets[cfg.Name]; dup {
			c.Close()
			return nil, fmt.Errorf("duplicate dataset %q", cfg.Name)
		}

		ds, err := openDataset(ctx, cfg)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("open dataset %s: %w", cfg.Name, err)
		}
		c.datasets[cfg.Name] = ds
		c.names = append(c.names, cfg.Name)

		c.logger.Info().
			Str("dataset", cfg.Name).
			Str("source", cfg.Source).
			Int("records", len(ds.records)).
			Msg("Dataset opened")
	}

	slices.Sort(c.names)
	return c, nil
}

func openDataset(ctx context.Context, cfg config.DatasetConfig) (*Dataset, error) {
	ds := &Dataset{DatasetConfig: cfg}

	switch cfg.Source {
	case constants.SourceJSON:
		records, err := LoadRecords(cfg.Path)
		if err != nil {
			return nil, err
		}
		ds.records = records

	case constants.SourceDuckDB:
		if !duckdb.IsIdentifier(cfg.Table) {
			return nil, fmt.Errorf("invalid table name %q", cfg.Table)
		}
		db, err := duckdb.OpenDB(cfg.Path + "?access_mode=read_only")
		if err != nil {
			return nil, err
		}
		// Probe the table so a typo fails at startup rather than per request.
		if _, err := duckdb.Rows(db, cfg.Table).Take(0).Count(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		ds.db = db

	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}

	return ds, nil
}

// Names returns the dataset names in sorted order.
func (c *Catalog) Names() []string {
	return slices.Clone(c.names)
}

// Dataset returns the named dataset.
func (c *Catalog) Dataset(name string) (*Dataset, error) {
	ds, ok := c.datasets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}
	return ds, nil
}

// List runs settings against the named dataset and returns one materialized
// page. The page carries no next link; callers that know the request URL add
// one.
func (c *Catalog) List(ctx context.Context, name string, settings *query.Settings) (*query.Page[Record], error) {
	ds, err := c.Dataset(name)
	if err != nil {
		return nil, err
	}

	logger := c.logger.With().Str("dataset", name).Logger()
	result, err := query.PageResult(ctx, c.pipeline, ds.Query(logger), settings, nil)
	if err != nil {
		return nil, err
	}
	return result.Materialize(ctx)
}

// Close releases database handles.
func (c *Catalog) Close() {
	for _, ds := range c.datasets {
		if ds.db != nil {
			lqerrors.DeferClose(c.logger, ds.db, "failed to close dataset "+ds.Name)
		}
	}
}
