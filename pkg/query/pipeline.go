package query

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
)

// Pipeline applies Settings to a Queryable: filtering, count capture,
// ordering, then pagination. A Pipeline is immutable and safe for concurrent
// use.
type Pipeline struct {
	compiler *Compiler
	logger   zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCompiler sets the compiler used for non-raw filters.
func WithCompiler(c *Compiler) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.compiler = c
		}
	}
}

// WithLogger enables debug logging of applied and skipped filters.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger.With().Str("component", "query").Logger()
	}
}

// NewPipeline creates a Pipeline.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		compiler: defaultCompiler,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Compiler returns the compiler used by p.
func (p *Pipeline) Compiler() *Compiler {
	return p.compiler
}

// Apply runs settings against source and returns the filtered, ordered and
// paginated queryable together with the number of records that matched the
// filters. The count is taken after filtering and before ordering and
// pagination.
func Apply[T any](ctx context.Context, p *Pipeline, source Queryable[T], settings *Settings) (Queryable[T], int64, error) {
	if settings == nil {
		settings = &Settings{}
	}

	filtered, items := Plan(p, source, settings)

	count, err := filtered.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	p.logger.Debug().
		Int("filters", len(settings.Filters)).
		Bool("where", settings.Where != "").
		Int64("count", count).
		Msg("Applied query settings")

	return items, count, nil
}

// Plan composes settings onto source without executing anything. It returns
// the filtered queryable that Apply counts and the final ordered and
// paginated one. A Skip without a Top is ignored.
func Plan[T any](p *Pipeline, source Queryable[T], settings *Settings) (filtered, items Queryable[T]) {
	if settings == nil {
		settings = &Settings{}
	}

	filtered = filter(p, source, settings)
	items = filtered

	if settings.OrderBy != nil && settings.OrderBy.Property != "" {
		items = items.OrderBy(p.compiler.MapProperty(settings.OrderBy.Property), settings.OrderBy.Descending)
	}

	switch {
	case settings.Top != nil && settings.Skip != nil:
		items = items.Skip(*settings.Skip).Take(*settings.Top)
	case settings.Top != nil:
		items = items.Take(*settings.Top)
	}

	return filtered, items
}

// filter applies the filter list, or the raw where clause when there are no
// filters. The untouched source is kept for SqlUnion.
func filter[T any](p *Pipeline, source Queryable[T], settings *Settings) Queryable[T] {
	original := source
	current := source

	if len(settings.Filters) > 0 {
		for i, spec := range settings.Filters {
			switch spec.Operation {
			case OpSql:
				current = current.WhereRaw(spec.Sql, spec.RawArgs()...)
				p.logger.Debug().Int("index", i).Str("expr", spec.Sql).Msg("Applied raw filter")

			case OpSqlUnion:
				current = current.Union(original.WhereRaw(spec.Sql, spec.RawArgs()...))
				p.logger.Debug().Int("index", i).Str("expr", spec.Sql).Msg("Applied raw union filter")

			default:
				pred, ok := p.compiler.Compile(spec)
				if !ok {
					p.logger.Debug().Int("index", i).Str("filter", spec.String()).Msg("Skipped filter with unknown operation")
					continue
				}
				current = current.Where(pred)
				p.logger.Debug().Int("index", i).Str("expr", pred.Expression()).Msg("Applied filter")
			}
		}
		return current
	}

	if settings.Where != "" {
		return current.WhereRaw(settings.Where, settings.WhereParams...)
	}

	return current
}

// ApplyTo runs settings against source and returns only the items.
func ApplyTo[T any](ctx context.Context, p *Pipeline, source Queryable[T], settings *Settings) (Queryable[T], error) {
	items, _, err := Apply(ctx, p, source, settings)
	return items, err
}

// PageResult runs settings against source and wraps the outcome in a Result.
// nextPageLink is passed through untouched and may be nil.
func PageResult[T any](ctx context.Context, p *Pipeline, source Queryable[T], settings *Settings, nextPageLink *url.URL) (*Result[T], error) {
	items, count, err := Apply(ctx, p, source, settings)
	if err != nil {
		return nil, err
	}
	return &Result[T]{
		Items:        items,
		Count:        count,
		NextPageLink: nextPageLink,
	}, nil
}

// ApplyQueryString parses a raw query string ("$filter=...&$top=10") and runs
// it against source. An empty query string returns source unchanged.
func ApplyQueryString[T any](ctx context.Context, p *Pipeline, source Queryable[T], rawQuery string) (Queryable[T], error) {
	if rawQuery == "" {
		return source, nil
	}
	settings, err := ParseQueryString(rawQuery)
	if err != nil {
		return nil, err
	}
	return ApplyTo(ctx, p, source, settings)
}

// WithRequestFilters returns settings unchanged when it already has filters,
// otherwise a copy whose filters are taken from the request parameters. This
// lets a handler fix ordering or paging while still honouring the client's
// $filter.
func WithRequestFilters(settings *Settings, params Params) (*Settings, error) {
	if settings == nil {
		return SettingsFromParams(params)
	}
	if len(settings.Filters) > 0 {
		return settings, nil
	}
	filters, err := filtersFromParams(params)
	if err != nil {
		return nil, err
	}
	merged := settings.Clone()
	merged.Filters = filters
	return merged, nil
}
