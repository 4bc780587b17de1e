package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/listquery/pkg/query"
)

// source describes what a Queryable reads from and how rows are decoded.
// Queryables derived from the same source can be unioned.
type source[T any] struct {
	table string
	// columns are the quoted columns selected by List. Empty selects *.
	columns []string
	// tiebreak columns are appended to ORDER BY so sorting is deterministic.
	tiebreak []string
	resolve  func(property string) (string, bool)
	scan     func(rows *sql.Rows) (T, error)
}

// Queryable is a lazy SQL query over a DuckDB table or view. Each call builds
// on an immutable plan; SQL is only rendered and executed by Count and List.
// Where, OrderBy, Skip and Take compose in call order: a filter added after
// Take applies to the taken rows, not to the whole table.
type Queryable[T any] struct {
	db     Execer
	src    *source[T]
	plan   plan
	logger zerolog.Logger
}

var _ query.Queryable[map[string]any] = (*Queryable[map[string]any])(nil)

type plan struct {
	// from is a rendered subquery; empty means the source table.
	from     string
	fromArgs []any
	depth    int

	where    []whereClause
	order    []string
	limit    int
	hasLimit bool
	offset   int

	err error
}

func newQueryable[T any](db Execer, src *source[T]) *Queryable[T] {
	return &Queryable[T]{db: db, src: src, logger: zerolog.Nop()}
}

// Rows returns a lazy query over table with rows decoded into maps keyed by
// column name. table may be any FROM expression, such as a view or a
// read_json_auto call.
func Rows(db Execer, table string) *Queryable[map[string]any] {
	return newQueryable(db, &source[map[string]any]{
		table: table,
		resolve: func(property string) (string, bool) {
			return QuoteIdent(property), true
		},
		scan: scanMap,
	})
}

// WithLogger returns a copy of q that logs rendered SQL at debug level.
func (q *Queryable[T]) WithLogger(logger zerolog.Logger) *Queryable[T] {
	c := *q
	c.logger = logger
	return &c
}

func (q *Queryable[T]) with(p plan) *Queryable[T] {
	c := *q
	c.plan = p
	return &c
}

// clone copies the plan so appends never alias the receiver's slices.
func (p plan) clone() plan {
	c := p
	c.where = append([]whereClause(nil), p.where...)
	c.order = append([]string(nil), p.order...)
	return c
}

// paged reports whether ordering or row windowing has been applied, in which
// case further filtering must wrap the current plan in a subquery.
func (p plan) paged() bool {
	return p.hasLimit || p.offset > 0
}

// SQL renders the query selecting columns (or * when none are given).
func (q *Queryable[T]) SQL(columns ...string) (string, []any, error) {
	return q.plan.render(q.src.table, columns)
}

func (p plan) render(table string, columns []string) (string, []any, error) {
	if p.err != nil {
		return "", nil, p.err
	}

	var b *Builder
	if p.from == "" {
		b = NewQueryBuilder(table)
	} else {
		b = NewSubqueryBuilder(p.from, "q"+strconv.Itoa(p.depth), p.fromArgs...)
	}
	b.Select(columns...)
	b.where = append(b.where, p.where...)
	b.OrderBy(p.order...)
	if p.hasLimit {
		b.Limit(p.limit)
	}
	b.Offset(p.offset)
	return b.Build()
}

// wrap turns the current plan into a subquery so later operations apply to
// its result.
func (q *Queryable[T]) wrap() plan {
	rendered, args, err := q.plan.render(q.src.table, nil)
	if err != nil {
		return plan{err: err}
	}
	return plan{from: rendered, fromArgs: args, depth: q.plan.depth + 1}
}

func (q *Queryable[T]) filterPlan() plan {
	if q.plan.paged() {
		return q.wrap()
	}
	return q.plan.clone()
}

// Where narrows the query with a compiled predicate.
func (q *Queryable[T]) Where(pred query.Predicate) query.Queryable[T] {
	p := q.filterPlan()
	if p.err != nil {
		return q.with(p)
	}

	column, ok := q.src.resolve(pred.Field)
	if !ok {
		p.err = fmt.Errorf("%w: %q", query.ErrUnknownField, pred.Field)
		return q.with(p)
	}

	scratch := &Builder{}
	if err := applyPredicate(scratch, column, pred); err != nil {
		p.err = err
		return q.with(p)
	}
	p.where = append(p.where, scratch.where...)
	return q.with(p)
}

// WhereRaw narrows the query with a SQL boolean expression. Placeholders @0,
// @1 and so on are bound to args.
func (q *Queryable[T]) WhereRaw(expr string, args ...any) query.Queryable[T] {
	p := q.filterPlan()
	if p.err != nil {
		return q.with(p)
	}

	rewritten, bound, err := BindPlaceholders(expr, args)
	if err != nil {
		p.err = err
		return q.with(p)
	}
	p.where = append(p.where, whereClause{expr: rewritten, args: bound})
	return q.with(p)
}

// Union appends the rows of other that q does not already contain. other must
// come from the same table.
func (q *Queryable[T]) Union(other query.Queryable[T]) query.Queryable[T] {
	o, ok := other.(*Queryable[T])
	if !ok || o.src.table != q.src.table {
		return q.with(plan{err: fmt.Errorf("%w: union of %T with a different source", query.ErrIncompatibleSource, other)})
	}

	left, leftArgs, err := q.plan.render(q.src.table, nil)
	if err != nil {
		return q.with(plan{err: err})
	}
	right, rightArgs, err := o.plan.render(o.src.table, nil)
	if err != nil {
		return q.with(plan{err: err})
	}

	args := make([]any, 0, 2*len(leftArgs)+len(rightArgs))
	args = append(args, leftArgs...)
	args = append(args, rightArgs...)
	args = append(args, leftArgs...)

	return q.with(plan{
		from:     fmt.Sprintf("(%s) UNION ALL ((%s) EXCEPT (%s))", left, right, left),
		fromArgs: args,
		depth:    max(q.plan.depth, o.plan.depth) + 1,
	})
}

// OrderBy sorts by property, nulls first when ascending. The table's primary
// key columns break ties.
func (q *Queryable[T]) OrderBy(property string, descending bool) query.Queryable[T] {
	p := q.filterPlan()
	if p.err != nil {
		return q.with(p)
	}

	column, ok := q.src.resolve(property)
	if !ok {
		p.err = fmt.Errorf("%w: %q", query.ErrUnknownField, property)
		return q.with(p)
	}
	if descending {
		column = "-" + column
	}
	p.order = append([]string{column}, q.src.tiebreak...)
	return q.with(p)
}

// Skip drops the first n rows. Negative n is treated as zero.
func (q *Queryable[T]) Skip(n int) query.Queryable[T] {
	p := q.plan.clone()
	if p.hasLimit {
		p = q.wrap()
	}
	p.offset += max(n, 0)
	return q.with(p)
}

// Take keeps at most n rows. Negative n is treated as zero.
func (q *Queryable[T]) Take(n int) query.Queryable[T] {
	p := q.plan.clone()
	n = max(n, 0)
	if !p.hasLimit || n < p.limit {
		p.limit = n
	}
	p.hasLimit = true
	return q.with(p)
}

// Count runs SELECT count(*) over the query.
func (q *Queryable[T]) Count(ctx context.Context) (int64, error) {
	inner, args, err := q.SQL()
	if err != nil {
		return 0, err
	}
	stmt := "SELECT count(*) FROM (" + inner + ") AS counted"
	q.logger.Debug().Str("sql", InterpolateQuery(stmt, args)).Msg("Counting rows")

	var n int64
	if err := q.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.src.table, err)
	}
	return n, nil
}

// List runs the query and decodes every row.
func (q *Queryable[T]) List(ctx context.Context) ([]T, error) {
	stmt, args, err := q.SQL(q.src.columns...)
	if err != nil {
		return nil, err
	}
	q.logger.Debug().Str("sql", InterpolateQuery(stmt, args)).Msg("Listing rows")

	rows, err := q.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.src.table, err)
	}
	defer func() { _ = rows.Close() }()

	var items []T
	for rows.Next() {
		item, err := q.src.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.src.table, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.src.table, err)
	}
	return items, nil
}

func scanMap(rows *sql.Rows) (map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	row := make(map[string]any, len(cols))
	for i, col := range cols {
		row[col] = values[i]
	}
	return row, nil
}
