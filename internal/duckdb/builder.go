package duckdb

import (
	"errors"
	"fmt"
	"strings"
)

// Builder constructs SELECT queries with a fluent API.
type Builder struct {
	table    string
	fromSQL  string
	fromArgs []any
	columns  []string
	where    []whereClause
	orderBy  []orderClause
	limit    int
	hasLimit bool
	offset   int
}

// whereClause represents a WHERE condition.
type whereClause struct {
	expr string
	args []any
}

// orderClause represents an ORDER BY clause.
type orderClause struct {
	column string
	desc   bool
}

// NewQueryBuilder creates a new query builder for the specified table.
func NewQueryBuilder(table string) *Builder {
	return &Builder{table: table}
}

// NewSubqueryBuilder creates a query builder selecting from a subquery. The
// subquery is wrapped in parentheses and aliased as alias; its arguments are
// placed before any WHERE arguments.
func NewSubqueryBuilder(subquery, alias string, args ...any) *Builder {
	return &Builder{
		table:    alias,
		fromSQL:  subquery,
		fromArgs: args,
	}
}

// Select specifies the columns to retrieve.
// Supports column names, aggregates, and aliases.
// Examples:
//
//	Select("name", "age")
//	Select("count(*) AS total")
func (b *Builder) Select(columns ...string) *Builder {
	b.columns = append(b.columns, columns...)
	return b
}

// Where adds a custom WHERE clause with optional arguments.
// Multiple Where() calls are combined with AND; each expression is
// parenthesized.
// Examples:
//
//	Where("status = ?", "active")
//	Where("age BETWEEN ? AND ?", 18, 65)
//	Where("name IS NOT NULL")
func (b *Builder) Where(expr string, args ...any) *Builder {
	b.where = append(b.where, whereClause{
		expr: expr,
		args: args,
	})
	return b
}

// Eq adds an equality filter. A nil value generates IS NULL.
func (b *Builder) Eq(column string, value any) *Builder {
	if value == nil {
		return b.Where(column + " IS NULL")
	}
	return b.Where(fmt.Sprintf("%s = ?", column), value)
}

// Ne adds an inequality filter that treats NULL as a distinct value, so rows
// where column is NULL match any non-nil value.
func (b *Builder) Ne(column string, value any) *Builder {
	if value == nil {
		return b.Where(column + " IS NOT NULL")
	}
	return b.Where(fmt.Sprintf("%s IS DISTINCT FROM ?", column), value)
}

// Gte adds a >= comparison.
func (b *Builder) Gte(column string, value any) *Builder {
	return b.Where(fmt.Sprintf("%s >= ?", column), value)
}

// Gt adds a > comparison.
func (b *Builder) Gt(column string, value any) *Builder {
	return b.Where(fmt.Sprintf("%s > ?", column), value)
}

// Lte adds a <= comparison.
func (b *Builder) Lte(column string, value any) *Builder {
	return b.Where(fmt.Sprintf("%s <= ?", column), value)
}

// Lt adds a < comparison.
func (b *Builder) Lt(column string, value any) *Builder {
	return b.Where(fmt.Sprintf("%s < ?", column), value)
}

// OrderBy adds ORDER BY clauses.
// Use "-" prefix for DESC order.
// Examples:
//
//	OrderBy("created_at")          // ASC
//	OrderBy("-created_at")         // DESC
//	OrderBy("name", "-created_at") // name ASC, created_at DESC
func (b *Builder) OrderBy(columns ...string) *Builder {
	for _, col := range columns {
		desc := false
		if strings.HasPrefix(col, "-") {
			desc = true
			col = col[1:]
		}
		b.orderBy = append(b.orderBy, orderClause{
			column: col,
			desc:   desc,
		})
	}
	return b
}

// Limit sets the maximum number of rows to return. Limit(0) returns no rows.
func (b *Builder) Limit(n int) *Builder {
	b.limit = max(n, 0)
	b.hasLimit = true
	return b
}

// Offset skips the first n rows.
func (b *Builder) Offset(n int) *Builder {
	b.offset = max(n, 0)
	return b
}

// Build constructs the SQL query and returns the query string and arguments.
func (b *Builder) Build() (string, []any, error) {
	if b.table == "" {
		return "", nil, errors.New("table name is required")
	}

	var query strings.Builder
	args := make([]any, 0, len(b.fromArgs)+len(b.where)+2)

	// SELECT clause.
	query.WriteString("SELECT ")
	if len(b.columns) == 0 {
		query.WriteString("*")
	} else {
		query.WriteString(strings.Join(b.columns, ", "))
	}

	// FROM clause.
	query.WriteString(" FROM ")
	if b.fromSQL != "" {
		query.WriteString("(")
		query.WriteString(b.fromSQL)
		query.WriteString(") AS ")
		args = append(args, b.fromArgs...)
	}
	query.WriteString(b.table)

	// WHERE clause.
	if len(b.where) > 0 {
		query.WriteString(" WHERE ")
		exprs := make([]string, len(b.where))
		for i, w := range b.where {
			if len(b.where) > 1 {
				exprs[i] = "(" + w.expr + ")"
			} else {
				exprs[i] = w.expr
			}
			args = append(args, w.args...)
		}
		query.WriteString(strings.Join(exprs, " AND "))
	}

	// ORDER BY clause.
	if len(b.orderBy) > 0 {
		query.WriteString(" ORDER BY ")
		orderParts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			if o.desc {
				orderParts[i] = o.column + " DESC NULLS LAST"
			} else {
				orderParts[i] = o.column + " ASC NULLS FIRST"
			}
		}
		query.WriteString(strings.Join(orderParts, ", "))
	}

	// LIMIT / OFFSET clauses.
	if b.hasLimit {
		query.WriteString(" LIMIT ?")
		args = append(args, b.limit)
	}
	if b.offset > 0 {
		query.WriteString(" OFFSET ?")
		args = append(args, b.offset)
	}

	return query.String(), args, nil
}
