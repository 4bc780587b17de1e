package duckdb

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/coral-mesh/listquery/pkg/query"
)

// QuoteIdent quotes name as a DuckDB identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*){0,2}$`)

// IsIdentifier reports whether name is a plain, optionally schema-qualified,
// table name that can be spliced into SQL unquoted.
func IsIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// transformColumn wraps column with the SQL function for t. Non-string columns
// are cast to VARCHAR first so transforms behave like string operations.
func transformColumn(column string, t query.Transform) string {
	switch t {
	case query.TransformLower:
		return "lower(CAST(" + column + " AS VARCHAR))"
	case query.TransformUpper:
		return "upper(CAST(" + column + " AS VARCHAR))"
	case query.TransformTrim:
		return "trim(CAST(" + column + " AS VARCHAR))"
	default:
		return column
	}
}

// applyPredicate adds the SQL form of p to b. column is the already resolved,
// quoted column expression.
func applyPredicate(b *Builder, column string, p query.Predicate) error {
	col := transformColumn(column, p.Transform)

	switch p.Op {
	case query.OpEq:
		b.Eq(col, p.Value)
	case query.OpNe:
		b.Ne(col, p.Value)
	case query.OpGt:
		b.Gt(col, p.Value)
	case query.OpGe:
		b.Gte(col, p.Value)
	case query.OpLt:
		b.Lt(col, p.Value)
	case query.OpLe:
		b.Lte(col, p.Value)
	case query.OpContains, query.OpStartsWith, query.OpEndsWith:
		if p.Value == nil {
			b.Where("FALSE")
			return nil
		}
		fn := map[query.Operation]string{
			query.OpContains:   "contains",
			query.OpStartsWith: "prefix",
			query.OpEndsWith:   "suffix",
		}[p.Op]
		b.Where(fmt.Sprintf("%s(%s, ?)", fn, col), fmt.Sprint(p.Value))
	default:
		return fmt.Errorf("%w: operation %s has no SQL form", query.ErrInvalidExpression, p.Op)
	}
	return nil
}

var placeholderPattern = regexp.MustCompile(`@(\d+)`)

// BindPlaceholders rewrites positional @N placeholders to "?" and returns the
// arguments in the order they now appear. A placeholder may be used more than
// once. Placeholders inside single-quoted string literals are left alone.
func BindPlaceholders(expr string, args []any) (string, []any, error) {
	var (
		out   strings.Builder
		bound []any
	)

	for _, segment := range splitLiterals(expr) {
		if segment.literal {
			out.WriteString(segment.text)
			continue
		}
		var bindErr error
		rewritten := placeholderPattern.ReplaceAllStringFunc(segment.text, func(m string) string {
			n, err := strconv.Atoi(m[1:])
			if err != nil || n >= len(args) {
				if bindErr == nil {
					bindErr = fmt.Errorf("%w: placeholder %s has no argument (%d given)", query.ErrInvalidExpression, m, len(args))
				}
				return m
			}
			bound = append(bound, args[n])
			return "?"
		})
		if bindErr != nil {
			return "", nil, bindErr
		}
		out.WriteString(rewritten)
	}

	return out.String(), bound, nil
}

type exprSegment struct {
	text    string
	literal bool
}

// splitLiterals separates single-quoted string literals from the rest of expr.
// Doubled quotes inside a literal are part of the literal.
func splitLiterals(expr string) []exprSegment {
	var (
		segments []exprSegment
		start    int
		inQuote  bool
	)
	for i := 0; i < len(expr); i++ {
		if expr[i] != '\'' {
			continue
		}
		if inQuote {
			if i+1 < len(expr) && expr[i+1] == '\'' {
				i++
				continue
			}
			segments = append(segments, exprSegment{text: expr[start : i+1], literal: true})
			start = i + 1
			inQuote = false
			continue
		}
		if i > start {
			segments = append(segments, exprSegment{text: expr[start:i]})
		}
		start = i
		inQuote = true
	}
	if start < len(expr) {
		segments = append(segments, exprSegment{text: expr[start:], literal: inQuote})
	}
	return segments
}
