package duckdb

import (
	"fmt"
	"strings"
	"time"
)

// InterpolateQuery returns a formatted query for logging.
// The output is valid SQL that can be copy-pasted into DuckDB. Question marks
// inside string literals are not treated as placeholders.
func InterpolateQuery(query string, args []any) string {
	var (
		out     strings.Builder
		next    int
		inQuote bool
	)
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			out.WriteByte(c)
		case c == '?' && !inQuote && next < len(args):
			out.WriteString(sqlLiteral(args[next]))
			next++
		case c == '\t' || c == '\n':
			out.WriteByte(' ')
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

func sqlLiteral(arg any) string {
	switch v := arg.(type) {
	case string:
		// Wrap strings in single quotes, escape internal quotes.
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%v", v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case time.Time:
		// Format timestamps without monotonic clock for valid SQL.
		return "'" + v.Format(time.RFC3339Nano) + "'"
	case nil:
		return "NULL"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprintf("%v", v), "'", "''") + "'"
	}
}
