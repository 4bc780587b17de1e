package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/coral-mesh/listquery/internal/retry"
)

// Execer is an interface that matches both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Table represents a generic database table wrapper for type T.
type Table[T any] struct {
	db        Execer
	tableName string
	columns   []string
	pkColumns []string
	fieldMap  map[string]int    // Map column name to field index
	goNames   map[string]string // Map lower-cased Go field name to column name
}

// writeRetry is used for statements that may hit DuckDB write-write conflicts.
var writeRetry = retry.Config{
	MaxRetries:     10,
	InitialBackoff: 10 * time.Millisecond,
	MaxBackoff:     500 * time.Millisecond,
	Jitter:         0.1,
}

// NewTable creates a new Table[T] instance.
// T must be a struct with `duckdb` tags.
func NewTable[T any](db Execer, tableName string) *Table[T] {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic("Table generic type T must be a struct")
	}

	var columns []string
	var pkColumns []string
	fieldMap := make(map[string]int)
	goNames := make(map[string]string)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("duckdb")
		if tag == "" || tag == "-" {
			continue
		}

		parts := strings.Split(tag, ",")
		colName := strings.TrimSpace(parts[0])
		columns = append(columns, colName)
		fieldMap[colName] = i
		goNames[strings.ToLower(field.Name)] = colName

		for _, p := range parts[1:] {
			if strings.TrimSpace(p) == "pk" {
				pkColumns = append(pkColumns, colName)
			}
		}
	}

	return &Table[T]{
		db:        db,
		tableName: tableName,
		columns:   columns,
		pkColumns: pkColumns,
		fieldMap:  fieldMap,
		goNames:   goNames,
	}
}

// Name returns the table name.
func (t *Table[T]) Name() string {
	return t.tableName
}

// Column resolves a property name to a column, matching column names first
// and then Go field names, both case-insensitively.
func (t *Table[T]) Column(property string) (string, bool) {
	for _, col := range t.columns {
		if strings.EqualFold(col, property) {
			return col, true
		}
	}
	col, ok := t.goNames[strings.ToLower(property)]
	return col, ok
}

// Insert inserts a new item into the database.
// It generates a plain INSERT statement without ON CONFLICT handling.
func (t *Table[T]) Insert(ctx context.Context, item *T) error {
	placeholders := make([]string, len(t.columns))
	values := make([]any, len(t.columns))

	val := reflect.ValueOf(item)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	for i, col := range t.columns {
		placeholders[i] = "?"
		values[i] = val.Field(t.fieldMap[col]).Interface()
	}

	// #nosec G201 - table and column names are not user input, they come from struct tags
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.tableName,
		strings.Join(t.columns, ", "),
		strings.Join(placeholders, ", "),
	)

	return retry.Do(ctx, writeRetry, func() error {
		_, err := t.db.ExecContext(ctx, query, values...)
		return err
	}, isTransactionConflict)
}

// Get retrieves a single item by its value in the first PK column.
// Returns sql.ErrNoRows when no row matches.
func (t *Table[T]) Get(ctx context.Context, id any) (*T, error) {
	if len(t.pkColumns) == 0 {
		return nil, errors.New("no primary key defined for table")
	}
	pk := t.pkColumns[0]

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		strings.Join(t.columns, ", "),
		t.tableName,
		pk,
	)

	row := t.db.QueryRowContext(ctx, query, id)
	return t.scanRow(row)
}

// Query returns a lazy, composable query over the table. Properties are
// resolved with Column; unknown properties fail with query.ErrUnknownField
// when the query runs.
func (t *Table[T]) Query() *Queryable[T] {
	columns := make([]string, len(t.columns))
	for i, col := range t.columns {
		columns[i] = QuoteIdent(col)
	}
	tiebreak := make([]string, len(t.pkColumns))
	for i, pk := range t.pkColumns {
		tiebreak[i] = QuoteIdent(pk)
	}

	return newQueryable(t.db, &source[T]{
		table:    t.tableName,
		columns:  columns,
		tiebreak: tiebreak,
		resolve: func(property string) (string, bool) {
			col, ok := t.Column(property)
			if !ok {
				return "", false
			}
			return QuoteIdent(col), true
		},
		scan: func(rows *sql.Rows) (T, error) {
			item, err := t.scanRows(rows)
			if err != nil {
				var zero T
				return zero, err
			}
			return *item, nil
		},
	})
}

// scanRow scans a single row into T.
func (t *Table[T]) scanRow(row *sql.Row) (*T, error) {
	var item T
	if err := row.Scan(t.destinations(&item)...); err != nil {
		return nil, err
	}
	return &item, nil
}

// scanRows scans the current row from rows into T.
func (t *Table[T]) scanRows(rows *sql.Rows) (*T, error) {
	var item T
	if err := rows.Scan(t.destinations(&item)...); err != nil {
		return nil, err
	}
	return &item, nil
}

func (t *Table[T]) destinations(item *T) []any {
	val := reflect.ValueOf(item).Elem()
	dest := make([]any, len(t.columns))
	for i, col := range t.columns {
		dest[i] = val.Field(t.fieldMap[col]).Addr().Interface()
	}
	return dest
}

func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	// Detect various DuckDB transaction conflict patterns
	return strings.Contains(msg, "Conflict on update") ||
		strings.Contains(msg, "conflict") ||
		strings.Contains(msg, "serialization") ||
		strings.Contains(msg, "TransactionContext Error")
}
