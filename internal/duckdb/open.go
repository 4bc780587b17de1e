package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net/url"
	"strings"

	duckdbDriver "github.com/marcboeker/go-duckdb"
)

// bootQueries run on every new pooled connection. Failures are ignored: the
// json extension may be unavailable offline, in which case read_json_auto
// sources fail at query time instead.
var bootQueries = []string{
	"LOAD json",
	"SET preserve_insertion_order = true",
}

// OpenDB opens a DuckDB database with autoloading of known extensions enabled,
// so datasets backed by read_json_auto or read_parquet work without an
// explicit INSTALL. An empty dsn or ":memory:" opens an in-memory database.
func OpenDB(dsn string) (*sql.DB, error) {
	dsn = injectAutoloadConfig(dsn)
	if dsn == ":memory:" {
		dsn = ""
	}

	connector, err := duckdbDriver.NewConnector(dsn, func(execer driver.ExecerContext) error {
		ctx := context.Background()
		for _, query := range bootQueries {
			_, _ = execer.ExecContext(ctx, query, nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return sql.OpenDB(connector), nil
}

// injectAutoloadConfig adds autoinstall_known_extensions and
// autoload_known_extensions to the DSN query parameters if not already set.
func injectAutoloadConfig(dsn string) string {
	// Handle empty DSN (in-memory database).
	if dsn == "" || dsn == ":memory:" {
		return dsn
	}

	path, query, _ := strings.Cut(dsn, "?")

	params, err := url.ParseQuery(query)
	if err != nil {
		// If we can't parse, return original DSN unchanged.
		return dsn
	}

	if !params.Has("autoinstall_known_extensions") {
		params.Set("autoinstall_known_extensions", "true")
	}
	if !params.Has("autoload_known_extensions") {
		params.Set("autoload_known_extensions", "true")
	}

	return path + "?" + params.Encode()
}
