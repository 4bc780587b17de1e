// Package duckdb runs list queries against DuckDB.
//
// # Queryable
//
// Queryable implements query.Queryable by composing SQL. Typed tables use
// `duckdb` struct tags; arbitrary tables, views and table functions can be
// queried as maps:
//
//	type User struct {
//	    ID     int64  `duckdb:"id,pk"`
//	    Name   string `duckdb:"name"`
//	    Status string `duckdb:"status"`
//	}
//
//	users := duckdb.NewTable[User](db, "users").Query()
//	rows := duckdb.Rows(db, "read_json_auto('users.json')")
//
// Compiled predicates become parameterized conditions. Raw expressions are
// DuckDB SQL with @0, @1 placeholders:
//
//	users.WhereRaw("status = @0 AND age > @1", "active", 30)
//
// # Query Builder
//
// The query builder provides a fluent API for constructing SELECT queries:
//
//	sql, args, err := duckdb.NewQueryBuilder("users").
//	    Select("id", "name").
//	    Eq("status", "active").
//	    OrderBy("-created_at").
//	    Limit(100).
//	    Build()
//
// The builder focuses on SQL generation only and does not execute queries.
package duckdb
