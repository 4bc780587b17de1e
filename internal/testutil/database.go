package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/coral-mesh/listquery/internal/duckdb"
)

// WriteJSONFile encodes v as JSON into a file named name in a temporary
// directory and returns its path.
func WriteJSONFile(t *testing.T, name string, v any) string {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to encode %s: %v", name, err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// NewTestDuckDBFile creates a DuckDB database file, runs the given statements
// and closes it, so code under test can open the file itself.
func NewTestDuckDBFile(t *testing.T, statements ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dataset.duckdb")
	db, err := duckdb.OpenDB(path)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	}()

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to execute %q: %v", stmt, err)
		}
	}
	return path
}
