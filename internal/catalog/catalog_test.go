package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/listquery/internal/config"
	"github.com/coral-mesh/listquery/internal/testutil"
	"github.com/coral-mesh/listquery/pkg/query"
)

func people() []Record {
	return []Record{
		{"Id": 1, "Name": "Ada", "Age": 36, "Team": "core"},
		{"Id": 2, "Name": "Linus", "Age": 28, "Team": "kernel"},
		{"Id": 3, "Name": "Grace", "Age": 45, "Team": "core"},
		{"Id": 4, "Name": "Ken", "Age": 52, "Team": "unix"},
	}
}

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()

	jsonPath := testutil.WriteJSONFile(t, "people.json", people())
	dbPath := testutil.NewTestDuckDBFile(t,
		`CREATE TABLE people ("Id" INTEGER, "Name" VARCHAR, "Age" INTEGER, "Team" VARCHAR)`,
		`INSERT INTO people VALUES (1, 'Ada', 36, 'core'), (2, 'Linus', 28, 'kernel'), (3, 'Grace', 45, 'core'), (4, 'Ken', 52, 'unix')`,
	)

	c, err := Open(testutil.NewTestContext(t), []config.DatasetConfig{
		{Name: "people-json", Source: "json", Path: jsonPath},
		{Name: "people-db", Source: "duckdb", Path: dbPath, Table: "people"},
	}, nil, testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestCatalog_Names(t *testing.T) {
	c := openTestCatalog(t)
	assert.Equal(t, []string{"people-db", "people-json"}, c.Names())
}

func TestCatalog_List(t *testing.T) {
	c := openTestCatalog(t)
	ctx := testutil.NewTestContext(t)

	settings := &query.Settings{
		Filters: []query.FilterSpec{{Property: "team", Operation: query.OpEq, Value: "core"}},
		OrderBy: &query.OrderBy{Property: "age", Descending: true},
		Top:     query.Int(1),
	}

	for _, name := range c.Names() {
		t.Run(name, func(t *testing.T) {
			page, err := c.List(ctx, name, settings)
			require.NoError(t, err)

			assert.Equal(t, int64(2), page.Count)
			require.Len(t, page.Items, 1)
			assert.Equal(t, "Grace", page.Items[0]["Name"])
			assert.Empty(t, page.NextPageLink)
		})
	}
}

func TestCatalog_List_NoSettings(t *testing.T) {
	c := openTestCatalog(t)

	page, err := c.List(testutil.NewTestContext(t), "people-json", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Count)
	assert.Len(t, page.Items, 4)
}

func TestCatalog_List_NotFound(t *testing.T) {
	c := openTestCatalog(t)

	_, err := c.List(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestCatalog_List_AdapterError(t *testing.T) {
	c := openTestCatalog(t)

	settings := &query.Settings{Where: "this is not an expression ("}
	_, err := c.List(testutil.NewTestContext(t), "people-json", settings)
	assert.ErrorIs(t, err, query.ErrInvalidExpression)
}

func TestOpen_Errors(t *testing.T) {
	ctx := testutil.NewTestContext(t)
	logger := testutil.NewTestLogger(t)
	dbPath := testutil.NewTestDuckDBFile(t, `CREATE TABLE t (x INTEGER)`)

	tests := []struct {
		name     string
		datasets []config.DatasetConfig
	}{
		{"missing json", []config.DatasetConfig{{Name: "a", Source: "json", Path: filepath.Join(t.TempDir(), "none.json")}}},
		{"missing table", []config.DatasetConfig{{Name: "a", Source: "duckdb", Path: dbPath, Table: "missing"}}},
		{"bad table name", []config.DatasetConfig{{Name: "a", Source: "duckdb", Path: dbPath, Table: "t; DROP TABLE t"}}},
		{"unknown source", []config.DatasetConfig{{Name: "a", Source: "csv", Path: "a.csv"}}},
		{"duplicate", []config.DatasetConfig{
			{Name: "a", Source: "duckdb", Path: dbPath, Table: "t"},
			{Name: "a", Source: "duckdb", Path: dbPath, Table: "t"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(ctx, tt.datasets, nil, logger)
			assert.Error(t, err)
		})
	}
}

func TestLoadRecords(t *testing.T) {
	dir := t.TempDir()

	lines := filepath.Join(dir, "events.jsonl")
	require.NoError(t, os.WriteFile(lines, []byte("{\"a\":1}\n\n{\"a\":2}\n"), 0o600))
	records, err := LoadRecords(lines)
	require.NoError(t, err)
	assert.Equal(t, []Record{{"a": float64(1)}, {"a": float64(2)}}, records)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("null"), 0o600))
	records, err = LoadRecords(empty)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	bad := filepath.Join(dir, "bad.ndjson")
	require.NoError(t, os.WriteFile(bad, []byte("{\"a\":1}\n{oops\n"), 0o600))
	_, err = LoadRecords(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	obj := filepath.Join(dir, "object.json")
	require.NoError(t, os.WriteFile(obj, []byte(`{"a":1}`), 0o600))
	_, err = LoadRecords(obj)
	assert.Error(t, err)
}
