package duckdb

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEntry struct {
	ID        string    `duckdb:"id,pk"`
	Dataset   string    `duckdb:"dataset"`
	Count     int64     `duckdb:"match_count"`
	CreatedAt time.Time `duckdb:"created_at"`
	Ignored   string
}

func setupEntries(t *testing.T) *Table[testEntry] {
	t.Helper()

	db, err := OpenDB("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE entries (
		id VARCHAR PRIMARY KEY,
		dataset VARCHAR,
		match_count BIGINT,
		created_at TIMESTAMP
	)`)
	require.NoError(t, err)

	return NewTable[testEntry](db, "entries")
}

func TestNewTable_Panics(t *testing.T) {
	assert.Panics(t, func() { NewTable[map[string]any](nil, "x") })
}

func TestTable_Column(t *testing.T) {
	table := setupEntries(t)

	tests := []struct {
		property string
		want     string
		ok       bool
	}{
		{"dataset", "dataset", true},
		{"DATASET", "dataset", true},
		{"match_count", "match_count", true},
		{"Count", "match_count", true},
		{"createdAt", "created_at", true},
		{"ignored", "", false},
		{"nope", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.property, func(t *testing.T) {
			got, ok := table.Column(tt.property)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTable_InsertGet(t *testing.T) {
	table := setupEntries(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, table.Insert(ctx, &testEntry{ID: "a", Dataset: "users", Count: 3, CreatedAt: at}))

	got, err := table.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "users", got.Dataset)
	assert.Equal(t, int64(3), got.Count)
	assert.True(t, at.Equal(got.CreatedAt))

	_, err = table.Get(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	// Duplicate primary keys are not retried as conflicts.
	assert.Error(t, table.Insert(ctx, &testEntry{ID: "a", Dataset: "users"}))
}

func TestTable_Query(t *testing.T) {
	table := setupEntries(t)
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"c", "a", "b"} {
		require.NoError(t, table.Insert(ctx, &testEntry{
			ID:        id,
			Dataset:   "users",
			Count:     int64(i),
			CreatedAt: at.Add(time.Duration(i) * time.Minute),
		}))
	}

	items, err := table.Query().OrderBy("createdAt", true).Take(2).List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, "a", items[1].ID)
}
