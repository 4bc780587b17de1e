package querylog

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/listquery/internal/testutil"
	"github.com/coral-mesh/listquery/pkg/query"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.duckdb"), testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RecordGet(t *testing.T) {
	s := openStore(t)
	ctx := testutil.NewTestContext(t)

	e := &Entry{Dataset: "users", RawQuery: "$top=5", Count: 12, Returned: 5, DurationMs: 1.5}
	require.NoError(t, s.Record(ctx, e))
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "users", got.Dataset)
	assert.Equal(t, "$top=5", got.RawQuery)
	assert.Equal(t, int64(12), got.Count)
	assert.Equal(t, 5, got.Returned)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStore_List(t *testing.T) {
	s := openStore(t)
	ctx := testutil.NewTestContext(t)
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	for i, ds := range []string{"users", "orders", "users", "users"} {
		require.NoError(t, s.Record(ctx, &Entry{
			ID:        string(rune('a' + i)),
			Dataset:   ds,
			Count:     int64(i * 10),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, err := s.List(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Count)
	require.Len(t, page.Items, 4)
	assert.Equal(t, "d", page.Items[0].ID, "newest first")

	settings := &query.Settings{
		Filters: []query.FilterSpec{
			{Property: "dataset", Operation: query.OpEq, Value: "users"},
			{Property: "count", Operation: query.OpGe, Value: 20},
		},
		OrderBy: &query.OrderBy{Property: "createdAt"},
		Top:     query.Int(1),
	}
	page, err = s.List(ctx, settings)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Count)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "c", page.Items[0].ID)
}

func TestStore_List_UnknownField(t *testing.T) {
	s := openStore(t)

	_, err := s.List(testutil.NewTestContext(t), &query.Settings{
		Filters: []query.FilterSpec{{Property: "nope", Operation: query.OpEq, Value: 1}},
	})
	assert.ErrorIs(t, err, query.ErrUnknownField)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.duckdb")
	ctx := testutil.NewTestContext(t)

	s, err := Open(path, testutil.NewTestLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, &Entry{ID: "x", Dataset: "users"}))
	require.NoError(t, s.Close())

	s, err = Open(path, testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := s.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "users", got.Dataset)
}
