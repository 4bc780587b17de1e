package query_test

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/listquery/pkg/query"
	"github.com/coral-mesh/listquery/pkg/query/memory"
)

type record struct {
	ID     int
	Name   string
	Status string
	Score  int
}

// numbered returns n records with IDs 1..n. Every third record is "active".
func numbered(n int) []record {
	out := make([]record, n)
	for i := range out {
		status := "inactive"
		if (i+1)%3 == 0 {
			status = "active"
		}
		out[i] = record{ID: i + 1, Name: fmt.Sprintf("user-%03d", i+1), Status: status, Score: (i * 7) % 100}
	}
	return out
}

func recordIDs(t *testing.T, q query.Queryable[record]) []int {
	t.Helper()
	items, err := q.List(context.Background())
	require.NoError(t, err)
	out := make([]int, len(items))
	for i, r := range items {
		out[i] = r.ID
	}
	return out
}

func TestApply_EmptySettingsIsIdentity(t *testing.T) {
	records := numbered(10)
	p := query.NewPipeline()

	for _, settings := range []*query.Settings{nil, {}} {
		items, count, err := query.Apply(context.Background(), p, memory.New(records), settings)
		require.NoError(t, err)
		assert.Equal(t, int64(10), count)
		assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, recordIDs(t, items))
	}
}

func TestApply_CountIgnoresPaging(t *testing.T) {
	records := numbered(100)
	for i := range records {
		records[i].Score = 0
		if i < 30 {
			records[i].Score = 1
		}
	}

	settings := &query.Settings{
		Filters: []query.FilterSpec{{Operation: query.OpEq, Property: "score", Value: int64(1)}},
		Skip:    query.Int(10),
		Top:     query.Int(5),
	}

	items, count, err := query.Apply(context.Background(), query.NewPipeline(), memory.New(records), settings)
	require.NoError(t, err)
	assert.Equal(t, int64(30), count)
	assert.Equal(t, []int{11, 12, 13, 14, 15}, recordIDs(t, items))
}

func TestApply_SkipWithoutTopIsIgnored(t *testing.T) {
	settings := &query.Settings{Skip: query.Int(3)}

	items, count, err := query.Apply(context.Background(), query.NewPipeline(), memory.New(numbered(5)), settings)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, recordIDs(t, items))
}

func TestApply_TopOnly(t *testing.T) {
	items, _, err := query.Apply(context.Background(), query.NewPipeline(), memory.New(numbered(5)), &query.Settings{Top: query.Int(2)})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, recordIDs(t, items))
}

func TestApply_StatusScenario(t *testing.T) {
	records := numbered(50)

	params := url.Values{}
	params.Set("$filter", `[{"operation":"Eq","property":"status","value":"ACTIVE","transform":"Lower"}]`)
	params.Set("$orderby", "id desc")
	params.Set("$skip", "2")
	params.Set("$top", "3")

	settings, err := query.SettingsFromParams(query.NewParams(params))
	require.NoError(t, err)

	items, count, err := query.Apply(context.Background(), query.NewPipeline(), memory.New(records), settings)
	require.NoError(t, err)

	// 16 active records: 3, 6, ..., 48.
	assert.Equal(t, int64(16), count)
	assert.Equal(t, []int{42, 39, 36}, recordIDs(t, items))
}

func TestApply_FilterWithoutOperationIsEquality(t *testing.T) {
	settings, err := query.ParseQueryString(`$filter=[{"property":"status","value":"active"}]`)
	require.NoError(t, err)

	items, count, err := query.Apply(context.Background(), query.NewPipeline(), memory.New(numbered(9)), settings)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, []int{3, 6, 9}, recordIDs(t, items))
}

func TestApply_MatchesManualChain(t *testing.T) {
	records := numbered(40)
	settings := &query.Settings{
		Filters: []query.FilterSpec{
			{Operation: query.OpGe, Property: "score", Value: int64(20)},
			{Operation: query.OpStartsWith, Property: "name", Value: "user-0"},
		},
		OrderBy: &query.OrderBy{Property: "score"},
		Skip:    query.Int(1),
		Top:     query.Int(4),
	}

	got, count, err := query.Apply(context.Background(), query.NewPipeline(), memory.New(records), settings)
	require.NoError(t, err)

	filtered := memory.New(records).
		Where(query.Predicate{Field: "Score", Op: query.OpGe, Value: int64(20)}).
		Where(query.Predicate{Field: "Name", Op: query.OpStartsWith, Value: "user-0"})
	want := filtered.OrderBy("Score", false).Skip(1).Take(4)

	wantCount, err := filtered.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wantCount, count)
	assert.Equal(t, recordIDs(t, want), recordIDs(t, got))
}

func TestApply_UnknownOperationSkipped(t *testing.T) {
	settings := &query.Settings{
		Filters: []query.FilterSpec{
			{Operation: query.OpUnknown, Property: "status", Value: "x"},
			{Operation: query.OpEq, Property: "status", Value: "active"},
		},
	}

	_, count, err := query.Apply(context.Background(), query.NewPipeline(), memory.New(numbered(9)), settings)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestApply_RawFilters(t *testing.T) {
	records := numbered(20)

	settings := &query.Settings{
		Filters: []query.FilterSpec{
			{Operation: query.OpEq, Property: "status", Value: "active"},
			{Operation: query.OpSql, Sql: "ID > @0", Value: int64(10)},
		},
	}
	items, count, err := query.Apply(context.Background(), query.NewPipeline(), memory.New(records), settings)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, []int{12, 15, 18}, recordIDs(t, items))
}

func TestApply_UnionOnlyAdds(t *testing.T) {
	records := numbered(20)

	settings := &query.Settings{
		Filters: []query.FilterSpec{
			{Operation: query.OpEq, Property: "status", Value: "active"},
			{Operation: query.OpSqlUnion, Sql: "ID == @0 || ID == @1", Value: []any{int64(1), int64(3)}},
		},
	}
	items, count, err := query.Apply(context.Background(), query.NewPipeline(), memory.New(records), settings)
	require.NoError(t, err)

	// 3 was already active; 1 is added after the active records.
	assert.Equal(t, int64(7), count)
	assert.Equal(t, []int{3, 6, 9, 12, 15, 18, 1}, recordIDs(t, items))
}

func TestApply_UnionAgainstOriginalSource(t *testing.T) {
	records := numbered(20)

	settings := &query.Settings{
		Filters: []query.FilterSpec{
			{Operation: query.OpEq, Property: "status", Value: "active"},
			{Operation: query.OpSqlUnion, Sql: `Status == "inactive" && ID <= @0`, Value: int64(2)},
			{Operation: query.OpLe, Property: "id", Value: int64(6)},
		},
	}
	items, _, err := query.Apply(context.Background(), query.NewPipeline(), memory.New(records), settings)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 6, 1, 2}, recordIDs(t, items))
}

func TestApply_WhereClause(t *testing.T) {
	settings, err := query.ParseQueryString("$where=Score%20%3E%3D%20int(@0)%20%26%26%20Status%20%3D%3D%20@1&$params=50|active&$orderby=id")
	require.NoError(t, err)

	items, count, err := query.Apply(context.Background(), query.NewPipeline(), memory.New(numbered(30)), settings)
	require.NoError(t, err)

	var want []int
	for _, r := range numbered(30) {
		if r.Score >= 50 && r.Status == "active" {
			want = append(want, r.ID)
		}
	}
	assert.Equal(t, int64(len(want)), count)
	assert.Equal(t, want, recordIDs(t, items))
}

func TestApply_PropagatesAdapterErrors(t *testing.T) {
	settings := &query.Settings{
		Filters: []query.FilterSpec{{Operation: query.OpEq, Property: "missing", Value: 1}},
	}
	_, _, err := query.Apply(context.Background(), query.NewPipeline(), memory.New(numbered(3)), settings)
	assert.ErrorIs(t, err, query.ErrUnknownField)
}

func TestApply_VerbatimMapper(t *testing.T) {
	rows := []map[string]any{
		{"status": "a", "n": int64(2)},
		{"status": "b", "n": int64(1)},
	}
	p := query.NewPipeline(
		query.WithCompiler(query.NewCompiler(query.WithPropertyMapper(query.Verbatim))),
		query.WithLogger(zerolog.Nop()),
	)
	items, count, err := query.Apply(context.Background(), p, memory.New(rows), &query.Settings{
		OrderBy: &query.OrderBy{Property: "n"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	list, err := items.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "b", list[0]["status"])
}

func TestPageResult(t *testing.T) {
	next, err := url.Parse("/v1/datasets/users?$skip=5&$top=5")
	require.NoError(t, err)

	result, err := query.PageResult(context.Background(), query.NewPipeline(), memory.New(numbered(12)),
		&query.Settings{Top: query.Int(5), Skip: query.Int(0)}, next)
	require.NoError(t, err)
	assert.Equal(t, int64(12), result.Count)
	assert.Same(t, next, result.NextPageLink)

	page, err := result.Materialize(context.Background())
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, "/v1/datasets/users?$skip=5&$top=5", page.NextPageLink)
}

func TestPageResult_EmptyItemsNotNil(t *testing.T) {
	result, err := query.PageResult(context.Background(), query.NewPipeline(), memory.New([]record{}), nil, nil)
	require.NoError(t, err)

	page, err := result.Materialize(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.NextPageLink)
}

func TestApplyQueryString(t *testing.T) {
	src := memory.New(numbered(6))

	same, err := query.ApplyQueryString(context.Background(), query.NewPipeline(), src, "")
	require.NoError(t, err)
	assert.Same(t, src, same)

	items, err := query.ApplyQueryString(context.Background(), query.NewPipeline(), src, "$orderby=id%20desc&$top=2")
	require.NoError(t, err)
	assert.Equal(t, []int{6, 5}, recordIDs(t, items))

	_, err = query.ApplyQueryString(context.Background(), query.NewPipeline(), src, "$top=abc")
	assert.ErrorIs(t, err, query.ErrInvalidParameter)
}

func TestWithRequestFilters(t *testing.T) {
	params := query.NewParams(url.Values{
		"$filter": {`[{"operation":"Eq","property":"status","value":"active"}]`},
	})

	fixed := &query.Settings{Top: query.Int(2)}
	merged, err := query.WithRequestFilters(fixed, params)
	require.NoError(t, err)
	require.Len(t, merged.Filters, 1)
	assert.Empty(t, fixed.Filters)
	assert.Equal(t, 2, *merged.Top)

	own := &query.Settings{Filters: []query.FilterSpec{{Operation: query.OpNe, Property: "x"}}}
	kept, err := query.WithRequestFilters(own, params)
	require.NoError(t, err)
	assert.Same(t, own, kept)
}

func TestPlan_IsLazyAndMatchesApply(t *testing.T) {
	records := numbered(100)
	settings := &query.Settings{
		Filters: []query.FilterSpec{{Property: "status", Operation: query.OpEq, Value: "active"}},
		OrderBy: &query.OrderBy{Property: "id", Descending: true},
		Skip:    query.Int(3),
		Top:     query.Int(4),
	}
	p := query.NewPipeline()

	filtered, items := query.Plan(p, memory.New(records), settings)
	count, err := filtered.Count(context.Background())
	require.NoError(t, err)

	applied, appliedCount, err := query.Apply(context.Background(), p, memory.New(records), settings)
	require.NoError(t, err)

	assert.Equal(t, appliedCount, count)
	assert.Equal(t, recordIDs(t, applied), recordIDs(t, items))
	assert.Equal(t, []int{90, 87, 84, 81}, recordIDs(t, items))
}
