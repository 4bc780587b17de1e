package helpers

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRow struct {
	Name  string    `header:"Name"`
	Value int       `header:"Value"`
	When  time.Time `header:"When"`
	Extra string
}

var when = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func TestNewFormatter(t *testing.T) {
	for _, format := range RecordFormats {
		f, err := NewFormatter(format)
		require.NoError(t, err)
		assert.NotNil(t, f)
	}

	_, err := NewFormatter(OutputFormat("yaml"))
	assert.Error(t, err)
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONFormatter{}).Format([]map[string]any{{"a": 1}}, &buf))

	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, float64(1), out[0]["a"])
}

func TestTableFormatter_Format(t *testing.T) {
	tests := []struct {
		name    string
		data    any
		want    []string
		wantErr bool
	}{
		{
			name: "structs",
			data: []testRow{{Name: "a", Value: 1, When: when, Extra: "hidden"}, {Name: "b", Value: 2}},
			want: []string{"Name", "Value", "When", "2025-01-02T03:04:05Z"},
		},
		{
			name: "struct pointers",
			data: []*testRow{{Name: "p", Value: 7}},
			want: []string{"Name", "p", "7"},
		},
		{
			name: "maps",
			data: []map[string]any{{"b": 2, "a": "x"}, {"c": nil, "a": map[string]any{"k": 1}}},
			want: []string{"a", "b", "c", `{"k":1}`},
		},
		{name: "empty", data: []testRow{}},
		{name: "not a slice", data: testRow{}, wantErr: true},
		{name: "unsupported element", data: []int{1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := (&TableFormatter{}).Format(tt.data, &buf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
			assert.NotContains(t, buf.String(), "hidden")
		})
	}
}

func TestCSVFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	data := []map[string]any{{"name": "a", "n": 1}, {"name": "b,c"}}
	require.NoError(t, (&CSVFormatter{}).Format(data, &buf))

	assert.Equal(t, "n,name\n1,a\n,\"b,c\"\n", buf.String())

	buf.Reset()
	require.NoError(t, (&CSVFormatter{}).Format([]testRow{}, &buf))
	assert.Empty(t, buf.String())
}
