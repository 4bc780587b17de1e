package helpers

import (
	"net/url"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/listquery/pkg/query"
)

func parseSettingsFlags(t *testing.T, args ...string) *SettingsFlags {
	t.Helper()
	var f SettingsFlags
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	AddSettingsFlags(cmd, &f)
	require.NoError(t, cmd.ParseFlags(args))
	return &f
}

func TestSettingsFlags_Defaults(t *testing.T) {
	f := parseSettingsFlags(t)

	values, err := f.Values()
	require.NoError(t, err)
	assert.Empty(t, values)

	s, err := f.Settings()
	require.NoError(t, err)
	assert.Nil(t, s.Top)
	assert.Nil(t, s.Skip)
	assert.Empty(t, s.Filters)
}

func TestSettingsFlags_Settings(t *testing.T) {
	f := parseSettingsFlags(t,
		"--filter", `[{"operation":"Contains","property":"name","value":"ad","transform":"lower"}]`,
		"--orderby", "age desc",
		"--skip", "10",
		"--top", "5",
	)

	s, err := f.Settings()
	require.NoError(t, err)
	require.Len(t, s.Filters, 1)
	assert.Equal(t, query.OpContains, s.Filters[0].Operation)
	assert.Equal(t, query.TransformLower, s.Filters[0].Transform)
	assert.Equal(t, &query.OrderBy{Property: "age", Descending: true}, s.OrderBy)
	assert.Equal(t, 10, *s.Skip)
	assert.Equal(t, 5, *s.Top)
}

func TestSettingsFlags_QueryOverride(t *testing.T) {
	f := parseSettingsFlags(t, "--query", "?$top=3&skip=9&$orderby=name", "--skip", "1")

	values, err := f.Values()
	require.NoError(t, err)
	assert.Equal(t, url.Values{"$top": {"3"}, "$skip": {"1"}, "$orderby": {"name"}}, values)
}

func TestSettingsFlags_Where(t *testing.T) {
	f := parseSettingsFlags(t, "--where", "Age > @0", "--params", "30|x", "--page", "2", "--page-size", "4")

	s, err := f.Settings()
	require.NoError(t, err)
	assert.Equal(t, "Age > @0", s.Where)
	assert.Equal(t, []any{"30", "x"}, s.WhereParams)
	assert.Equal(t, 4, *s.Top)
	assert.Equal(t, 4, *s.Skip)
}

func TestSettingsFlags_Invalid(t *testing.T) {
	_, err := parseSettingsFlags(t, "--filter", "{").Settings()
	assert.ErrorIs(t, err, query.ErrMalformedFilter)

	_, err = parseSettingsFlags(t, "--query", "%zz").Settings()
	assert.ErrorIs(t, err, query.ErrInvalidParameter)
}

func TestValidateFormat(t *testing.T) {
	assert.NoError(t, ValidateFormat("csv", RecordFormats))
	err := ValidateFormat("xml", RecordFormats)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table, json, csv")
}

func TestAddFormatFlag(t *testing.T) {
	var format string
	cmd := &cobra.Command{Use: "test"}
	AddFormatFlag(cmd, &format, FormatTable, RecordFormats)

	require.NoError(t, cmd.ParseFlags([]string{"-o", "csv"}))
	assert.Equal(t, "csv", format)
	assert.NoError(t, ValidateFormat(format, RecordFormats))

	err := ValidateFormat("xml", RecordFormats)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported format "xml"`)

	// Redefining the flag is a programming error.
	assert.Panics(t, func() { AddFormatFlag(cmd, &format, FormatTable, RecordFormats) })
}
