package helpers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	lqerrors "github.com/coral-mesh/listquery/internal/errors"
	"github.com/coral-mesh/listquery/pkg/query"
)

// AddFormatFlag adds a standard --format/-o flag to a command.
func AddFormatFlag(cmd *cobra.Command, formatVar *string, defaultFormat OutputFormat, supportedFormats []OutputFormat) {
	formatNames := make([]string, len(supportedFormats))
	for i, f := range supportedFormats {
		formatNames[i] = string(f)
	}

	description := fmt.Sprintf("Output format (%s)", strings.Join(formatNames, ", "))
	cmd.Flags().StringVarP(formatVar, "format", "o", string(defaultFormat), description)

	lqerrors.Must(cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return formatNames, cobra.ShellCompDirectiveNoFileComp
	}), "register format completion")
}

// ValidateFormat checks if the format is in the supported list.
func ValidateFormat(format string, supported []OutputFormat) error {
	for _, s := range supported {
		if format == string(s) {
			return nil
		}
	}

	supportedNames := make([]string, len(supported))
	for i, s := range supported {
		supportedNames[i] = string(s)
	}

	return fmt.Errorf("unsupported format %q, must be one of: %s",
		format, strings.Join(supportedNames, ", "))
}

// SettingsFlags are the query-shaping flags shared by commands that list
// records. Each flag mirrors a request parameter of the HTTP API.
type SettingsFlags struct {
	Query    string
	Filter   string
	Where    string
	Params   string
	OrderBy  string
	Skip     int
	Top      int
	Page     int
	PageSize int
}

// AddSettingsFlags registers the query-shaping flags on cmd.
func AddSettingsFlags(cmd *cobra.Command, f *SettingsFlags) {
	flags := cmd.Flags()
	flags.StringVarP(&f.Query, "query", "q", "", `Raw query string, e.g. '$top=10&$orderby=name desc'`)
	flags.StringVarP(&f.Filter, "filter", "f", "", "JSON array of filters")
	flags.StringVarP(&f.Where, "where", "w", "", "Raw boolean expression with @0, @1 placeholders")
	flags.StringVar(&f.Params, "params", "", "'|'-separated values bound to the where placeholders")
	flags.StringVar(&f.OrderBy, "orderby", "", `Sort property, optionally followed by "desc"`)
	flags.IntVar(&f.Skip, "skip", -1, "Records to skip (requires --top)")
	flags.IntVar(&f.Top, "top", -1, "Maximum records to return")
	flags.IntVar(&f.Page, "page", -1, "1-based page number (with --page-size)")
	flags.IntVar(&f.PageSize, "page-size", -1, "Page size")

	cmd.MarkFlagsMutuallyExclusive("query", "filter")
	cmd.MarkFlagsMutuallyExclusive("query", "where")
}

// Values renders the flags as request parameters. Flags override the same
// parameters given in --query.
func (f *SettingsFlags) Values() (url.Values, error) {
	values := url.Values{}
	if f.Query != "" {
		var err error
		values, err = url.ParseQuery(strings.TrimPrefix(f.Query, "?"))
		if err != nil {
			return nil, fmt.Errorf("%w: --query: %v", query.ErrInvalidParameter, err)
		}
	}

	set := func(name, v string) {
		if v != "" {
			values.Del(name)
			values.Set("$"+name, v)
		}
	}
	setCount := func(name string, n int) {
		if n >= 0 {
			set(name, strconv.Itoa(n))
		}
	}

	set(query.ParamFilter, f.Filter)
	set(query.ParamWhere, f.Where)
	set(query.ParamParams, f.Params)
	set(query.ParamOrderBy, f.OrderBy)
	setCount(query.ParamSkip, f.Skip)
	setCount(query.ParamTop, f.Top)
	setCount(query.ParamPage, f.Page)
	setCount(query.ParamPageSize, f.PageSize)
	return values, nil
}

// Settings normalizes the flags into query settings.
func (f *SettingsFlags) Settings() (*query.Settings, error) {
	values, err := f.Values()
	if err != nil {
		return nil, err
	}
	return query.SettingsFromParams(query.NewParams(values))
}
