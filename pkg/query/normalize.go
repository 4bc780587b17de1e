package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Parameter names read from a request. Each is looked up with the "$" prefix
// first and then without it.
const (
	ParamSkip     = "skip"
	ParamTop      = "top"
	ParamWhere    = "where"
	ParamOrderBy  = "orderby"
	ParamFilter   = "filter"
	ParamParams   = "params"
	ParamPage     = "page"
	ParamPageSize = "pagesize"
)

// ParamsSeparator splits the $params list of raw where-clause parameters.
const ParamsSeparator = "|"

// Params is a read-only view over raw request parameters. The zero value is an
// empty collection.
type Params struct {
	values url.Values
}

// NewParams wraps already-decoded values.
func NewParams(values url.Values) Params {
	return Params{values: values}
}

// ParseParams decodes a raw query string ("$top=10&$skip=20").
func ParseParams(rawQuery string) (Params, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	if err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	return Params{values: values}, nil
}

// Get returns the value of the "$name" parameter, falling back to "name".
// Missing parameters yield the empty string.
func (p Params) Get(name string) string {
	if p.values == nil {
		return ""
	}
	if v := p.values.Get("$" + name); v != "" {
		return v
	}
	return p.values.Get(name)
}

// Has reports whether the parameter is present in either form.
func (p Params) Has(name string) bool {
	if p.values == nil {
		return false
	}
	return p.values.Has("$"+name) || p.values.Has(name)
}

// Len returns the number of distinct keys.
func (p Params) Len() int {
	return len(p.values)
}

// Values returns a copy of the underlying values.
func (p Params) Values() url.Values {
	out := make(url.Values, len(p.values))
	for k, v := range p.values {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// RawParams are the raw, decoded parameter strings a Settings is built from.
// Empty strings mean "absent".
type RawParams struct {
	Skip     string
	Top      string
	Where    string
	OrderBy  string
	Params   string
	Page     string
	PageSize string
}

// RawParamsFrom extracts the raw parameter strings from p. Where and OrderBy
// go through Unescape since clients often encode them twice.
func RawParamsFrom(p Params) RawParams {
	return RawParams{
		Skip:     p.Get(ParamSkip),
		Top:      p.Get(ParamTop),
		Where:    Unescape(p.Get(ParamWhere)),
		OrderBy:  Unescape(p.Get(ParamOrderBy)),
		Params:   p.Get(ParamParams),
		Page:     p.Get(ParamPage),
		PageSize: p.Get(ParamPageSize),
	}
}

// Normalize interprets raw parameters and an already-deserialized filter list
// into Settings.
//
// Numeric parameters stay nil when absent and fail with ErrInvalidParameter
// when malformed or negative. A where clause takes precedence over filters.
// When $top is absent, $pagesize (and optionally $page, 1-based) stand in for
// $top and $skip.
func Normalize(raw RawParams, filters []FilterSpec) (*Settings, error) {
	settings := &Settings{}
	var err error

	if settings.Skip, err = parseCount(ParamSkip, raw.Skip); err != nil {
		return nil, err
	}
	if settings.Top, err = parseCount(ParamTop, raw.Top); err != nil {
		return nil, err
	}
	if settings.Page, err = parseCount(ParamPage, raw.Page); err != nil {
		return nil, err
	}
	if settings.PageSize, err = parseCount(ParamPageSize, raw.PageSize); err != nil {
		return nil, err
	}
	if err := applyPaging(settings); err != nil {
		return nil, err
	}

	if raw.Params != "" {
		settings.WhereParams = SplitParams(raw.Params)
	}

	if raw.Where != "" {
		settings.Where = raw.Where
	} else {
		settings.Filters = filters
	}

	settings.OrderBy = ParseOrderBy(raw.OrderBy)

	return settings, nil
}

func parseCount(name, raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: $%s: %v", ErrInvalidParameter, name, err)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: $%s must not be negative, got %d", ErrInvalidParameter, name, n)
	}
	return &n, nil
}

func applyPaging(s *Settings) error {
	if s.Top != nil || s.PageSize == nil {
		return nil
	}
	page := 1
	if s.Page != nil {
		if *s.Page < 1 {
			return fmt.Errorf("%w: $%s starts at 1, got %d", ErrInvalidParameter, ParamPage, *s.Page)
		}
		page = *s.Page
	}
	size := *s.PageSize
	s.Top = &size
	if s.Skip == nil {
		skip := (page - 1) * size
		s.Skip = &skip
	}
	return nil
}

// ParseOrderBy interprets an order-by directive. Two whitespace-separated
// tokens ("name desc") sort descending on the first token; the second token
// is not inspected. Any other token count sorts ascending on the first token.
// Returns nil for an empty directive.
func ParseOrderBy(raw string) *OrderBy {
	tokens := strings.Fields(raw)
	if len(tokens) == 0 {
		return nil
	}
	return &OrderBy{
		Property:   tokens[0],
		Descending: len(tokens) == 2,
	}
}

// SplitParams splits a "|"-separated parameter list.
func SplitParams(raw string) []any {
	parts := strings.Split(raw, ParamsSeparator)
	params := make([]any, len(parts))
	for i, part := range parts {
		params[i] = part
	}
	return params
}

// ParseFilters decodes a JSON array of filter objects. An empty string yields
// no filters.
func ParseFilters(raw string) ([]FilterSpec, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var filters []FilterSpec
	if err := dec.Decode(&filters); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFilter, err)
	}
	for i := range filters {
		filters[i].Value = normalizeNumber(filters[i].Value)
	}
	return filters, nil
}

// normalizeNumber converts json.Number values to int64 when integral and
// float64 otherwise, recursing into arrays.
func normalizeNumber(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []any:
		for i := range val {
			val[i] = normalizeNumber(val[i])
		}
		return val
	default:
		return v
	}
}

// Unescape percent-decodes an already query-decoded value a second time. A
// value that does not decode cleanly, such as a where clause with a literal
// "%", is returned unchanged. "+" is left alone.
func Unescape(raw string) string {
	if !strings.Contains(raw, "%") {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func filtersFromParams(p Params) ([]FilterSpec, error) {
	return ParseFilters(Unescape(p.Get(ParamFilter)))
}

// SettingsFromParams builds Settings from request parameters. The $filter
// list is only decoded when no $where clause is present.
func SettingsFromParams(p Params) (*Settings, error) {
	raw := RawParamsFrom(p)

	var filters []FilterSpec
	if raw.Where == "" {
		var err error
		if filters, err = filtersFromParams(p); err != nil {
			return nil, err
		}
	}

	return Normalize(raw, filters)
}

// ParseQueryString builds Settings from a raw query string.
func ParseQueryString(rawQuery string) (*Settings, error) {
	p, err := ParseParams(rawQuery)
	if err != nil {
		return nil, err
	}
	return SettingsFromParams(p)
}
