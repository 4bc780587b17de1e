package query

import (
	"context"
	"fmt"
	"net/url"
)

// OrderBy is a single-key sort directive.
type OrderBy struct {
	Property   string `json:"property"`
	Descending bool   `json:"descending,omitempty"`
}

func (o OrderBy) String() string {
	if o.Descending {
		return o.Property + " desc"
	}
	return o.Property
}

// Settings aggregates everything a client asked for on a list request.
//
// Filters and Where are mutually exclusive in effect: when Filters is not
// empty, Where and WhereParams are ignored.
type Settings struct {
	Filters     []FilterSpec `json:"filters,omitempty"`
	Where       string       `json:"where,omitempty"`
	WhereParams []any        `json:"whereParams,omitempty"`
	OrderBy     *OrderBy     `json:"orderBy,omitempty"`
	Skip        *int         `json:"skip,omitempty"`
	Top         *int         `json:"top,omitempty"`
	Page        *int         `json:"page,omitempty"`
	PageSize    *int         `json:"pageSize,omitempty"`
}

// HasFilters reports whether any filtering was requested.
func (s *Settings) HasFilters() bool {
	return len(s.Filters) > 0 || s.Where != ""
}

// Clone returns a copy of s that can be modified without affecting s.
func (s *Settings) Clone() *Settings {
	c := *s
	c.Filters = append([]FilterSpec(nil), s.Filters...)
	c.WhereParams = append([]any(nil), s.WhereParams...)
	if s.OrderBy != nil {
		o := *s.OrderBy
		c.OrderBy = &o
	}
	c.Skip = cloneInt(s.Skip)
	c.Top = cloneInt(s.Top)
	c.Page = cloneInt(s.Page)
	c.PageSize = cloneInt(s.PageSize)
	return &c
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Int returns a pointer to n. Convenience for building Settings literals.
func Int(n int) *int {
	return &n
}

// Result is the outcome of running a pipeline: the still-lazy items plus the
// total match count captured before pagination.
type Result[T any] struct {
	Items        Queryable[T]
	Count        int64
	NextPageLink *url.URL
}

// Page is the materialized form of a Result, suitable for encoding.
type Page[T any] struct {
	Items        []T    `json:"items"`
	Count        int64  `json:"count"`
	NextPageLink string `json:"nextPageLink,omitempty"`
}

// Materialize enumerates the items of r.
func (r *Result[T]) Materialize(ctx context.Context) (*Page[T], error) {
	items, err := r.Items.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	if items == nil {
		items = []T{}
	}
	page := &Page[T]{
		Items: items,
		Count: r.Count,
	}
	if r.NextPageLink != nil {
		page.NextPageLink = r.NextPageLink.String()
	}
	return page, nil
}
