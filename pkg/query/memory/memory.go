// Package memory implements query.Queryable over an in-memory slice.
//
// Records may be structs, pointers to structs or string-keyed maps. Fields are
// resolved case-insensitively by Go field name or json tag name. Raw
// expressions passed to WhereRaw are CEL.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/coral-mesh/listquery/pkg/query"
)

// source is the shared backing slice of a chain.
type source[T any] struct {
	records []T

	once sync.Once
	acc  *accessor
}

func (s *source[T]) accessor() *accessor {
	s.once.Do(func() {
		t := reflect.TypeOf((*T)(nil)).Elem()
		if t.Kind() == reflect.Interface && len(s.records) > 0 {
			// Resolve fields from the dynamic type of the records.
			for _, r := range s.records {
				if rt := reflect.TypeOf(any(r)); rt != nil {
					t = rt
					break
				}
			}
		}
		s.acc = newAccessor(t)
	})
	return s.acc
}

// Queryable is a lazy chain of operations over a slice. Nothing is evaluated
// until Count or List is called, and each call re-evaluates the chain.
type Queryable[T any] struct {
	src  *source[T]
	eval func(ctx context.Context) ([]int, error)
}

var _ query.Queryable[struct{}] = (*Queryable[struct{}])(nil)

// New wraps records. The slice is read, never modified.
func New[T any](records []T) *Queryable[T] {
	src := &source[T]{records: records}
	return &Queryable[T]{
		src: src,
		eval: func(ctx context.Context) ([]int, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			idx := make([]int, len(records))
			for i := range idx {
				idx[i] = i
			}
			return idx, nil
		},
	}
}

func (q *Queryable[T]) then(step func(ctx context.Context, idx []int) ([]int, error)) *Queryable[T] {
	prev := q.eval
	return &Queryable[T]{
		src: q.src,
		eval: func(ctx context.Context) ([]int, error) {
			idx, err := prev(ctx)
			if err != nil {
				return nil, err
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return step(ctx, idx)
		},
	}
}

// Where keeps the records matching p.
func (q *Queryable[T]) Where(p query.Predicate) query.Queryable[T] {
	return q.then(func(_ context.Context, idx []int) ([]int, error) {
		match, err := compilePredicate(q.src.accessor(), p)
		if err != nil {
			return nil, err
		}
		return q.keep(idx, func(r T) (bool, error) { return match(r) })
	})
}

// WhereRaw keeps the records for which the CEL expression expr evaluates to
// true. Placeholders @0, @1 and so on are bound to args.
func (q *Queryable[T]) WhereRaw(expr string, args ...any) query.Queryable[T] {
	return q.then(func(ctx context.Context, idx []int) ([]int, error) {
		acc := q.src.accessor()
		prg, err := compileRaw(expr, variableNames(acc, q.src.records), args)
		if err != nil {
			return nil, err
		}
		return q.keep(idx, func(r T) (bool, error) {
			return prg.eval(ctx, acc.fields(r))
		})
	})
}

func (q *Queryable[T]) keep(idx []int, match func(T) (bool, error)) ([]int, error) {
	out := make([]int, 0, len(idx))
	for _, i := range idx {
		ok, err := match(q.src.records[i])
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, i)
		}
	}
	return out, nil
}

// Union returns the records of q followed by those of other not already
// present. other must derive from the same New call as q.
func (q *Queryable[T]) Union(other query.Queryable[T]) query.Queryable[T] {
	o, ok := other.(*Queryable[T])
	if !ok || o.src != q.src {
		return q.then(func(context.Context, []int) ([]int, error) {
			return nil, fmt.Errorf("%w: union of %T with a different source", query.ErrIncompatibleSource, other)
		})
	}
	return q.then(func(ctx context.Context, idx []int) ([]int, error) {
		right, err := o.eval(ctx)
		if err != nil {
			return nil, err
		}
		seen := make(map[int]bool, len(idx)+len(right))
		out := make([]int, 0, len(idx)+len(right))
		for _, list := range [][]int{idx, right} {
			for _, i := range list {
				if !seen[i] {
					seen[i] = true
					out = append(out, i)
				}
			}
		}
		return out, nil
	})
}

// OrderBy sorts by property. The sort is stable and nil values sort first in
// ascending order.
func (q *Queryable[T]) OrderBy(property string, descending bool) query.Queryable[T] {
	return q.then(func(_ context.Context, idx []int) ([]int, error) {
		acc := q.src.accessor()
		keys := make(map[int]any, len(idx))
		for _, i := range idx {
			v, err := acc.get(q.src.records[i], property)
			if err != nil {
				return nil, err
			}
			keys[i] = v
		}

		sorted := slices.Clone(idx)
		var sortErr error
		slices.SortStableFunc(sorted, func(a, b int) int {
			c, err := orderKeys(keys[a], keys[b])
			if err != nil && sortErr == nil {
				sortErr = err
			}
			if descending {
				return -c
			}
			return c
		})
		if sortErr != nil {
			return nil, fmt.Errorf("order by %s: %w", property, sortErr)
		}
		return sorted, nil
	})
}

func orderKeys(a, b any) (int, error) {
	switch {
	case a == nil && b == nil:
		return 0, nil
	case a == nil:
		return -1, nil
	case b == nil:
		return 1, nil
	}
	return compareValues(a, b)
}

// Skip drops the first n records. Negative n is treated as zero.
func (q *Queryable[T]) Skip(n int) query.Queryable[T] {
	return q.then(func(_ context.Context, idx []int) ([]int, error) {
		n := max(n, 0)
		if n >= len(idx) {
			return []int{}, nil
		}
		return idx[n:], nil
	})
}

// Take keeps at most the first n records. Negative n is treated as zero.
func (q *Queryable[T]) Take(n int) query.Queryable[T] {
	return q.then(func(_ context.Context, idx []int) ([]int, error) {
		n := max(n, 0)
		if n >= len(idx) {
			return idx, nil
		}
		return idx[:n], nil
	})
}

// Count evaluates the chain and returns the number of records.
func (q *Queryable[T]) Count(ctx context.Context) (int64, error) {
	idx, err := q.eval(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(idx)), nil
}

// List evaluates the chain and returns the records in order.
func (q *Queryable[T]) List(ctx context.Context) ([]T, error) {
	idx, err := q.eval(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(idx))
	for j, i := range idx {
		out[j] = q.src.records[i]
	}
	return out, nil
}
