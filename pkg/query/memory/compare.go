package memory

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/coral-mesh/listquery/pkg/query"
)

// timeLayouts are accepted when a time field is compared with a string.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// compareValues returns -1, 0 or 1 as field is less than, equal to or greater
// than value. Numbers compare numerically whatever their Go type, times
// chronologically, booleans with false before true; anything else falls back
// to comparing the printed forms.
func compareValues(field, value any) (int, error) {
	switch f := field.(type) {
	case string:
		return strings.Compare(f, toString(value)), nil

	case bool:
		b, ok := toBool(value)
		if !ok {
			return 0, mismatch(field, value)
		}
		switch {
		case f == b:
			return 0, nil
		case !f:
			return -1, nil
		default:
			return 1, nil
		}

	case time.Time:
		t, ok := toTime(value)
		if !ok {
			return 0, mismatch(field, value)
		}
		return f.Compare(t), nil
	}

	if ff, ok := toFloat(field); ok {
		vf, ok := toFloat(value)
		if !ok {
			return 0, mismatch(field, value)
		}
		switch {
		case ff < vf:
			return -1, nil
		case ff > vf:
			return 1, nil
		default:
			return 0, nil
		}
	}

	return strings.Compare(fmt.Sprint(field), fmt.Sprint(value)), nil
}

func mismatch(field, value any) error {
	return fmt.Errorf("%w: cannot compare %T with %T", query.ErrTypeMismatch, field, value)
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	case fmt.Stringer:
		f, err := strconv.ParseFloat(n.String(), 64)
		return f, err == nil
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	}
	return false, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

// normalize brings a caller-supplied value into the same shape as field
// values read by the accessor.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	return plain(reflect.ValueOf(v))
}

type matchFunc func(record any) (bool, error)

// compilePredicate returns a matcher evaluating p against records read
// through a.
func compilePredicate(a *accessor, p query.Predicate) (matchFunc, error) {
	value := normalize(p.Value)

	switch p.Op {
	case query.OpEq, query.OpNe:
		want := p.Op == query.OpEq
		return func(record any) (bool, error) {
			field, err := a.get(record, p.Field)
			if err != nil {
				return false, err
			}
			eq, err := equal(field, value, p.Transform)
			if err != nil {
				return false, err
			}
			return eq == want, nil
		}, nil

	case query.OpGt, query.OpGe, query.OpLt, query.OpLe:
		return func(record any) (bool, error) {
			field, err := a.get(record, p.Field)
			if err != nil {
				return false, err
			}
			if field == nil || value == nil {
				return false, nil
			}
			c, err := compareValues(field, value)
			if err != nil {
				return false, err
			}
			switch p.Op {
			case query.OpGt:
				return c > 0, nil
			case query.OpGe:
				return c >= 0, nil
			case query.OpLt:
				return c < 0, nil
			default:
				return c <= 0, nil
			}
		}, nil

	case query.OpContains, query.OpStartsWith, query.OpEndsWith:
		test := strings.Contains
		switch p.Op {
		case query.OpStartsWith:
			test = strings.HasPrefix
		case query.OpEndsWith:
			test = strings.HasSuffix
		}
		return func(record any) (bool, error) {
			field, err := a.get(record, p.Field)
			if err != nil {
				return false, err
			}
			if field == nil || value == nil {
				return false, nil
			}
			s, ok := field.(string)
			if !ok {
				// A transform turns the field into text first.
				if p.Transform == query.TransformNone {
					return false, fmt.Errorf("%w: %s on non-string field %q (%T)", query.ErrTypeMismatch, p.Op, p.Field, field)
				}
				s = toString(field)
			}
			return test(p.Transform.Apply(s), toString(value)), nil
		}, nil
	}

	return nil, fmt.Errorf("%w: operation %s has no predicate form", query.ErrInvalidExpression, p.Op)
}

func equal(field, value any, t query.Transform) (bool, error) {
	if field == nil || value == nil {
		return field == nil && value == nil, nil
	}
	if t != query.TransformNone {
		return t.Apply(toString(field)) == toString(value), nil
	}
	c, err := compareValues(field, value)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}
