package memory

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/coral-mesh/listquery/pkg/query"
)

// accessor reads named fields from records of a single Go type.
type accessor struct {
	isMap bool

	// byName maps the lower-cased Go field name and json tag name to the
	// field's index path.
	byName map[string][]int

	// names holds every name a field can be addressed by in raw expressions,
	// mapped to its index path.
	names map[string][]int
}

var mapType = reflect.TypeOf(map[string]any{})

func newAccessor(t reflect.Type) *accessor {
	a := &accessor{
		byName: make(map[string][]int),
		names:  make(map[string][]int),
	}

	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil {
		return a
	}
	if t == mapType || (t.Kind() == reflect.Map && t.Key().Kind() == reflect.String) {
		a.isMap = true
		return a
	}
	if t.Kind() != reflect.Struct {
		return a
	}

	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		a.add(f.Name, f.Index)
		if tag := jsonName(f); tag != "" {
			a.add(tag, f.Index)
		}
	}
	return a
}

func (a *accessor) add(name string, index []int) {
	key := strings.ToLower(name)
	if _, exists := a.byName[key]; !exists {
		a.byName[key] = index
	}
	a.names[name] = index
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" || tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}

// get returns the value of field in record. Missing map keys read as nil;
// unknown struct fields are an error.
func (a *accessor) get(record any, field string) (any, error) {
	if a.isMap {
		return mapField(record, field), nil
	}

	index, ok := a.byName[strings.ToLower(field)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", query.ErrUnknownField, field)
	}

	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, nil
	}

	fv, err := v.FieldByIndexErr(index)
	if err != nil {
		// Nil embedded pointer on the path.
		return nil, nil
	}
	return plain(fv), nil
}

func mapField(record any, field string) any {
	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return nil
	}

	if mv := v.MapIndex(reflect.ValueOf(field).Convert(v.Type().Key())); mv.IsValid() {
		return plain(mv)
	}
	iter := v.MapRange()
	for iter.Next() {
		if strings.EqualFold(iter.Key().String(), field) {
			return plain(iter.Value())
		}
	}
	return nil
}

// fields returns every addressable field of record by name.
func (a *accessor) fields(record any) map[string]any {
	out := make(map[string]any)
	if a.isMap {
		v := reflect.ValueOf(record)
		for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
			if v.IsNil() {
				return out
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Map {
			return out
		}
		iter := v.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = plain(iter.Value())
		}
		return out
	}

	v := reflect.ValueOf(record)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return out
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return out
	}
	for name, index := range a.names {
		fv, err := v.FieldByIndexErr(index)
		if err != nil {
			out[name] = nil
			continue
		}
		out[name] = plain(fv)
	}
	return out
}

// plain unwraps pointers and interfaces and converts named basic types to
// their underlying kind so values compare and evaluate uniformly.
func plain(v reflect.Value) any {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}
	if t, ok := v.Interface().(time.Time); ok {
		return t
	}
	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		return v.Float()
	default:
		return v.Interface()
	}
}
