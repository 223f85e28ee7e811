// Package clone copies attribute values so callers cannot reach stored
// state through maps and slices they were handed.
package clone

import (
	"reflect"

	"github.com/tiendc/go-deepcopy"
)

// Value copies the map and slice structure of v. Other values are returned
// as they are: structs are already copies and pointers stay shared.
// Typed containers are copied only when no struct is reachable from their
// element type, since deepcopy drops unexported fields of struct values it
// reads out of a map.
func Value(v any) any {
	switch typed := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return Map(typed)
	case []any:
		if typed == nil {
			return typed
		}
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = Value(item)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if kind := rv.Kind(); kind != reflect.Map && kind != reflect.Slice {
		return v
	}
	if rv.IsNil() || !plain(rv.Type()) {
		return v
	}
	dst := reflect.New(rv.Type())
	if err := deepcopy.Copy(dst.Interface(), v); err != nil {
		return v
	}
	return dst.Elem().Interface()
}

// Map copies m entry by entry with Value. A nil map stays nil.
func Map(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for key, value := range m {
		out[key] = Value(value)
	}
	return out
}

func plain(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Slice, reflect.Array, reflect.Pointer:
		return plain(t.Elem())
	case reflect.Map:
		return plain(t.Key()) && plain(t.Elem())
	}
	return false
}
