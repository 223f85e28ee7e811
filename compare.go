package attrs

import (
	"fmt"
	"reflect"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"

	"github.com/goliatone/go-attributes/internal/clone"
)

// Identifiable values are compared and stored by identifier instead of by
// content.
type Identifiable interface {
	UID() any
}

type uidRef struct {
	UID any `json:"$uid"`
}

var nullKey = comparisonKey(nil)

// comparisonKey digests the canonical JSON form of v. Map keys are sorted by
// the encoder, so structurally equal values share a key.
func comparisonKey(v any) uint64 {
	data, err := json.Marshal(canonicalize(v))
	if err != nil {
		return xxhash.Sum64String(fmt.Sprintf("%T:%#v", v, v))
	}
	return xxhash.Sum64(data)
}

// canonicalize replaces identifiable values, including elements of slices
// and maps, with their identifier.
func canonicalize(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if isNilValue(rv) {
		return nil
	}
	if id, ok := v.(Identifiable); ok {
		return uidRef{UID: id.UID()}
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = canonicalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = canonicalize(iter.Value().Interface())
		}
		return out
	default:
		return v
	}
}

// storageValue is the form handed to collaborators.
func storageValue(v any) any {
	if v == nil {
		return nil
	}
	if isNilValue(reflect.ValueOf(v)) {
		return v
	}
	if id, ok := v.(Identifiable); ok {
		return id.UID()
	}
	return v
}

// copyValue deep copies maps and slices so later in-place mutation of the
// live value does not leak into the snapshot. Identifiable values are kept
// by reference.
func copyValue(v any) any {
	if _, ok := v.(Identifiable); ok {
		return v
	}
	return clone.Value(v)
}

func isNilValue(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
