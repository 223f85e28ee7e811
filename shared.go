package attrs

import (
	"reflect"
	"sync"
)

type sharedEntry struct {
	once   sync.Once
	schema *Schema
	err    error
}

var (
	sharedMu      sync.Mutex
	sharedSchemas = map[reflect.Type]*sharedEntry{}
)

// SharedSchema returns the process-wide schema for owner type T, calling
// build at most once per successful construction. Failed builds are not
// cached so a later call can retry.
func SharedSchema[T any](build func() (*Schema, error)) (*Schema, error) {
	key := reflect.TypeFor[T]()

	sharedMu.Lock()
	entry, ok := sharedSchemas[key]
	if !ok {
		entry = &sharedEntry{}
		sharedSchemas[key] = entry
	}
	sharedMu.Unlock()

	entry.once.Do(func() {
		entry.schema, entry.err = build()
	})
	if entry.err != nil {
		sharedMu.Lock()
		if sharedSchemas[key] == entry {
			delete(sharedSchemas, key)
		}
		sharedMu.Unlock()
		return nil, entry.err
	}
	return entry.schema, nil
}

// ResetSharedSchemas drops every cached schema. Intended for tests.
func ResetSharedSchemas() {
	sharedMu.Lock()
	sharedSchemas = map[reflect.Type]*sharedEntry{}
	sharedMu.Unlock()
}
