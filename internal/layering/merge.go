// Package layering composes attribute payloads taken from several sources.
package layering

import "github.com/goliatone/go-attributes/internal/clone"

// Merge composes layers ordered from strongest to weakest. A key set in a
// stronger layer wins; nested map[string]any values are merged key by key so
// a stronger layer only overrides what it names. Values are deep copied, the
// inputs are never mutated. Merge returns nil when every layer is nil.
func Merge(layers ...map[string]any) map[string]any {
	var merged map[string]any
	for i := len(layers) - 1; i >= 0; i-- {
		if layers[i] == nil {
			continue
		}
		merged = mergeMap(layers[i], merged)
	}
	return merged
}

func mergeMap(strong, weak map[string]any) map[string]any {
	result := make(map[string]any, len(strong)+len(weak))
	for key, value := range weak {
		result[key] = value
	}
	for key, value := range strong {
		strongMap, strongIsMap := value.(map[string]any)
		weakMap, weakIsMap := result[key].(map[string]any)
		if strongIsMap && weakIsMap && strongMap != nil {
			result[key] = mergeMap(strongMap, weakMap)
			continue
		}
		result[key] = clone.Value(value)
	}
	return result
}
