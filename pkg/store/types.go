package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("store: record not found")
	ErrUnbound  = errors.New("store: binding has no record id")
)

// Ref identifies one stored record.
type Ref struct {
	Collection string
	ID         string
}

// Identifier returns the deterministic storage key of the record.
func (r Ref) Identifier() (string, error) {
	collection := strings.TrimSpace(r.Collection)
	if collection == "" {
		return "", fmt.Errorf("store: collection is required")
	}
	id := strings.TrimSpace(r.ID)
	if id == "" {
		return "", fmt.Errorf("store: id is required for collection %q", collection)
	}
	if strings.Contains(collection, "/") {
		return "", fmt.Errorf("store: collection %q must not contain '/'", collection)
	}
	return collection + "/" + id, nil
}

// Store persists flat attribute value maps.
type Store interface {
	// Insert stores values as a new record and returns its reference.
	Insert(ctx context.Context, collection string, values map[string]any) (Ref, error)
	// Update merges values into an existing record.
	Update(ctx context.Context, ref Ref, values map[string]any) error
	// Delete removes a record.
	Delete(ctx context.Context, ref Ref) error
	// Load returns the stored values of a record.
	Load(ctx context.Context, ref Ref) (map[string]any, error)
}

func cloneValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		out[key] = value
	}
	return out
}
