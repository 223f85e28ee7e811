package store

import (
	"context"
	"fmt"

	attrs "github.com/goliatone/go-attributes"
)

// Binding ties one registry to one record of a Store. The record id is
// learned on insert, or given up front with BindRef for existing records,
// and is reported back to the registry through the id attribute.
type Binding struct {
	store      Store
	collection string
	idField    string
	ref        Ref
	bound      bool
}

// BindingOption configures a Binding.
type BindingOption func(*Binding)

// WithIDField names the attribute that receives the record id (default "id").
func WithIDField(name string) BindingOption {
	return func(b *Binding) {
		if name != "" {
			b.idField = name
		}
	}
}

// BindRef binds an existing record.
func BindRef(id string) BindingOption {
	return func(b *Binding) {
		if id != "" {
			b.ref = Ref{Collection: b.collection, ID: id}
			b.bound = true
		}
	}
}

// Bind creates a binding over store for a record of collection.
func Bind(store Store, collection string, opts ...BindingOption) *Binding {
	b := &Binding{store: store, collection: collection, idField: "id"}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Ref returns the bound record, if any.
func (b *Binding) Ref() (Ref, bool) {
	return b.ref, b.bound
}

// Inserter stores the values as a new record and assigns the id attribute.
func (b *Binding) Inserter() attrs.Inserter {
	return func(ctx context.Context, values map[string]any) (map[string]any, error) {
		stored := cloneValues(values)
		delete(stored, b.idField)
		ref, err := b.store.Insert(ctx, b.collection, stored)
		if err != nil {
			return nil, err
		}
		b.ref = ref
		b.bound = true
		return map[string]any{b.idField: ref.ID}, nil
	}
}

// Updater merges the new values into the bound record.
func (b *Binding) Updater() attrs.Updater {
	return func(ctx context.Context, old, new map[string]any, _ []string) (map[string]any, error) {
		ref, err := b.resolve(new, old)
		if err != nil {
			return nil, err
		}
		stored := cloneValues(new)
		delete(stored, b.idField)
		if err := b.store.Update(ctx, ref, stored); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

// Deleter removes the bound record and forgets its id.
func (b *Binding) Deleter() attrs.Deleter {
	return func(ctx context.Context, values map[string]any) error {
		ref, err := b.resolve(values)
		if err != nil {
			return err
		}
		if err := b.store.Delete(ctx, ref); err != nil {
			return err
		}
		b.ref = Ref{}
		b.bound = false
		return nil
	}
}

// Loader reads the bound record, including the id attribute.
func (b *Binding) Loader() attrs.Loader {
	return func(ctx context.Context) (map[string]any, error) {
		ref, err := b.resolve()
		if err != nil {
			return nil, err
		}
		values, err := b.store.Load(ctx, ref)
		if err != nil {
			return nil, err
		}
		values[b.idField] = ref.ID
		return values, nil
	}
}

// Persist persists r through the binding.
func (b *Binding) Persist(ctx context.Context, r *attrs.Registry, opts ...attrs.PersistOption) error {
	return r.Persist(ctx, b.Inserter(), b.Updater(), opts...)
}

// Unpersist deletes the record of r through the binding.
func (b *Binding) Unpersist(ctx context.Context, r *attrs.Registry, opts ...attrs.PersistOption) error {
	return r.Unpersist(ctx, b.Deleter(), opts...)
}

// Reload refreshes r from the bound record.
func (b *Binding) Reload(ctx context.Context, r *attrs.Registry) error {
	return r.Reload(ctx, b.Loader())
}

func (b *Binding) resolve(candidates ...map[string]any) (Ref, error) {
	if b.bound {
		return b.ref, nil
	}
	for _, values := range candidates {
		if id, ok := values[b.idField]; ok && id != nil {
			b.ref = Ref{Collection: b.collection, ID: fmt.Sprint(id)}
			b.bound = true
			return b.ref, nil
		}
	}
	return Ref{}, ErrUnbound
}
