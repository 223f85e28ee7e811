package attrs

import (
	"errors"
	"fmt"
)

// Registry owns the attribute descriptors of one owner instance. It is not
// safe for concurrent use; callers serialize access per instance.
type Registry struct {
	owner  any
	schema *Schema
	cfg    registryConfig

	descriptors map[string]*Descriptor
	order       []string
	discarded   map[string]struct{}

	life     *lifecycle
	readOnly bool
	snapshot snapshot
}

// ErrNilSchema is returned by New when no schema is given.
var ErrNilSchema = errors.New("attrs: schema is required")

// New builds a registry for owner from schema. Every declared field gets its
// descriptor immediately; names resolved through the schema builder are
// added on first use.
func New(owner any, schema *Schema, opts ...Option) (*Registry, error) {
	if schema == nil {
		return nil, ErrNilSchema
	}
	r := &Registry{
		owner:       owner,
		schema:      schema,
		cfg:         applyOptions(opts),
		descriptors: make(map[string]*Descriptor, len(schema.fields)),
		order:       make([]string, 0, len(schema.fields)),
		life:        newLifecycle(),
	}
	for _, field := range schema.fields {
		r.attach(field)
	}
	return r, nil
}

// MustNew is New that panics on error.
func MustNew(owner any, schema *Schema, opts ...Option) *Registry {
	r, err := New(owner, schema, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) attach(field Field) *Descriptor {
	d := newDescriptor(field, r)
	r.descriptors[field.Name] = d
	r.order = append(r.order, field.Name)
	return d
}

// lookup resolves name (or an alias of it) to a local descriptor, building it
// through the schema builder when needed. A nil descriptor with a nil error
// means the name is not defined locally.
func (r *Registry) lookup(name string) (string, *Descriptor, error) {
	canonical := r.schema.Canonical(name)
	if d, ok := r.descriptors[canonical]; ok {
		return canonical, d, nil
	}
	if r.isDiscarded(canonical) {
		return canonical, nil, nil
	}
	field, ok, err := r.schema.build(canonical)
	if err != nil {
		return canonical, nil, err
	}
	if !ok {
		return canonical, nil, nil
	}
	d := r.attach(field)
	if r.life.initialized() && d.applyDefault() {
		r.remember(d)
	}
	return canonical, d, nil
}

func (r *Registry) isDiscarded(name string) bool {
	_, ok := r.discarded[name]
	return ok
}

// Owner returns the object the registry describes.
func (r *Registry) Owner() any { return r.owner }

// Schema returns the schema the registry was built from.
func (r *Registry) Schema() *Schema { return r.schema }

// IsInitialized reports whether Initialize completed successfully.
func (r *Registry) IsInitialized() bool { return r.life.initialized() }

// IsPersisted reports whether the values are known to match the backing store.
func (r *Registry) IsPersisted() bool { return r.life.persisted() }

// IsReadOnly reports whether Lock was called.
func (r *Registry) IsReadOnly() bool { return r.readOnly }

// State returns the lifecycle state name.
func (r *Registry) State() string { return r.life.current() }

// Lock makes every attribute unwriteable for the rest of the registry life.
func (r *Registry) Lock() { r.readOnly = true }

// Has reports whether name is defined locally, through the builder or by
// the fallback store.
func (r *Registry) Has(name string) bool {
	canonical, d, err := r.lookup(name)
	if err != nil {
		return false
	}
	if d != nil {
		return true
	}
	if r.isDiscarded(canonical) {
		return false
	}
	return r.cfg.fallback != nil && r.cfg.fallback.Has(canonical)
}

// Names lists the local attribute names in declaration order, followed by
// the names built on demand in the order they were first used.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Descriptor returns the local descriptor for name.
func (r *Registry) Descriptor(name string) (*Descriptor, bool) {
	_, d, err := r.lookup(name)
	if err != nil || d == nil {
		return nil, false
	}
	return d, true
}

func (r *Registry) requireInitialized() error {
	if !r.life.initialized() {
		return ErrNotYetInitialized
	}
	return nil
}

func (r *Registry) ownerLabel() string {
	if r.owner == nil {
		return "<nil>"
	}
	if id, ok := r.owner.(Identifiable); ok {
		return fmt.Sprintf("%T(%v)", r.owner, id.UID())
	}
	return fmt.Sprintf("%T", r.owner)
}
