package attrs

import "fmt"

// Validator checks a raw value and returns the coerced value to store.
type Validator func(raw any) (any, error)

// DefaultFunc provides the value an attribute takes when nothing was set.
type DefaultFunc func() any

// Field is one row of a schema table.
type Field struct {
	Name      string
	Mode      Mode
	Flags     Flag
	Validator Validator
	Default   DefaultFunc
	Aliases   []string
}

// DefaultValue returns a DefaultFunc that always yields value.
func DefaultValue(value any) DefaultFunc {
	return func() any { return value }
}

type cellState uint8

const (
	cellUnset cellState = iota
	cellLazy
	cellEvaluated
)

// Descriptor holds the metadata and the value cell of one attribute owned by
// a Registry.
type Descriptor struct {
	field    Field
	registry *Registry

	state     cellState
	raw       any
	value     any
	defaulted bool
}

func newDescriptor(field Field, registry *Registry) *Descriptor {
	return &Descriptor{field: field, registry: registry}
}

// Name returns the canonical attribute name.
func (d *Descriptor) Name() string { return d.field.Name }

// Mode returns the effective mode of the attribute.
func (d *Descriptor) Mode() Mode { return d.field.Mode }

// Flags returns the flag set of the attribute.
func (d *Descriptor) Flags() Flag { return d.field.Flags }

func (d *Descriptor) IsRequired() bool {
	if d.field.Flags.Has(Required) {
		return true
	}
	return d.registry != nil && d.registry.schema.requiresName(d.field.Name)
}

func (d *Descriptor) IsAutomatic() bool     { return d.field.Flags.Has(Automatic) }
func (d *Descriptor) IsImmutable() bool     { return d.field.Flags.Has(Immutable) }
func (d *Descriptor) IsAutoImmutable() bool { return d.field.Flags.Has(AutoImmutable) }
func (d *Descriptor) IsVolatile() bool      { return d.field.Flags.Has(Volatile) }
func (d *Descriptor) IsLazy() bool          { return d.field.Flags.Has(Lazy) }

// IsReadable reports whether the mode allows reads.
func (d *Descriptor) IsReadable() bool { return d.field.Mode.Readable() }

// IsGettable reports whether the cell currently holds a value.
func (d *Descriptor) IsGettable() bool { return d.state != cellUnset }

// IsDefaulted reports whether the current value came from the default provider.
func (d *Descriptor) IsDefaulted() bool { return d.state != cellUnset && d.defaulted }

// IsSettable reports whether a post-initialization write would pass the
// access guard in the current registry phase.
func (d *Descriptor) IsSettable() bool {
	return d.writeGuard() == nil
}

// writeGuard returns the sentinel that rejects a post-initialization write,
// or nil when the write is allowed.
func (d *Descriptor) writeGuard() error {
	if d.registry != nil && d.registry.readOnly {
		return ErrUnwriteable
	}
	if !d.field.Mode.writableAfterInit() {
		return ErrUnwriteable
	}
	if d.IsAutoImmutable() {
		return ErrUnwriteable
	}
	persisted := d.registry != nil && d.registry.IsPersisted()
	if d.IsAutomatic() && !persisted {
		return ErrUnwriteable
	}
	if d.IsImmutable() && persisted {
		return ErrUnwriteable
	}
	return nil
}

// setValue stores raw after validation. Lazy attributes keep the raw value
// unless force or duringInit is set. The returned error is the validator's
// own error; the cell is left untouched when validation fails.
func (d *Descriptor) setValue(raw any, force, duringInit bool) (bool, error) {
	if d.IsLazy() && !force && !duringInit {
		d.deferValue(raw)
		return true, nil
	}
	value, err := d.coerce(raw)
	if err != nil {
		return false, err
	}
	d.commit(raw, value)
	return true, nil
}

func (d *Descriptor) coerce(raw any) (any, error) {
	if d.field.Validator == nil {
		return raw, nil
	}
	return d.field.Validator(raw)
}

// deferValue keeps raw for evaluation on first read.
func (d *Descriptor) deferValue(raw any) {
	d.state = cellLazy
	d.raw = raw
	d.value = nil
	d.defaulted = false
}

func (d *Descriptor) commit(raw, value any) {
	d.state = cellEvaluated
	d.raw = raw
	d.value = value
	d.defaulted = false
}

// get returns the stored value. With lazy set, a pending cell yields its raw
// value without being evaluated.
func (d *Descriptor) get(lazy bool) (any, error) {
	switch d.state {
	case cellUnset:
		return nil, nil
	case cellLazy:
		if lazy {
			return d.raw, nil
		}
		value, err := d.coerce(d.raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInconsistentValue, d.field.Name, err)
		}
		d.state = cellEvaluated
		d.value = value
		return value, nil
	default:
		return d.value, nil
	}
}

// unsetValue clears the cell, falling back to the default provider.
func (d *Descriptor) unsetValue() {
	d.state = cellUnset
	d.raw = nil
	d.value = nil
	d.defaulted = false
	d.applyDefault()
}

func (d *Descriptor) applyDefault() bool {
	if d.field.Default == nil {
		return false
	}
	value := d.field.Default()
	d.state = cellEvaluated
	d.raw = value
	d.value = value
	d.defaulted = true
	return true
}

// reset drops the value without consulting the default provider.
func (d *Descriptor) reset() {
	d.state = cellUnset
	d.raw = nil
	d.value = nil
	d.defaulted = false
}
