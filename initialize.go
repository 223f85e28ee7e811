package attrs

import (
	"sort"
	"strconv"

	"github.com/goliatone/go-attributes/internal/layering"
)

// Input is the initialization payload: positional values fill required
// attributes not given by name, in declaration order.
type Input struct {
	Positional []any
	Named      map[string]any
}

// Named builds an Input from named values only.
func Named(values map[string]any) Input {
	return Input{Named: values}
}

// Positional builds an Input from positional values only.
func Positional(values ...any) Input {
	return Input{Positional: values}
}

// Layered combines inputs ordered from strongest to weakest, for instance a
// request payload over stored values over configured defaults. Named values
// merge per key; positional values come from the strongest layer that has
// any.
func Layered(layers ...Input) Input {
	named := make([]map[string]any, len(layers))
	var positional []any
	for i, layer := range layers {
		named[i] = layer.Named
		if positional == nil && len(layer.Positional) > 0 {
			positional = append([]any(nil), layer.Positional...)
		}
	}
	return Input{Positional: positional, Named: layering.Merge(named...)}
}

// Remainder holds the input no attribute claimed during initialization.
type Remainder struct {
	Positional []any
	Named      map[string]any
}

// Empty reports whether nothing was left over.
func (r Remainder) Empty() bool {
	return len(r.Positional) == 0 && len(r.Named) == 0
}

// InitOption configures a single Initialize call.
type InitOption func(*initConfig)

type initConfig struct {
	persisted bool
	collect   bool
}

// AsPersisted marks the input as coming from the backing store: automatic
// attributes become writable, and the registry starts in the persisted state
// with a snapshot of the initial values.
func AsPersisted() InitOption {
	return func(cfg *initConfig) {
		cfg.persisted = true
	}
}

// CollectRemainder moves unknown names and surplus positional values into the
// returned Remainder instead of failing with ErrUndefinedAttribute.
func CollectRemainder() InitOption {
	return func(cfg *initConfig) {
		cfg.collect = true
	}
}

type staged struct {
	d     *Descriptor
	raw   any
	value any
}

// Initialize validates the whole input and then commits it. A failed call
// leaves every value untouched and the registry uninitialized, so it can be
// retried. Initialization happens once; later calls fail with
// ErrAlreadyInitialized.
func (r *Registry) Initialize(in Input, opts ...InitOption) (Remainder, error) {
	if !r.life.machine.Is(stateUninitialized) {
		return Remainder{}, ErrAlreadyInitialized
	}
	cfg := initConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := r.life.fire(eventBegin); err != nil {
		return Remainder{}, ErrAlreadyInitialized
	}

	rem, err := r.initialize(in, cfg)
	if err != nil {
		_ = r.life.fire(eventAbort)
		r.cfg.logger.Debug().
			Str("owner", r.ownerLabel()).
			Err(err).
			Msg("attributes initialization rejected")
		return Remainder{}, err
	}

	event := eventReady
	if cfg.persisted {
		event = eventRestore
	}
	if err := r.life.fire(event); err != nil {
		return Remainder{}, err
	}
	if cfg.persisted {
		if err := r.capture(); err != nil {
			return rem, err
		}
	}
	r.cfg.logger.Debug().
		Str("owner", r.ownerLabel()).
		Bool("persisted", cfg.persisted).
		Int("attributes", len(r.order)).
		Msg("attributes initialized")
	return rem, nil
}

func (r *Registry) initialize(in Input, cfg initConfig) (Remainder, error) {
	named := r.canonicalInput(in.Named)
	var batch errorBatch

	// required names, mapped positionally when not given by name
	positional := in.Positional
	for _, name := range r.schema.RequiredNames() {
		_, d, err := r.lookup(name)
		if err != nil {
			return Remainder{}, err
		}
		if d != nil && d.IsAutomatic() && !cfg.persisted {
			continue
		}
		if _, ok := named[name]; ok {
			continue
		}
		if len(positional) > 0 {
			named[name] = positional[0]
			positional = positional[1:]
			continue
		}
		if d != nil && d.field.Default != nil {
			continue
		}
		batch.add(ErrMissingRequired, name)
	}

	rem := Remainder{}
	targets := make(map[*Descriptor]any, len(named))
	for _, name := range sortedKeys(named) {
		_, d, err := r.lookup(name)
		if err != nil {
			return Remainder{}, err
		}
		if d == nil {
			if !cfg.collect {
				batch.add(ErrUndefinedAttribute, name)
				continue
			}
			if rem.Named == nil {
				rem.Named = make(map[string]any)
			}
			rem.Named[name] = named[name]
			continue
		}
		targets[d] = named[name]
	}
	if len(positional) > 0 {
		if !cfg.collect {
			for i := range positional {
				batch.add(ErrUndefinedAttribute, positionalName(len(in.Positional)-len(positional)+i))
			}
		} else {
			rem.Positional = append([]any(nil), positional...)
		}
	}

	// validation in declaration order
	writes := make([]staged, 0, len(targets))
	for _, name := range r.order {
		d := r.descriptors[name]
		raw, ok := targets[d]
		if !ok {
			continue
		}
		switch {
		case d.field.Mode == ModeStrictReadOnly, d.IsAutoImmutable():
			batch.add(ErrUnwriteable, name)
			continue
		case d.IsAutomatic() && !cfg.persisted:
			batch.add(ErrUnwriteable, name)
			continue
		}
		value, err := d.coerce(raw)
		if err != nil {
			batch.addInvalid(name, raw, err)
			continue
		}
		writes = append(writes, staged{d: d, raw: raw, value: value})
	}
	if !batch.empty() {
		return Remainder{}, batch.err()
	}

	if cfg.collect && r.cfg.remainder != nil {
		if err := r.cfg.remainder(rem); err != nil {
			return Remainder{}, err
		}
	}

	transient := r.transientValues(writes)
	if len(transient) > 0 && r.cfg.transient != nil {
		if err := r.cfg.transient(transient); err != nil {
			return Remainder{}, err
		}
	}

	written := make(map[*Descriptor]struct{}, len(writes))
	for _, w := range writes {
		w.d.commit(w.raw, w.value)
		written[w.d] = struct{}{}
	}
	for _, name := range r.order {
		d := r.descriptors[name]
		if _, ok := written[d]; !ok {
			d.reset()
			d.applyDefault()
		}
	}
	r.discardTransient()
	return rem, nil
}

// canonicalInput renames alias keys onto their canonical names. When both
// forms are present the canonical key wins.
func (r *Registry) canonicalInput(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for name, value := range values {
		if r.schema.Canonical(name) == name {
			out[name] = value
		}
	}
	for _, name := range sortedKeys(values) {
		canonical := r.schema.Canonical(name)
		if canonical == name {
			continue
		}
		if _, exists := out[canonical]; !exists {
			out[canonical] = values[name]
		}
	}
	return out
}

func (r *Registry) transientValues(writes []staged) map[string]any {
	var out map[string]any
	for _, name := range r.order {
		d := r.descriptors[name]
		if d.field.Mode != ModeWriteOnceTransient {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		value, found := any(nil), false
		for _, w := range writes {
			if w.d == d {
				value, found = w.value, true
				break
			}
		}
		if !found && d.field.Default != nil {
			value = d.field.Default()
		}
		out[name] = value
	}
	return out
}

func (r *Registry) discardTransient() {
	kept := r.order[:0]
	for _, name := range r.order {
		d := r.descriptors[name]
		if d.field.Mode != ModeWriteOnceTransient {
			kept = append(kept, name)
			continue
		}
		d.reset()
		delete(r.descriptors, name)
		if r.discarded == nil {
			r.discarded = make(map[string]struct{})
		}
		r.discarded[name] = struct{}{}
	}
	r.order = kept
}

func positionalName(index int) string {
	return "#" + strconv.Itoa(index)
}

func sortedKeys[V any](values map[string]V) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
