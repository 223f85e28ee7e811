package attrs

// SetOption configures Set and SetMany.
type SetOption func(*setConfig)

type setConfig struct {
	force bool
}

// Force validates lazy attributes immediately instead of on first read.
func Force() SetOption {
	return func(cfg *setConfig) {
		cfg.force = true
	}
}

// Get returns the evaluated value of name. Pending lazy values are validated
// on the way out.
func (r *Registry) Get(name string) (any, error) {
	return r.getOne(name, false)
}

// GetRaw returns the value of name without evaluating a pending lazy value.
func (r *Registry) GetRaw(name string) (any, error) {
	return r.getOne(name, true)
}

func (r *Registry) getOne(name string, lazy bool) (any, error) {
	if err := r.requireInitialized(); err != nil {
		return nil, err
	}
	var batch errorBatch
	value, err := r.read(name, lazy, &batch)
	if err != nil {
		return nil, err
	}
	if !batch.empty() {
		return nil, batch.err()
	}
	return value, nil
}

// GetMany reads every name and reports all rejected names at once. The
// result is keyed by the names as given.
func (r *Registry) GetMany(names ...string) (map[string]any, error) {
	if err := r.requireInitialized(); err != nil {
		return nil, err
	}
	var batch errorBatch
	out := make(map[string]any, len(names))
	for _, name := range names {
		value, err := r.read(name, false, &batch)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	if !batch.empty() {
		return nil, batch.err()
	}
	return out, nil
}

// read resolves one name. Guard rejections go to batch; the returned error is
// reserved for faults that abort the whole call.
func (r *Registry) read(name string, lazy bool, batch *errorBatch) (any, error) {
	canonical, d, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	if d == nil {
		switch {
		case r.isDiscarded(canonical):
			batch.addScoped(ErrInaccessible, canonical, "initialize")
		case r.cfg.fallback != nil && r.cfg.fallback.Has(canonical):
			return r.cfg.fallback.Get(canonical)
		default:
			batch.add(ErrUndefinedAttribute, canonical)
		}
		return nil, nil
	}
	if !d.IsReadable() {
		batch.add(ErrUnreadable, canonical)
		return nil, nil
	}
	return d.get(lazy)
}

// Set writes one attribute.
func (r *Registry) Set(name string, value any, opts ...SetOption) error {
	return r.setEntries([]string{name}, map[string]any{name: value}, opts)
}

// SetMany validates every entry before committing any of them.
func (r *Registry) SetMany(values map[string]any, opts ...SetOption) error {
	return r.setEntries(sortedKeys(values), values, opts)
}

type pendingWrite struct {
	name     string
	d        *Descriptor
	raw      any
	value    any
	deferred bool
}

func (r *Registry) setEntries(names []string, values map[string]any, opts []SetOption) error {
	if err := r.requireInitialized(); err != nil {
		return err
	}
	cfg := setConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	var batch errorBatch
	writes := make([]pendingWrite, 0, len(names))
	for _, name := range names {
		raw := values[name]
		canonical, d, err := r.lookup(name)
		if err != nil {
			return err
		}
		if d == nil {
			switch {
			case r.isDiscarded(canonical):
				batch.addScoped(ErrInaccessible, canonical, "initialize")
			case r.readOnly:
				batch.add(ErrUnwriteable, canonical)
			case r.cfg.fallback != nil && r.cfg.fallback.Has(canonical):
				writes = append(writes, pendingWrite{name: canonical, raw: raw})
			default:
				batch.add(ErrUndefinedAttribute, canonical)
			}
			continue
		}
		if guard := d.writeGuard(); guard != nil {
			batch.add(guard, canonical)
			continue
		}
		if d.IsLazy() && !cfg.force {
			writes = append(writes, pendingWrite{name: canonical, d: d, raw: raw, deferred: true})
			continue
		}
		value, err := d.coerce(raw)
		if err != nil {
			batch.addInvalid(canonical, raw, err)
			continue
		}
		writes = append(writes, pendingWrite{name: canonical, d: d, raw: raw, value: value})
	}
	if !batch.empty() {
		r.cfg.logger.Debug().Str("owner", r.ownerLabel()).Err(batch.err()).Msg("attributes write rejected")
		return batch.err()
	}

	for _, w := range writes {
		switch {
		case w.d == nil:
			if err := r.cfg.fallback.Set(w.name, w.raw); err != nil {
				return err
			}
		case w.deferred:
			w.d.deferValue(w.raw)
		default:
			w.d.commit(w.raw, w.value)
		}
	}
	return nil
}

// Unset clears one attribute. A persisted attribute goes back to its
// snapshot value; otherwise it takes its default or becomes unset.
func (r *Registry) Unset(name string) error {
	return r.UnsetMany(name)
}

// UnsetMany checks every name before clearing any of them.
func (r *Registry) UnsetMany(names ...string) error {
	if err := r.requireInitialized(); err != nil {
		return err
	}

	var batch errorBatch
	var fallbackNames []string
	targets := make([]*Descriptor, 0, len(names))
	for _, name := range names {
		canonical, d, err := r.lookup(name)
		if err != nil {
			return err
		}
		if d == nil {
			switch {
			case r.isDiscarded(canonical):
				batch.addScoped(ErrInaccessible, canonical, "initialize")
			case r.readOnly:
				batch.add(ErrUnunsettable, canonical)
			case r.cfg.fallback != nil && r.cfg.fallback.Has(canonical):
				fallbackNames = append(fallbackNames, canonical)
			default:
				batch.add(ErrUndefinedAttribute, canonical)
			}
			continue
		}
		if d.writeGuard() != nil {
			batch.add(ErrUnunsettable, canonical)
			continue
		}
		_, hasSnapshot := r.snapshotEntry(canonical)
		if d.IsRequired() && !hasSnapshot && d.field.Default == nil {
			batch.add(ErrUnunsettable, canonical)
			continue
		}
		targets = append(targets, d)
	}
	if !batch.empty() {
		return batch.err()
	}

	for _, d := range targets {
		if entry, ok := r.snapshotEntry(d.field.Name); ok {
			value := copyValue(entry.value)
			d.commit(value, value)
			continue
		}
		d.unsetValue()
	}
	for _, name := range fallbackNames {
		if err := r.cfg.fallback.Unset(name); err != nil {
			return err
		}
	}
	return nil
}

// Values returns every readable attribute that currently holds a value.
func (r *Registry) Values() (map[string]any, error) {
	if err := r.requireInitialized(); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(r.order))
	for _, name := range r.order {
		d := r.descriptors[name]
		if !d.IsReadable() || !d.IsGettable() {
			continue
		}
		value, err := d.get(false)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}
