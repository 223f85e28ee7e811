package attrs

type snapshotEntry struct {
	value any
	key   uint64
}

// snapshot is the last known persisted state. A nil snapshot means the
// registry was never persisted, or was unpersisted since.
type snapshot map[string]snapshotEntry

// capture records every non-volatile attribute holding a value, evaluating
// pending lazy cells.
func (r *Registry) capture() error {
	snap := make(snapshot, len(r.order))
	for _, name := range r.order {
		d := r.descriptors[name]
		if d.IsVolatile() || !d.IsGettable() {
			continue
		}
		value, err := d.get(false)
		if err != nil {
			return err
		}
		snap[name] = snapshotEntry{value: copyValue(value), key: comparisonKey(value)}
	}
	r.snapshot = snap
	return nil
}

// remember adds the current value of d to an existing snapshot. Descriptors
// built after persistence start from their default, which is not a change.
func (r *Registry) remember(d *Descriptor) {
	if r.snapshot == nil || d.IsVolatile() || !d.IsGettable() {
		return
	}
	value, err := d.get(false)
	if err != nil {
		return
	}
	r.snapshot[d.Name()] = snapshotEntry{value: copyValue(value), key: comparisonKey(value)}
}

func (r *Registry) snapshotEntry(name string) (snapshotEntry, bool) {
	if r.snapshot == nil {
		return snapshotEntry{}, false
	}
	entry, ok := r.snapshot[name]
	return entry, ok
}

// SnapshotValue returns a copy of the last persisted value of name.
func (r *Registry) SnapshotValue(name string) (any, bool) {
	entry, ok := r.snapshotEntry(r.schema.Canonical(name))
	if !ok {
		return nil, false
	}
	return copyValue(entry.value), true
}

// ChangeMap lists, in declaration order, the attributes whose value differs
// from the snapshot. Without a snapshot every attribute holding a non-nil
// value counts as changed. Volatile attributes are never reported. With no
// names every attribute is checked.
func (r *Registry) ChangeMap(names ...string) ([]string, error) {
	if err := r.requireInitialized(); err != nil {
		return nil, err
	}
	candidates := r.order
	if len(names) > 0 {
		var batch errorBatch
		wanted := make(map[string]struct{}, len(names))
		for _, name := range names {
			canonical, d, err := r.lookup(name)
			if err != nil {
				return nil, err
			}
			if d == nil {
				batch.add(ErrUndefinedAttribute, canonical)
				continue
			}
			wanted[canonical] = struct{}{}
		}
		if !batch.empty() {
			return nil, batch.err()
		}
		candidates = make([]string, 0, len(wanted))
		for _, name := range r.order {
			if _, ok := wanted[name]; ok {
				candidates = append(candidates, name)
			}
		}
	}

	var changed []string
	for _, name := range candidates {
		d := r.descriptors[name]
		if d.IsVolatile() {
			continue
		}
		var current any
		if d.IsGettable() {
			value, err := d.get(false)
			if err != nil {
				return nil, err
			}
			current = value
		}
		if r.snapshot == nil {
			if current != nil {
				changed = append(changed, name)
			}
			continue
		}
		previous := nullKey
		if entry, ok := r.snapshot[name]; ok {
			previous = entry.key
		}
		if comparisonKey(current) != previous {
			changed = append(changed, name)
		}
	}
	return changed, nil
}
