package attrs

import (
	"context"
	"errors"
	"reflect"
	"time"

	"github.com/goliatone/go-attributes/pkg/activity"
)

// Inserter stores values for the first time and returns what the store
// assigned, typically automatic attributes such as ids.
type Inserter func(ctx context.Context, values map[string]any) (map[string]any, error)

// Updater stores new over old. changed lists the names that differ from the
// last persisted state.
type Updater func(ctx context.Context, old, new map[string]any, changed []string) (map[string]any, error)

// Deleter removes the stored values.
type Deleter func(ctx context.Context, values map[string]any) error

// Loader reads the stored values back.
type Loader func(ctx context.Context) (map[string]any, error)

// Persistable is implemented by owners, or attribute values, that manage
// their own persistence. Recursive operations visit them depth first.
type Persistable interface {
	Persist(ctx context.Context) error
	Unpersist(ctx context.Context) error
}

// ErrMissingCollaborator is returned when the collaborator needed for the
// current phase was not supplied.
var ErrMissingCollaborator = errors.New("attrs: persistence collaborator is required")

const (
	opInsert = "insert"
	opUpdate = "update"
	opDelete = "delete"
	opReload = "reload"
)

// PersistOption configures Persist and Unpersist.
type PersistOption func(*persistConfig)

type persistConfig struct {
	changesOnly bool
	recursive   bool
}

// ChangesOnly restricts the old and new maps handed to the updater to the
// changed names.
func ChangesOnly() PersistOption {
	return func(cfg *persistConfig) {
		cfg.changesOnly = true
	}
}

// Recursive persists nested Persistable values before the registry itself,
// and unpersists them after it.
func Recursive() PersistOption {
	return func(cfg *persistConfig) {
		cfg.recursive = true
	}
}

func persistOptions(opts []PersistOption) persistConfig {
	cfg := persistConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Persist writes pending changes through ins on first persistence and upd
// afterwards. With nothing changed it returns without calling anything.
// Collaborator and hook errors are returned unchanged.
func (r *Registry) Persist(ctx context.Context, ins Inserter, upd Updater, opts ...PersistOption) error {
	if err := r.requireInitialized(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := persistOptions(opts)

	if cfg.recursive {
		for _, child := range r.nested() {
			if err := child.Persist(ctx); err != nil {
				return err
			}
		}
	}

	changed, err := r.ChangeMap()
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		r.cfg.logger.Debug().Str("owner", r.ownerLabel()).Msg("attributes unchanged, nothing to persist")
		return nil
	}

	op := opUpdate
	if !r.IsPersisted() {
		op = opInsert
	}
	start := time.Now()
	err = r.persist(ctx, op, changed, ins, upd, cfg)
	r.cfg.recorder.Observe(op, time.Since(start), err)
	if err != nil {
		r.cfg.logger.Debug().Str("owner", r.ownerLabel()).Str("op", op).Err(err).Msg("attributes persist failed")
		return err
	}
	r.cfg.logger.Debug().
		Str("owner", r.ownerLabel()).
		Str("op", op).
		Strs("changed", changed).
		Msg("attributes persisted")
	return nil
}

func (r *Registry) persist(ctx context.Context, op string, changed []string, ins Inserter, upd Updater, cfg persistConfig) error {
	before := r.snapshotValues(changed)
	after, err := r.liveValues(changed)
	if err != nil {
		return err
	}
	if err := runHooks(ctx, r.cfg.hooks.pre, changed, before, after); err != nil {
		return err
	}

	var result map[string]any
	switch op {
	case opInsert:
		if ins == nil {
			return ErrMissingCollaborator
		}
		values, err := r.storageValues(nil)
		if err != nil {
			return err
		}
		result, err = ins(ctx, values)
		if err != nil {
			return err
		}
		if err := r.checkAutomatic(result); err != nil {
			return err
		}
	default:
		if upd == nil {
			return ErrMissingCollaborator
		}
		var names []string
		if cfg.changesOnly {
			names = changed
		}
		oldValues := r.snapshotStorageValues(names)
		newValues, err := r.storageValues(names)
		if err != nil {
			return err
		}
		result, err = upd(ctx, oldValues, newValues, append([]string(nil), changed...))
		if err != nil {
			return err
		}
	}

	// The store already holds the write, so a rejected result still leaves
	// the registry persisted with what was sent; Reload resynchronizes it.
	applied, applyErr := r.apply(result, op == opInsert)
	if op == opInsert {
		if err := r.life.fire(eventPersist); err != nil {
			return err
		}
	}
	if err := r.capture(); err != nil {
		return err
	}
	if applyErr != nil {
		return applyErr
	}

	touched := mergeNames(r.order, changed, applied)
	after, err = r.liveValues(touched)
	if err != nil {
		return err
	}
	if err := runHooks(ctx, r.cfg.hooks.post, touched, before, after); err != nil {
		return err
	}

	build := activity.BuildUpdatedEvent
	if op == opInsert {
		build = activity.BuildInsertedEvent
	}
	return r.emit(ctx, build, activity.AttributeEventInput{
		Changed:   touched,
		OldValues: before,
		NewValues: storageMap(after),
	})
}

// checkAutomatic requires the insert result to provide every automatic
// attribute that has no value yet.
func (r *Registry) checkAutomatic(result map[string]any) error {
	provided := make(map[string]struct{}, len(result))
	for name := range result {
		provided[r.schema.Canonical(name)] = struct{}{}
	}
	var batch errorBatch
	for _, name := range r.order {
		d := r.descriptors[name]
		if !d.IsAutomatic() || d.IsGettable() {
			continue
		}
		if _, ok := provided[name]; !ok {
			batch.add(ErrMissingAutomatic, name)
		}
	}
	return batch.err()
}

// apply writes a collaborator result with forced validation. Unknown and
// volatile names are skipped, as are StrictReadOnly and AutoImmutable ones
// unless an insert supplies them as automatic values. Every entry is
// validated before any is committed.
func (r *Registry) apply(result map[string]any, insert bool) ([]string, error) {
	type pending struct {
		d          *Descriptor
		raw, value any
	}
	var batch errorBatch
	var commits []pending
	var applied []string
	for _, name := range sortedKeys(result) {
		canonical, d, err := r.lookup(name)
		if err != nil {
			return nil, err
		}
		if !storeWritable(d, insert) {
			continue
		}
		value, err := d.coerce(result[name])
		if err != nil {
			batch.addInvalid(canonical, result[name], err)
			continue
		}
		commits = append(commits, pending{d: d, raw: result[name], value: value})
		applied = append(applied, canonical)
	}
	if err := batch.err(); err != nil {
		return nil, err
	}
	for _, c := range commits {
		c.d.commit(c.raw, c.value)
	}
	return applied, nil
}

func storeWritable(d *Descriptor, insert bool) bool {
	if d == nil || d.IsVolatile() {
		return false
	}
	if d.Mode() == ModeStrictReadOnly || d.IsAutoImmutable() {
		return insert && d.IsAutomatic()
	}
	return true
}

// Unpersist deletes the stored values through del. Automatic attributes are
// reset and the snapshot is dropped. It does nothing when the registry is not
// persisted.
func (r *Registry) Unpersist(ctx context.Context, del Deleter, opts ...PersistOption) error {
	if err := r.requireInitialized(); err != nil {
		return err
	}
	if !r.IsPersisted() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if del == nil {
		return ErrMissingCollaborator
	}
	cfg := persistOptions(opts)

	start := time.Now()
	err := r.unpersist(ctx, del, cfg)
	r.cfg.recorder.Observe(opDelete, time.Since(start), err)
	if err != nil {
		r.cfg.logger.Debug().Str("owner", r.ownerLabel()).Str("op", opDelete).Err(err).Msg("attributes unpersist failed")
		return err
	}
	r.cfg.logger.Debug().Str("owner", r.ownerLabel()).Str("op", opDelete).Msg("attributes unpersisted")
	return nil
}

func (r *Registry) unpersist(ctx context.Context, del Deleter, cfg persistConfig) error {
	values, err := r.storageValues(nil)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(values))
	for _, name := range r.order {
		if _, ok := values[name]; ok {
			names = append(names, name)
		}
	}
	var children []Persistable
	if cfg.recursive {
		children = r.nested()
	}

	if err := runHooks(ctx, r.cfg.hooks.pre, names, values, nil); err != nil {
		return err
	}
	if err := del(ctx, values); err != nil {
		return err
	}
	for _, name := range r.order {
		if d := r.descriptors[name]; d.IsAutomatic() {
			d.reset()
		}
	}
	if err := r.life.fire(eventUnpersist); err != nil {
		return err
	}
	r.snapshot = nil

	if err := runHooks(ctx, r.cfg.hooks.post, names, values, nil); err != nil {
		return err
	}
	for _, child := range children {
		if err := child.Unpersist(ctx); err != nil {
			return err
		}
	}
	return r.emit(ctx, activity.BuildDeletedEvent, activity.AttributeEventInput{
		Changed:   names,
		OldValues: values,
	})
}

// Reload replaces the values with what loader returns and records them as
// the persisted state. It does nothing when the registry is not persisted.
func (r *Registry) Reload(ctx context.Context, loader Loader) error {
	if err := r.requireInitialized(); err != nil {
		return err
	}
	if !r.IsPersisted() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if loader == nil {
		return ErrMissingCollaborator
	}

	start := time.Now()
	err := r.reload(ctx, loader)
	r.cfg.recorder.Observe(opReload, time.Since(start), err)
	if err != nil {
		r.cfg.logger.Debug().Str("owner", r.ownerLabel()).Str("op", opReload).Err(err).Msg("attributes reload failed")
		return err
	}
	r.cfg.logger.Debug().Str("owner", r.ownerLabel()).Str("op", opReload).Msg("attributes reloaded")
	return nil
}

func (r *Registry) reload(ctx context.Context, loader Loader) error {
	result, err := loader(ctx)
	if err != nil {
		return err
	}
	applied, err := r.apply(result, false)
	if err != nil {
		return err
	}
	if err := r.capture(); err != nil {
		return err
	}
	return r.emit(ctx, activity.BuildReloadedEvent, activity.AttributeEventInput{Changed: applied})
}

// storageValues returns the non-volatile values holding a value, restricted
// to names when given, in the form handed to collaborators.
func (r *Registry) storageValues(names []string) (map[string]any, error) {
	values, err := r.liveValues(r.trackedNames(names))
	if err != nil {
		return nil, err
	}
	return storageMap(values), nil
}

func (r *Registry) liveValues(names []string) (map[string]any, error) {
	out := make(map[string]any, len(names))
	for _, name := range names {
		d, ok := r.descriptors[name]
		if !ok || !d.IsGettable() {
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

func (r *Registry) snapshotValues(names []string) map[string]any {
	out := make(map[string]any, len(names))
	for _, name := range names {
		if entry, ok := r.snapshotEntry(name); ok {
			out[name] = copyValue(entry.value)
		}
	}
	return out
}

func (r *Registry) snapshotStorageValues(names []string) map[string]any {
	if names == nil {
		names = r.trackedNames(nil)
	}
	return storageMap(r.snapshotValues(names))
}

// trackedNames filters names, or every attribute when names is nil, down to
// the non-volatile ones.
func (r *Registry) trackedNames(names []string) []string {
	if names == nil {
		names = r.order
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		d, ok := r.descriptors[name]
		if !ok || d.IsVolatile() {
			continue
		}
		out = append(out, name)
	}
	return out
}

// nested collects Persistable attribute values, including elements of slices,
// arrays and maps.
func (r *Registry) nested() []Persistable {
	var out []Persistable
	for _, name := range r.trackedNames(nil) {
		d := r.descriptors[name]
		if !d.IsGettable() {
			continue
		}
		value, err := d.get(true)
		if err != nil || value == nil {
			continue
		}
		out = appendPersistable(out, value)
	}
	return out
}

func appendPersistable(out []Persistable, value any) []Persistable {
	if value == nil {
		return out
	}
	rv := reflect.ValueOf(value)
	if isNilValue(rv) {
		return out
	}
	if p, ok := value.(Persistable); ok {
		return append(out, p)
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			out = appendPersistable(out, rv.Index(i).Interface())
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			out = appendPersistable(out, iter.Value().Interface())
		}
	}
	return out
}

func storageMap(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for name, value := range values {
		out[name] = storageValue(value)
	}
	return out
}

// mergeNames returns the union of the given name lists in the order of
// reference.
func mergeNames(reference []string, lists ...[]string) []string {
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, name := range list {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for _, name := range reference {
		if _, ok := seen[name]; ok {
			out = append(out, name)
		}
	}
	return out
}
