package attrs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrMissingRequired    = errors.New("attrs: missing required attributes")
	ErrUndefinedAttribute = errors.New("attrs: undefined attributes")
	ErrInaccessible       = errors.New("attrs: inaccessible attributes")
	ErrUnreadable         = errors.New("attrs: unreadable attributes")
	ErrUnwriteable        = errors.New("attrs: unwriteable attributes")
	// ErrUnunsettable matches ErrUnwriteable through errors.Is.
	ErrUnunsettable       = fmt.Errorf("attrs: ununsettable attributes: %w", ErrUnwriteable)
	ErrInvalidValue       = errors.New("attrs: invalid attribute values")
	ErrMissingAutomatic   = errors.New("attrs: missing automatic attributes")
	ErrAlreadyInitialized = errors.New("attrs: already initialized")
	ErrNotYetInitialized  = errors.New("attrs: not yet initialized")

	ErrIncompatibleMode   = errors.New("attrs: attribute mode incompatible with base mode")
	ErrDuplicateAttribute = errors.New("attrs: duplicate attribute")
	ErrInconsistentValue  = errors.New("attrs: accepted value failed re-evaluation")
)

// AttributeError reports a batch of attribute names rejected for the same
// reason. Kind is one of the package sentinels; Causes holds the original
// per-name errors (validator failures) when there are any.
type AttributeError struct {
	Kind   error
	Names  []string
	Values map[string]any
	Causes map[string]error
	Scope  string
}

func (e *AttributeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	} else {
		b.WriteString("attrs: attribute error")
	}
	if e.Scope != "" {
		fmt.Fprintf(&b, " (scope=%s)", e.Scope)
	}
	if len(e.Names) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Names, ", "))
	}
	if len(e.Causes) > 0 {
		names := make([]string, 0, len(e.Causes))
		for name := range e.Causes {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s: %v", name, e.Causes[name]))
		}
		b.WriteString(" [")
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString("]")
	}
	return b.String()
}

// Unwrap exposes the kind sentinel followed by every per-name cause.
func (e *AttributeError) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, len(e.Causes)+1)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	for _, name := range e.Names {
		if cause := e.Causes[name]; cause != nil {
			out = append(out, cause)
		}
	}
	return out
}

// Has reports whether name is part of the batch.
func (e *AttributeError) Has(name string) bool {
	if e == nil {
		return false
	}
	for _, candidate := range e.Names {
		if candidate == name {
			return true
		}
	}
	return false
}

// errorBatch collects offending names per kind, preserving first-seen order.
type errorBatch struct {
	kinds  []error
	byKind map[error]*AttributeError
}

func (b *errorBatch) entry(kind error, scope string) *AttributeError {
	if b.byKind == nil {
		b.byKind = make(map[error]*AttributeError)
	}
	entry, ok := b.byKind[kind]
	if !ok {
		entry = &AttributeError{Kind: kind, Scope: scope}
		b.byKind[kind] = entry
		b.kinds = append(b.kinds, kind)
	}
	return entry
}

func (b *errorBatch) add(kind error, name string) {
	entry := b.entry(kind, "")
	if entry.Has(name) {
		return
	}
	entry.Names = append(entry.Names, name)
}

func (b *errorBatch) addScoped(kind error, name, scope string) {
	entry := b.entry(kind, scope)
	if entry.Has(name) {
		return
	}
	entry.Names = append(entry.Names, name)
}

func (b *errorBatch) addInvalid(name string, value any, cause error) {
	entry := b.entry(ErrInvalidValue, "")
	if entry.Has(name) {
		return
	}
	entry.Names = append(entry.Names, name)
	if entry.Values == nil {
		entry.Values = make(map[string]any)
	}
	entry.Values[name] = value
	if cause != nil {
		if entry.Causes == nil {
			entry.Causes = make(map[string]error)
		}
		entry.Causes[name] = cause
	}
}

func (b *errorBatch) empty() bool {
	return len(b.kinds) == 0
}

func (b *errorBatch) err() error {
	switch len(b.kinds) {
	case 0:
		return nil
	case 1:
		return b.byKind[b.kinds[0]]
	}
	errs := make([]error, 0, len(b.kinds))
	for _, kind := range b.kinds {
		errs = append(errs, b.byKind[kind])
	}
	return errors.Join(errs...)
}

func newAttributeError(kind error, names ...string) *AttributeError {
	return &AttributeError{Kind: kind, Names: names}
}
