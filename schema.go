package attrs

import (
	"fmt"
	"strings"
)

// Builder resolves a field definition on demand for schemas that do not list
// every attribute up front.
type Builder func(name string) (Field, bool)

// Schema is the immutable attribute table shared by every registry built
// from it. Construct it with NewSchema or ParseSchema.
type Schema struct {
	base     Mode
	fields   []Field
	index    map[string]int
	aliases  map[string]string
	builder  Builder
	required []string
}

// SchemaOption configures optional schema metadata.
type SchemaOption func(*schemaConfig)

type schemaConfig struct {
	aliases  map[string]string
	builder  Builder
	required []string
}

// WithAlias maps alias onto the canonical attribute name.
func WithAlias(alias, canonical string) SchemaOption {
	return func(cfg *schemaConfig) {
		if cfg.aliases == nil {
			cfg.aliases = make(map[string]string)
		}
		cfg.aliases[alias] = canonical
	}
}

// WithBuilder enables lazy descriptor construction for names that are not
// part of the field table.
func WithBuilder(builder Builder) SchemaOption {
	return func(cfg *schemaConfig) {
		cfg.builder = builder
	}
}

// WithRequired lists names that must be provided at initialization even
// though their descriptors are built lazily.
func WithRequired(names ...string) SchemaOption {
	return func(cfg *schemaConfig) {
		cfg.required = append(cfg.required, names...)
	}
}

// NewSchema validates fields against base and returns the schema. Fields
// with ModeInherit take the base mode.
func NewSchema(base Mode, fields []Field, opts ...SchemaOption) (*Schema, error) {
	if !base.valid() {
		return nil, fmt.Errorf("attrs: invalid base mode %s", base)
	}
	cfg := schemaConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	s := &Schema{
		base:    base,
		fields:  make([]Field, 0, len(fields)),
		index:   make(map[string]int, len(fields)),
		aliases: make(map[string]string),
		builder: cfg.builder,
	}
	for _, field := range fields {
		normalized, err := s.normalize(field)
		if err != nil {
			return nil, err
		}
		if _, exists := s.index[normalized.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAttribute, normalized.Name)
		}
		s.index[normalized.Name] = len(s.fields)
		s.fields = append(s.fields, normalized)
		for _, alias := range normalized.Aliases {
			s.aliases[alias] = normalized.Name
		}
	}
	for alias, canonical := range cfg.aliases {
		s.aliases[alias] = canonical
	}
	for alias := range s.aliases {
		if _, clash := s.index[alias]; clash {
			return nil, fmt.Errorf("%w: alias %q shadows an attribute", ErrDuplicateAttribute, alias)
		}
	}

	seen := make(map[string]struct{}, len(cfg.required))
	for _, name := range cfg.required {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		s.required = append(s.required, name)
	}
	return s, nil
}

// MustSchema is NewSchema that panics on error, for package-level tables.
func MustSchema(base Mode, fields []Field, opts ...SchemaOption) *Schema {
	s, err := NewSchema(base, fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) normalize(field Field) (Field, error) {
	field.Name = strings.TrimSpace(field.Name)
	if field.Name == "" {
		return Field{}, fmt.Errorf("attrs: attribute name must not be empty")
	}
	if field.Mode == ModeInherit {
		field.Mode = s.base
	}
	if !s.base.Permits(field.Mode) {
		return Field{}, fmt.Errorf("%w: %q is %s under base %s", ErrIncompatibleMode, field.Name, field.Mode, s.base)
	}
	if len(field.Aliases) > 0 {
		field.Aliases = append([]string(nil), field.Aliases...)
	}
	return field, nil
}

// Base returns the schema base mode.
func (s *Schema) Base() Mode { return s.base }

// Fields returns a copy of the declared field table.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the declared field for name or one of its aliases.
func (s *Schema) Field(name string) (Field, bool) {
	idx, ok := s.index[s.Canonical(name)]
	if !ok {
		return Field{}, false
	}
	return s.fields[idx], true
}

// Canonical resolves an alias to its attribute name. Unknown names are
// returned unchanged.
func (s *Schema) Canonical(name string) string {
	if canonical, ok := s.aliases[name]; ok {
		return canonical
	}
	return name
}

// Lazy reports whether the schema builds descriptors on demand.
func (s *Schema) Lazy() bool { return s.builder != nil }

// build resolves name through the builder and validates the result.
func (s *Schema) build(name string) (Field, bool, error) {
	if s.builder == nil {
		return Field{}, false, nil
	}
	field, ok := s.builder(name)
	if !ok {
		return Field{}, false, nil
	}
	if field.Name == "" {
		field.Name = name
	}
	if field.Name != name {
		return Field{}, false, fmt.Errorf("attrs: builder returned %q for %q", field.Name, name)
	}
	normalized, err := s.normalize(field)
	if err != nil {
		return Field{}, false, err
	}
	return normalized, true, nil
}

func (s *Schema) requiresName(name string) bool {
	for _, candidate := range s.required {
		if candidate == name {
			return true
		}
	}
	return false
}

// RequiredNames lists the explicit required names first, then the flagged
// fields, in declaration order.
func (s *Schema) RequiredNames() []string {
	out := append([]string(nil), s.required...)
	for _, field := range s.fields {
		if field.Flags.Has(Required) && !s.requiresName(field.Name) {
			out = append(out, field.Name)
		}
	}
	return out
}
