package attrs

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SchemaDocument is the YAML form of a schema.
type SchemaDocument struct {
	Base       string            `yaml:"base"`
	Required   []string          `yaml:"required,omitempty"`
	Aliases    map[string]string `yaml:"aliases,omitempty"`
	Attributes []FieldDocument   `yaml:"attributes"`
}

// FieldDocument is the YAML form of a single attribute.
type FieldDocument struct {
	Name        string         `yaml:"name"`
	Mode        string         `yaml:"mode,omitempty"`
	Flags       []string       `yaml:"flags,omitempty"`
	Aliases     []string       `yaml:"aliases,omitempty"`
	Default     any            `yaml:"default,omitempty"`
	DefaultUUID bool           `yaml:"default_uuid,omitempty"`
	Engine      string         `yaml:"engine,omitempty"`
	Rule        string         `yaml:"rule,omitempty"`
	Rules       []string       `yaml:"rules,omitempty"`
	Args        map[string]any `yaml:"args,omitempty"`
	Metadata    map[string]any `yaml:"metadata,omitempty"`
}

// ParseOption configures ParseSchema.
type ParseOption func(*parseConfig)

type parseConfig struct {
	evaluators map[string]Evaluator
	logger     EvaluatorLogger
	schemaOpts []SchemaOption
}

// WithEngine registers the evaluator used for fields declaring engine name.
// The built-in names are expr, cel and js.
func WithEngine(name string, evaluator Evaluator) ParseOption {
	return func(cfg *parseConfig) {
		cfg.evaluators[strings.ToLower(strings.TrimSpace(name))] = evaluator
	}
}

// WithRuleEvaluationLogger attaches logger to every rule of the schema.
func WithRuleEvaluationLogger(logger EvaluatorLogger) ParseOption {
	return func(cfg *parseConfig) {
		cfg.logger = logger
	}
}

// WithSchemaOptions forwards opts to NewSchema, for instance a Builder.
func WithSchemaOptions(opts ...SchemaOption) ParseOption {
	return func(cfg *parseConfig) {
		cfg.schemaOpts = append(cfg.schemaOpts, opts...)
	}
}

// ParseSchemaFile reads and parses a YAML schema from path.
func ParseSchemaFile(path string, opts ...ParseOption) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("attrs: read schema %s: %w", path, err)
	}
	return ParseSchema(data, opts...)
}

// ParseSchema builds a Schema from its YAML document. Rules are compiled
// eagerly so a broken expression fails here rather than on first write.
func ParseSchema(data []byte, opts ...ParseOption) (*Schema, error) {
	var doc SchemaDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("attrs: parse schema yaml: %w", err)
	}
	return doc.Schema(opts...)
}

// Schema converts the document into a validated Schema.
func (doc SchemaDocument) Schema(opts ...ParseOption) (*Schema, error) {
	cfg := parseConfig{evaluators: make(map[string]Evaluator)}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	base := ModeReadWrite
	if strings.TrimSpace(doc.Base) != "" {
		parsed, err := ParseMode(doc.Base)
		if err != nil {
			return nil, err
		}
		base = parsed
	}

	fields := make([]Field, 0, len(doc.Attributes))
	for _, entry := range doc.Attributes {
		field, err := entry.field(&cfg)
		if err != nil {
			return nil, fmt.Errorf("attrs: attribute %q: %w", entry.Name, err)
		}
		fields = append(fields, field)
	}

	schemaOpts := append([]SchemaOption(nil), cfg.schemaOpts...)
	for _, alias := range sortedKeys(doc.Aliases) {
		schemaOpts = append(schemaOpts, WithAlias(alias, doc.Aliases[alias]))
	}
	if len(doc.Required) > 0 {
		schemaOpts = append(schemaOpts, WithRequired(doc.Required...))
	}
	return NewSchema(base, fields, schemaOpts...)
}

func (entry FieldDocument) field(cfg *parseConfig) (Field, error) {
	field := Field{
		Name:    entry.Name,
		Aliases: entry.Aliases,
	}
	if strings.TrimSpace(entry.Mode) != "" {
		mode, err := ParseMode(entry.Mode)
		if err != nil {
			return Field{}, err
		}
		field.Mode = mode
	}
	flags, err := ParseFlags(entry.Flags...)
	if err != nil {
		return Field{}, err
	}
	field.Flags = flags

	switch {
	case entry.DefaultUUID && entry.Default != nil:
		return Field{}, fmt.Errorf("default and default_uuid are exclusive")
	case entry.DefaultUUID:
		field.Default = UUIDDefault()
	case entry.Default != nil:
		value := entry.Default
		field.Default = func() any { return copyValue(value) }
	}

	expressions := entry.Rules
	if strings.TrimSpace(entry.Rule) != "" {
		expressions = append([]string{entry.Rule}, expressions...)
	}
	if len(expressions) == 0 {
		return field, nil
	}
	evaluator, err := cfg.evaluator(entry.Engine)
	if err != nil {
		return Field{}, err
	}
	validators := make([]Validator, 0, len(expressions))
	for _, expression := range expressions {
		validator, err := Rule(evaluator, expression,
			RuleName(entry.Name),
			RuleArgs(entry.Args),
			RuleMetadata(entry.Metadata),
			RuleLogger(cfg.logger),
		)
		if err != nil {
			return Field{}, err
		}
		validators = append(validators, validator)
	}
	if len(validators) == 1 {
		field.Validator = validators[0]
	} else {
		field.Validator = Chain(validators...)
	}
	return field, nil
}

// evaluator resolves an engine name, creating and memoizing the built-in
// evaluators so every rule of a schema shares one program cache.
func (cfg *parseConfig) evaluator(engine string) (Evaluator, error) {
	name := strings.ToLower(strings.TrimSpace(engine))
	if name == "" {
		name = "expr"
	}
	if evaluator, ok := cfg.evaluators[name]; ok && evaluator != nil {
		return evaluator, nil
	}
	var evaluator Evaluator
	switch name {
	case "expr":
		evaluator = DefaultEvaluator()
	case "cel":
		evaluator = NewCELEvaluator(
			CELWithProgramCache(NewProgramCache()),
			CELWithFunctionRegistry(StandardFunctions()),
		)
	case "js", "javascript":
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("js engine requires the js_eval build tag")
		}
		evaluator = NewJSEvaluator(JSWithFunctionRegistry(StandardFunctions()))
	default:
		return nil, fmt.Errorf("unknown rule engine %q", engine)
	}
	cfg.evaluators[name] = evaluator
	return evaluator, nil
}
