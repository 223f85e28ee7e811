package openapi

import (
	"fmt"
	"reflect"
	"strings"

	attrs "github.com/goliatone/go-attributes"
)

// Generator describes attribute schemas as OpenAPI 3 documents.
type Generator struct {
	config generatorConfig
}

// NewGenerator constructs a generator.
func NewGenerator(opts ...GeneratorOption) *Generator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Generator{config: cfg}
}

// Generate returns a full OpenAPI document whose request body is the
// attribute object of schema.
func (g *Generator) Generate(schema *attrs.Schema) (map[string]any, error) {
	root, err := g.rootNode(schema)
	if err != nil {
		return nil, err
	}
	return newDocumentBuilder(g.config.document, newComponentRegistry(), root).build()
}

// Component returns the inline object schema for schema, suitable for
// embedding under components.schemas of another document.
func (g *Generator) Component(schema *attrs.Schema) (map[string]any, error) {
	root, err := g.rootNode(schema)
	if err != nil {
		return nil, err
	}
	return root.inlineOpenAPI(), nil
}

func (g *Generator) rootNode(schema *attrs.Schema) (*schemaNode, error) {
	if schema == nil {
		return nil, fmt.Errorf("openapi: schema cannot be nil")
	}
	root := newObjectNode()
	for _, field := range schema.Fields() {
		node, err := g.fieldNode(field)
		if err != nil {
			return nil, fmt.Errorf("openapi: attribute %q: %w", field.Name, err)
		}
		root.Properties[field.Name] = node
	}
	for _, name := range schema.RequiredNames() {
		field, ok := schema.Field(name)
		if ok && (field.Flags.Has(attrs.Automatic) || field.Flags.Has(attrs.AutoImmutable)) {
			continue
		}
		if _, ok := root.Properties[name]; !ok {
			node, err := g.hintNode(name, nil)
			if err != nil {
				return nil, fmt.Errorf("openapi: attribute %q: %w", name, err)
			}
			root.Properties[name] = node
		}
		root.Required = append(root.Required, name)
	}
	if schema.Lazy() {
		root.setExtension("additionalProperties", true)
	}
	return root, nil
}

func (g *Generator) fieldNode(field attrs.Field) (*schemaNode, error) {
	var sample any
	if field.Default != nil {
		sample = field.Default()
	}
	node, err := g.hintNode(field.Name, sample)
	if err != nil {
		return nil, err
	}

	if stableDefault(field.Default, sample) {
		node.Default = sample
	}
	switch field.Mode {
	case attrs.ModeStrictReadOnly, attrs.ModeReadOnly:
		node.ReadOnly = true
	case attrs.ModeWriteOnly, attrs.ModeWriteOnceTransient:
		node.WriteOnly = true
	}
	if field.Flags.Has(attrs.Automatic) || field.Flags.Has(attrs.AutoImmutable) {
		node.ReadOnly = true
	}

	meta := map[string]any{"mode": field.Mode.String()}
	if field.Flags != 0 {
		meta["flags"] = strings.Split(field.Flags.String(), "|")
	}
	if len(field.Aliases) > 0 {
		meta["aliases"] = append([]string{}, field.Aliases...)
	}
	node.setExtension(g.config.attributes.extensionKey, meta)
	return node, nil
}

// hintNode prefers a configured type hint over the default value sample.
func (g *Generator) hintNode(name string, sample any) (*schemaNode, error) {
	if hint, ok := g.config.attributes.hints[name]; ok {
		sample = hint
	}
	node, err := nodeForValue(sample)
	if err != nil {
		return nil, err
	}
	return node.clone(), nil
}

// stableDefault reports whether the provider yields the same value on every
// call, so generated ids are not published as defaults.
func stableDefault(provider attrs.DefaultFunc, sample any) bool {
	if provider == nil || sample == nil {
		return false
	}
	return reflect.DeepEqual(sample, provider())
}
