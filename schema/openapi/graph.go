package openapi

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
)

type schemaNode struct {
	Type       string
	Format     string
	Properties map[string]*schemaNode
	Required   []string
	Items      *schemaNode
	Default    any
	ReadOnly   bool
	WriteOnly  bool
	extensions map[string]any
}

func newObjectNode() *schemaNode {
	return &schemaNode{
		Type:       "object",
		Properties: map[string]*schemaNode{},
	}
}

func (n *schemaNode) baseMap() map[string]any {
	result := map[string]any{}
	if n.Type != "" {
		result["type"] = n.Type
	}
	if n.Format != "" {
		result["format"] = n.Format
	}
	if n.Default != nil {
		result["default"] = n.Default
	}
	if n.ReadOnly {
		result["readOnly"] = true
	}
	if n.WriteOnly {
		result["writeOnly"] = true
	}
	for key, value := range n.extensions {
		result[key] = value
	}
	return result
}

func (n *schemaNode) inlineOpenAPI() map[string]any {
	result := n.baseMap()

	if len(n.Properties) > 0 || n.Type == "object" {
		props := make(map[string]any, len(n.Properties))
		for _, name := range sortedNames(n.Properties) {
			props[name] = n.Properties[name].inlineOpenAPI()
		}
		result["properties"] = props
	}

	if len(n.Required) > 0 {
		result["required"] = append([]string{}, n.Required...)
	}

	if n.Items != nil {
		result["items"] = n.Items.inlineOpenAPI()
	}

	return result
}

func (n *schemaNode) setExtension(key string, value any) {
	if n.extensions == nil {
		n.extensions = map[string]any{}
	}
	n.extensions[key] = value
}

// Digest identifies structurally equal nodes so repeated shapes can be
// published once under components.
func (n *schemaNode) Digest() string {
	data, err := json.Marshal(n.inlineOpenAPI())
	if err != nil {
		return ""
	}
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// clone returns a shallow copy safe to decorate with per-attribute
// metadata without touching a shared type hint.
func (n *schemaNode) clone() *schemaNode {
	if n == nil {
		return &schemaNode{}
	}
	out := *n
	if n.extensions != nil {
		out.extensions = make(map[string]any, len(n.extensions))
		for key, value := range n.extensions {
			out.extensions[key] = value
		}
	}
	return &out
}

type schemaBuilder struct {
	visited map[reflect.Type]bool
}

func newSchemaBuilder() *schemaBuilder {
	return &schemaBuilder{
		visited: map[reflect.Type]bool{},
	}
}

// nodeForValue describes the type of sample. A nil sample yields an
// unconstrained node.
func nodeForValue(sample any) (*schemaNode, error) {
	rv := reflect.ValueOf(sample)
	if !rv.IsValid() {
		return &schemaNode{}, nil
	}
	return newSchemaBuilder().build(rv, rv.Type())
}

func (b *schemaBuilder) build(rv reflect.Value, rt reflect.Type) (*schemaNode, error) {
	for rt.Kind() == reflect.Pointer {
		if rv.IsValid() {
			if rv.IsNil() {
				rv = reflect.Value{}
			} else {
				rv = rv.Elem()
			}
		}
		rt = rt.Elem()
	}

	if rt.Kind() == reflect.Interface {
		if rv.IsValid() && !rv.IsNil() {
			return b.build(rv.Elem(), rv.Elem().Type())
		}
		return &schemaNode{}, nil
	}

	if rt == reflect.TypeOf(time.Time{}) {
		return &schemaNode{Type: "string", Format: "date-time"}, nil
	}

	switch rt.Kind() {
	case reflect.Bool:
		return &schemaNode{Type: "boolean"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return &schemaNode{Type: "integer"}, nil
	case reflect.Float32, reflect.Float64:
		return &schemaNode{Type: "number"}, nil
	case reflect.String:
		return &schemaNode{Type: "string"}, nil
	case reflect.Struct:
		return b.buildStruct(rv, rt)
	case reflect.Map:
		return b.buildMap(rv, rt)
	case reflect.Slice, reflect.Array:
		if rt.Kind() == reflect.Slice && rt.Elem().Kind() == reflect.Uint8 {
			return &schemaNode{Type: "string", Format: "byte"}, nil
		}
		return b.buildSlice(rv, rt)
	default:
		return &schemaNode{
			Type:   "string",
			Format: fmt.Sprintf("go:%s", rt.String()),
		}, nil
	}
}

func (b *schemaBuilder) buildStruct(rv reflect.Value, rt reflect.Type) (*schemaNode, error) {
	if b.visited[rt] {
		return newObjectNode(), nil
	}
	b.visited[rt] = true
	defer delete(b.visited, rt)

	node := newObjectNode()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitEmpty, skip := parseJSONName(field)
		if skip {
			continue
		}
		fieldValue := reflect.Value{}
		if rv.IsValid() {
			fieldValue = rv.Field(i)
		}
		child, err := b.build(fieldValue, field.Type)
		if err != nil {
			return nil, err
		}
		node.Properties[name] = child
		if !omitEmpty && field.Type.Kind() != reflect.Pointer {
			node.Required = append(node.Required, name)
		}
	}
	sort.Strings(node.Required)
	return node, nil
}

func (b *schemaBuilder) buildMap(rv reflect.Value, rt reflect.Type) (*schemaNode, error) {
	if rt.Key().Kind() != reflect.String {
		return nil, fmt.Errorf("openapi: map key type %s unsupported", rt.Key())
	}

	node := newObjectNode()
	if !rv.IsValid() || rv.Len() == 0 {
		return node, nil
	}
	for _, key := range rv.MapKeys() {
		value := rv.MapIndex(key)
		child, err := b.build(value, value.Type())
		if err != nil {
			return nil, err
		}
		node.Properties[key.String()] = child
	}
	return node, nil
}

func (b *schemaBuilder) buildSlice(rv reflect.Value, rt reflect.Type) (*schemaNode, error) {
	node := &schemaNode{Type: "array"}
	var elemValue reflect.Value
	if rv.IsValid() && rv.Len() > 0 {
		elemValue = rv.Index(0)
	}
	child, err := b.build(elemValue, rt.Elem())
	if err != nil {
		return nil, err
	}
	node.Items = child
	return node, nil
}

func parseJSONName(field reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name, false, false
	}

	segments := strings.Split(tag, ",")
	if segments[0] == "-" {
		return "", false, true
	}

	name = segments[0]
	if name == "" {
		name = field.Name
	}
	for _, segment := range segments[1:] {
		if segment == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func sortedNames[V any](values map[string]V) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
