package openapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const componentsPrefix = "#/components/schemas/"

type documentBuilder struct {
	doc        documentConfig
	components *componentRegistry
	root       *schemaNode
	body       map[string]any
}

func newDocumentBuilder(doc documentConfig, components *componentRegistry, root *schemaNode) *documentBuilder {
	return &documentBuilder{doc: doc, components: components, root: root}
}

// build assembles the document: a single operation whose request body, and
// every response marked with a body, is the attribute object.
func (b *documentBuilder) build() (map[string]any, error) {
	if b.root == nil {
		return nil, fmt.Errorf("openapi: root schema node cannot be nil")
	}
	b.body = b.rootSchema()

	method := b.method()
	document := map[string]any{
		"openapi": b.doc.version,
		"info":    b.info(),
		"paths": map[string]any{
			b.doc.path: map[string]any{method: b.operation(method)},
		},
	}
	if schemas := b.components.componentsMap(); schemas != nil {
		document["components"] = map[string]any{"schemas": schemas}
	}
	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func (b *documentBuilder) rootSchema() map[string]any {
	name := strings.TrimSpace(b.doc.root)
	if name == "" {
		return b.schemaFor(b.root, "Attributes")
	}
	ref := b.components.forceReference(name, b.root)
	for _, key := range sortedNames(b.root.Properties) {
		b.schemaFor(b.root.Properties[key], combineComponentName(name, key))
	}
	return map[string]any{"$ref": ref}
}

func (b *documentBuilder) info() map[string]any {
	info := map[string]any{
		"title":   b.doc.title,
		"version": b.doc.release,
	}
	if b.doc.description != "" {
		info["description"] = b.doc.description
	}
	return info
}

func (b *documentBuilder) method() string {
	if method := strings.ToLower(strings.TrimSpace(b.doc.method)); method != "" {
		return method
	}
	return "post"
}

func (b *documentBuilder) content() map[string]any {
	return map[string]any{b.doc.contentType: map[string]any{"schema": b.body}}
}

func (b *documentBuilder) operation(method string) map[string]any {
	operationID := b.doc.operationID
	if operationID == "" {
		operationID = method + ":" + b.doc.path
	}

	statuses := make([]string, 0, len(b.doc.responses))
	for status := range b.doc.responses {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	responses := make(map[string]any, len(statuses))
	for _, status := range statuses {
		resp := b.doc.responses[status]
		entry := map[string]any{"description": resp.description}
		if resp.body {
			entry["content"] = b.content()
		}
		responses[status] = entry
	}

	operation := map[string]any{
		"operationId": operationID,
		"requestBody": map[string]any{"required": true, "content": b.content()},
		"responses":   responses,
	}
	if summary := strings.TrimSpace(b.doc.summary); summary != "" {
		operation["summary"] = summary
	}
	return operation
}

// schemaFor renders node, publishing object and array shapes seen more than
// once as components.
func (b *documentBuilder) schemaFor(node *schemaNode, nameHint string) map[string]any {
	if node == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	if node.Type == "object" || node.Type == "array" {
		if ref := b.components.register(nameHint, node); ref != "" {
			return map[string]any{"$ref": ref}
		}
	}

	out := node.baseMap()
	if node.Type == "object" || len(node.Properties) > 0 {
		props := make(map[string]any, len(node.Properties))
		for _, key := range sortedNames(node.Properties) {
			props[key] = b.schemaFor(node.Properties[key], combineComponentName(nameHint, key))
		}
		out["properties"] = props
	}
	if len(node.Required) > 0 {
		out["required"] = append([]string(nil), node.Required...)
	}
	if node.Items != nil {
		out["items"] = b.schemaFor(node.Items, combineComponentName(nameHint, "item"))
	}
	return out
}

func combineComponentName(parts ...string) string {
	kept := parts[:0:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	if len(kept) == 0 {
		return "Schema"
	}
	return strings.Join(kept, "_")
}

// validateDocument reports every structural problem of document at once.
func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document cannot be nil")
	}
	var errs []error
	if version, _ := document["openapi"].(string); version == "" {
		errs = append(errs, fmt.Errorf("openapi: document missing version string"))
	}
	info, _ := document["info"].(map[string]any)
	if title, _ := info["title"].(string); title == "" {
		errs = append(errs, fmt.Errorf("openapi: info.title must be set"))
	}
	if version, _ := info["version"].(string); version == "" {
		errs = append(errs, fmt.Errorf("openapi: info.version must be set"))
	}

	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		errs = append(errs, fmt.Errorf("openapi: document must define at least one path"))
	}
	for _, path := range sortedNames(paths) {
		if strings.TrimSpace(path) == "" || !strings.HasPrefix(path, "/") {
			errs = append(errs, fmt.Errorf("openapi: path %q must start with /", path))
		}
		item, _ := paths[path].(map[string]any)
		if len(item) == 0 {
			errs = append(errs, fmt.Errorf("openapi: path %q missing operations", path))
			continue
		}
		for _, method := range sortedNames(item) {
			operation, _ := item[method].(map[string]any)
			if id, _ := operation["operationId"].(string); id == "" {
				errs = append(errs, fmt.Errorf("openapi: operation %s %s missing operationId", method, path))
			}
			body, _ := operation["requestBody"].(map[string]any)
			if content, _ := body["content"].(map[string]any); len(content) == 0 {
				errs = append(errs, fmt.Errorf("openapi: operation %s %s requestBody missing content", method, path))
			}
			if responses, _ := operation["responses"].(map[string]any); len(responses) == 0 {
				errs = append(errs, fmt.Errorf("openapi: operation %s %s missing responses", method, path))
			}
		}
	}
	return errors.Join(errs...)
}
