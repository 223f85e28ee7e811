package openapi

import (
	"fmt"
	"regexp"
	"strings"
)

// componentRegistry deduplicates schema shapes by digest. A shape becomes a
// component once it is seen twice, or at once when forced.
type componentRegistry struct {
	byDigest map[string]*component
	names    map[string]struct{}
}

type component struct {
	name   string
	node   *schemaNode
	seen   int
	forced bool
}

func (c *component) published() bool { return c.forced || c.seen > 1 }

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{
		byDigest: map[string]*component{},
		names:    map[string]struct{}{},
	}
}

// register returns a $ref once node's shape is shared, or "" while it should
// stay inline.
func (r *componentRegistry) register(nameHint string, node *schemaNode) string {
	return r.track(nameHint, node, false)
}

// forceReference publishes node under name right away.
func (r *componentRegistry) forceReference(name string, node *schemaNode) string {
	return r.track(name, node, true)
}

func (r *componentRegistry) track(nameHint string, node *schemaNode, force bool) string {
	if node == nil {
		return ""
	}
	digest := node.Digest()
	if digest == "" {
		return ""
	}
	entry, ok := r.byDigest[digest]
	if !ok {
		entry = &component{name: r.uniqueName(nameHint), node: node}
		r.byDigest[digest] = entry
	}
	entry.seen++
	entry.forced = entry.forced || force
	if !entry.published() {
		return ""
	}
	return componentsPrefix + entry.name
}

func (r *componentRegistry) uniqueName(hint string) string {
	base := sanitizeComponentName(hint)
	if base == "" {
		base = "Schema"
	}
	name := base
	for i := 1; ; i++ {
		if _, taken := r.names[name]; !taken {
			r.names[name] = struct{}{}
			return name
		}
		name = fmt.Sprintf("%s%d", base, i)
	}
}

// componentsMap renders the published components, or nil when there are none.
func (r *componentRegistry) componentsMap() map[string]any {
	out := map[string]any{}
	for _, entry := range r.byDigest {
		if entry.published() {
			out[entry.name] = entry.node.inlineOpenAPI()
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var invalidComponentChars = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// sanitizeComponentName keeps names within the characters OpenAPI component
// keys allow, and never starting with a digit.
func sanitizeComponentName(name string) string {
	name = strings.Trim(invalidComponentChars.ReplaceAllString(name, "_"), "_")
	if name != "" && name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}
