package attrs

import "fmt"

// Fallback serves attribute names a registry does not define itself. It is
// consulted only after local lookup and the schema builder come up empty.
type Fallback interface {
	Has(name string) bool
	Get(name string) (any, error)
	Set(name string, value any) error
	Unset(name string) error
}

// MapFallback is a Fallback over a plain map. Every key present in the map is
// considered defined.
type MapFallback map[string]any

func (m MapFallback) Has(name string) bool {
	_, ok := m[name]
	return ok
}

func (m MapFallback) Get(name string) (any, error) {
	value, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUndefinedAttribute, name)
	}
	return value, nil
}

func (m MapFallback) Set(name string, value any) error {
	m[name] = value
	return nil
}

func (m MapFallback) Unset(name string) error {
	m[name] = nil
	return nil
}

// AsFallback exposes the registry as the fallback of another registry, so
// attribute sets can be chained.
func (r *Registry) AsFallback() Fallback {
	return registryFallback{r: r}
}

type registryFallback struct {
	r *Registry
}

func (f registryFallback) Has(name string) bool { return f.r.Has(name) }

func (f registryFallback) Get(name string) (any, error) { return f.r.Get(name) }

func (f registryFallback) Set(name string, value any) error { return f.r.Set(name, value) }

func (f registryFallback) Unset(name string) error { return f.r.Unset(name) }
