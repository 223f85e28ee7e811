package attrs

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Function represents a callable registered against evaluators.
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom functions keyed by name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("attrs: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("attrs: function name must not be empty")
	}
	if strings.EqualFold(name, "call") {
		return fmt.Errorf("attrs: function name %q is reserved", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("attrs: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("attrs: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("attrs: function %q not registered", name)
	}
	return fn(args...)
}

// bound returns a function calling name through the registry.
func (r *FunctionRegistry) bound(name string) func(...any) (any, error) {
	return func(args ...any) (any, error) {
		return r.Call(name, args...)
	}
}

// dispatch backs call(name, args...) in every engine.
func (r *FunctionRegistry) dispatch(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("attrs: call requires a function name")
	}
	name, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("attrs: call name must be a string, got %T", args[0])
	}
	return r.Call(name, args[1:]...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StandardFunctions returns a registry preloaded with helpers commonly
// needed by attribute rules: uuid() generates an id, is_uuid(v) checks one
// and parse_uuid(v) normalizes one to its canonical string form.
func StandardFunctions() *FunctionRegistry {
	r := NewFunctionRegistry()
	_ = r.Register("uuid", func(args ...any) (any, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("attrs: uuid takes no arguments")
		}
		return uuid.NewString(), nil
	})
	_ = r.Register("is_uuid", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("attrs: is_uuid takes one argument")
		}
		text, ok := args[0].(string)
		if !ok {
			return false, nil
		}
		return uuid.Validate(text) == nil, nil
	})
	_ = r.Register("parse_uuid", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("attrs: parse_uuid takes one argument")
		}
		text, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("attrs: parse_uuid expects a string, got %T", args[0])
		}
		id, err := uuid.Parse(text)
		if err != nil {
			return nil, err
		}
		return id.String(), nil
	})
	return r
}
