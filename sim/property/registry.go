// Package property provides the elaboration-time properties of simulation
// components.
//
// Components register their properties in a Registry that is passed to
// them explicitly. A property takes its initial value from the registry's
// providers, falling back to the default the component gives. Each
// registration returns a function that removes the property again when the
// component is torn down.
package property

import (
	"fmt"
	"sort"
	"sync"
)

// A Property is a named, configurable value of a component.
type Property interface {
	// Name returns the full hierarchical name of the property.
	Name() string

	// String renders the current value.
	String() string

	// Set parses and stores a new value.
	Set(value string) error
}

// A Provider supplies initial values for properties by name.
type Provider interface {
	Lookup(name string) (string, bool)
}

// A Registry holds the properties of a simulation.
type Registry struct {
	lock      sync.RWMutex
	props     map[string]Property
	providers []Provider
}

// NewRegistry creates a registry that draws initial values from the
// providers. Earlier providers take precedence.
func NewRegistry(providers ...Provider) *Registry {
	return &Registry{
		props:     make(map[string]Property),
		providers: providers,
	}
}

// AddProvider appends a provider with the lowest precedence.
func (r *Registry) AddProvider(p Provider) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.providers = append(r.providers, p)
}

// Lookup asks the providers for the initial value of a property.
func (r *Registry) Lookup(name string) (string, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, p := range r.providers {
		if v, ok := p.Lookup(name); ok {
			return v, true
		}
	}

	return "", false
}

// Register adds a property to the registry and returns the function that
// removes it. Registering two properties with the same name panics.
func (r *Registry) Register(p Property) (unregister func()) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, found := r.props[p.Name()]; found {
		panic(fmt.Sprintf("property %s is already registered", p.Name()))
	}

	r.props[p.Name()] = p

	return func() {
		r.lock.Lock()
		defer r.lock.Unlock()

		if r.props[p.Name()] == p {
			delete(r.props, p.Name())
		}
	}
}

// Find returns the property registered under a full name.
func (r *Registry) Find(name string) (Property, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	p, ok := r.props[name]

	return p, ok
}

// Set parses a new value into a registered property.
func (r *Registry) Set(name, value string) error {
	p, ok := r.Find(name)
	if !ok {
		return fmt.Errorf("property %s not found", name)
	}

	if err := p.Set(value); err != nil {
		return &ConfigurationError{Name: name, Value: value, Err: err}
	}

	return nil
}

// List returns the names of all the registered properties in order.
func (r *Registry) List() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()

	names := make([]string, 0, len(r.props))
	for name := range r.props {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Len returns the number of registered properties.
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return len(r.props)
}

// MapProvider provides values from a map keyed by full property name.
type MapProvider map[string]string

// Lookup returns the value stored under the name.
func (m MapProvider) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}
