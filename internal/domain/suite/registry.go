// Package suite registry: explicit registration of tester definitions
// bound to concrete tested types.
package suite

import (
	"fmt"
	"sort"
	"sync"
)

// Registration pairs one tester definition with one concrete tested type.
type Registration struct {
	Definition Definition
	Concrete   TypeRef
}

// Registry holds named registrations. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// Register adds a registration under the definition's suite name.
// Registering the same name twice is a configuration error.
func (r *Registry) Register(def Definition, concrete TypeRef) error {
	if def == nil {
		return fmt.Errorf("%w: nil definition", ErrConfiguration)
	}
	name := def.Descriptor().Name
	if name == "" {
		return fmt.Errorf("%w: definition has no suite name", ErrConfiguration)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[name]; ok {
		return fmt.Errorf("%w: suite %q already registered", ErrConfiguration, name)
	}
	r.entries[name] = Registration{Definition: def, Concrete: concrete}
	return nil
}

// Get returns the registration for the given suite name.
func (r *Registry) Get(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[name]
	return reg, ok
}

// Names returns all registered suite names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
