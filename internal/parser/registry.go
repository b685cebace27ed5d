package parser

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a parser instance from a flat configuration mapping.
type Factory func(config map[string]any) (Parser, error)

// Registry holds parser factories indexed by provider name.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for the given provider name.
// Panics if the name is already registered.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("parser factory already registered: %s", name))
	}
	r.factories[name] = factory
}

// Get returns the factory for the given provider name.
func (r *Registry) Get(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	return factory, ok
}

// List returns all registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create instantiates a parser from the given provider name and config.
func (r *Registry) Create(name string, config map[string]any) (Parser, error) {
	factory, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown parser: %s", name)
	}
	return factory(config)
}

// --- Default Global Registry ---

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the global parser registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a factory to the default registry.
func Register(name string, factory Factory) {
	defaultRegistry.Register(name, factory)
}
