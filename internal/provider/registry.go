package provider

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Factory builds a Client from configuration
type Factory func(cfg Config) (Client, error)

// Registry maps backend names to client factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a registry holding the built-in backends
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	_ = r.Register(BackendOpenAI, func(cfg Config) (Client, error) { return NewOpenAIClient(cfg) })
	_ = r.Register(BackendOllama, func(cfg Config) (Client, error) { return NewOllamaClient(cfg) })
	return r
}

// Register adds a factory under name
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("backend %s already registered", name)
	}
	r.factories[name] = factory
	return nil
}

// List returns the registered backend names in sorted order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New builds the client named by cfg.Name
func (r *Registry) New(cfg Config) (Client, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	if name == "" {
		return nil, fmt.Errorf("backend name is required")
	}

	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (supported: %s)", cfg.Name, strings.Join(r.List(), ", "))
	}

	cfg.Name = name
	client, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", name, err)
	}
	return client, nil
}

var defaultRegistry = NewRegistry()

// New builds a built-in backend client
func New(cfg Config) (Client, error) {
	return defaultRegistry.New(cfg)
}
