package provider

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
)

// BackendConfig carries the settings shared by every catalog backend.
type BackendConfig struct {
	APIKey     string
	Language   string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Factory creates a new client handle for a backend. Each call returns an
// independent handle so workers do not share connections or limiters.
type Factory func(cfg BackendConfig) (CatalogAPI, error)

// Registry maps backend names to factories.
type Registry struct {
	mu         sync.RWMutex
	factories  map[string]Factory
	priorities map[string]int
}

// GlobalRegistry is the default registry instance
var GlobalRegistry = NewRegistry()

// NewRegistry creates an empty backend registry
func NewRegistry() *Registry {
	return &Registry{
		factories:  make(map[string]Factory),
		priorities: make(map[string]int),
	}
}

// Register adds a backend factory under name.
func (r *Registry) Register(name string, factory Factory, priority int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("backend name is required")
	}
	if factory == nil {
		return fmt.Errorf("backend %s has no factory", name)
	}
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("backend %s already registered", name)
	}

	r.factories[name] = factory
	r.priorities[name] = priority
	return nil
}

// Get returns the factory registered under name.
func (r *Registry) Get(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[strings.ToLower(strings.TrimSpace(name))]
	return factory, exists
}

// List returns registered backend names, highest priority first.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		if r.priorities[names[i]] == r.priorities[names[j]] {
			return names[i] < names[j]
		}
		return r.priorities[names[i]] > r.priorities[names[j]]
	})
	return names
}

// New creates a client for the named backend.
func (r *Registry) New(name string, cfg BackendConfig) (CatalogAPI, error) {
	factory, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("backend %s not found (available: %s)", name, strings.Join(r.List(), ", "))
	}
	api, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend %s: %w", name, err)
	}
	return api, nil
}
