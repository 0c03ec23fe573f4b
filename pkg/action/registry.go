package action

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates an action from its raw YAML configuration. A nil config
// selects defaults.
type Factory func(config []byte) (Action, error)

// Registry maps action names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. Registering a name twice is an error.
func (r *Registry) Register(name string, f Factory) error {
	if name == "" || f == nil {
		return fmt.Errorf("invalid registration for action %q", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return fmt.Errorf("action %q already registered", name)
	}
	r.factories[name] = f
	return nil
}

// New creates the named action.
func (r *Registry) New(name string, config []byte) (Action, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown action %q", name)
	}
	a, err := f(config)
	if err != nil {
		return nil, fmt.Errorf("create action %s: %w", name, err)
	}
	return a, nil
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
