package backend

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Factory creates a backend instance.
type Factory func() (Backend, error)

// Registry maps backend names to factories. An application builds one and
// passes it to whatever needs to create backends.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	order     []string
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces a factory. "auto" resolves to the first
// backend registered.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[name]; !ok {
		r.order = append(r.order, name)
	}
	r.factories[name] = f
}

// Names lists registered backends in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Available returns a comma-separated list of registered backends.
func (r *Registry) Available() string {
	return strings.Join(r.Names(), ",")
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// New creates the named backend. "auto" and "" pick the first registered
// backend.
func (r *Registry) New(name string) (Backend, error) {
	name, err := Normalize(name)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	if name == Auto {
		if len(r.order) == 0 {
			r.mu.RUnlock()
			return nil, fmt.Errorf("%w: no backends registered", ErrUnknownBackend)
		}
		name = r.order[0]
	}
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w %q: not available in this build (have %s)", ErrUnknownBackend, name, r.Available())
	}
	return f()
}
