package module

import (
	"fmt"
	"sort"
	"sync"

	"github.com/calderadb/harness/internal/config"
)

// NotFoundError reports a test definition naming a module that was never
// registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("module not found: %q", e.Name)
}

// Registry maps module names to factories. It replaces reflective
// construction by name: unknown names resolve to a NotFoundError instead of
// a generic construction failure.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name. Registering the same name twice
// panics; it is always a programming error.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.factories[name]; dup {
		panic(fmt.Sprintf("module: duplicate registration of %q", name))
	}
	r.factories[name] = factory
}

// New constructs the named module bound to (cfg, hctx).
func (r *Registry) New(name string, cfg *config.Config, hctx *Context) (Module, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return factory(cfg, hctx)
}

// Names returns the registered module names, sorted.
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
