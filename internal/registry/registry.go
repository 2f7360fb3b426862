package registry

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/specialistvlad/flowgridgo/internal/executor"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the executors registered for a single application instance.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]executor.Executor
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		executors: make(map[string]executor.Executor),
	}
}

// Load creates a registry and lets every module register itself.
func Load(modules ...Module) *Registry {
	r := New()
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Register binds an executor to a node type. A second registration for the
// same type silently replaces the first.
func (r *Registry) Register(nodeType string, e executor.Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.executors[nodeType]; exists {
		slog.Debug("Replacing executor registration.", "type", nodeType)
	} else {
		slog.Debug("Registering executor.", "type", nodeType)
	}
	r.executors[nodeType] = e
}

// Lookup returns the executor bound to nodeType.
func (r *Registry) Lookup(nodeType string) (executor.Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.executors[nodeType]
	return e, ok
}

// Types returns every registered node type in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
