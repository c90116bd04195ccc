package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps backend names to factories of type F.
type Registry[F any] struct {
	kind      string
	factories map[string]F
	mu        sync.RWMutex
}

func NewRegistry[F any](kind string) *Registry[F] {
	return &Registry[F]{
		kind:      kind,
		factories: make(map[string]F),
	}
}

func (r *Registry[F]) Register(name string, factory F) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("%s provider %s already registered", r.kind, name))
	}

	r.factories[name] = factory
}

func (r *Registry[F]) Get(name string) (F, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, exists := r.factories[name]
	return factory, exists
}

// MustGet returns an error naming the available backends when name is unknown.
func (r *Registry[F]) MustGet(name string) (F, error) {
	factory, ok := r.Get(name)
	if !ok {
		return factory, fmt.Errorf("%s provider %q not found, available: %v", r.kind, name, r.List())
	}
	return factory, nil
}

func (r *Registry[F]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
