// Package registry is an in-process catalog of listener factories.
//
// It serves both as ports.Discovery (every factory registered for a family) and
// as ports.Factory (a factory looked up by reference for include declarations).
package registry

import (
	"fmt"
	"iter"
	"sync"

	"github.com/aretw0/testctx/pkg/domain"
)

// FactoryFunc builds a fresh listener.
type FactoryFunc func() any

type entry struct {
	ref string
	fn  FactoryFunc
}

// Registry manages the available listener factories.
type Registry struct {
	mu       sync.RWMutex
	families map[string][]entry
	refs     map[string]FactoryFunc
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		families: make(map[string][]entry),
		refs:     make(map[string]FactoryFunc),
	}
}

// Register makes fn discoverable for each family and addressable by ref.
// Registering the same ref again overwrites the factory.
func (r *Registry) Register(ref string, fn FactoryFunc, families ...domain.Family) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs[ref] = fn
	for _, f := range families {
		list := r.families[f.Name()]
		replaced := false
		for i := range list {
			if list[i].ref == ref {
				list[i].fn = fn
				replaced = true
			}
		}
		if !replaced {
			list = append(list, entry{ref: ref, fn: fn})
		}
		r.families[f.Name()] = list
	}
}

// Discover yields a fresh instance from every factory registered for the family.
func (r *Registry) Discover(family domain.Family) iter.Seq[any] {
	r.mu.RLock()
	list := append([]entry(nil), r.families[family.Name()]...)
	r.mu.RUnlock()

	return func(yield func(any) bool) {
		for _, e := range list {
			if !yield(e.fn()) {
				return
			}
		}
	}
}

// Instantiate looks up a factory by reference and calls it.
// Returns an error if the reference is not registered.
func (r *Registry) Instantiate(ref string) (any, error) {
	r.mu.RLock()
	fn, ok := r.refs[ref]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("listener not found: %s", ref)
	}
	return fn(), nil
}

// Refs returns every registered reference.
func (r *Registry) Refs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.refs))
	for ref := range r.refs {
		out = append(out, ref)
	}
	return out
}
