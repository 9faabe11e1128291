package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/goliatone/go-blocks/pkg/block"
)

// ErrFrozen is returned when registering after the registry has been frozen.
var ErrFrozen = errors.New("registry: registration closed")

// Registry binds block types to renderer descriptors. Registration happens at
// startup; once Freeze is called the registry is read-only and safe to share
// across concurrent renders.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[block.Type]block.Descriptor
	frozen      bool
}

// New builds an empty registry.
func New() *Registry {
	return &Registry{
		descriptors: make(map[block.Type]block.Descriptor),
	}
}

// Register binds descriptor to typ. A second registration for the same type
// fails with *block.DuplicateTypeError and leaves the first one intact.
func (r *Registry) Register(typ block.Type, descriptor block.Descriptor) error {
	typ = typ.Normalize()
	if typ == "" {
		return block.ErrTypeRequired
	}
	if descriptor.Renderer == nil {
		return block.ErrRendererRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrFrozen
	}
	if _, exists := r.descriptors[typ]; exists {
		return &block.DuplicateTypeError{Type: typ}
	}
	r.descriptors[typ] = descriptor.Clone()
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(typ block.Type, descriptor block.Descriptor) {
	if err := r.Register(typ, descriptor); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor registered for typ.
func (r *Registry) Lookup(typ block.Type) (block.Descriptor, error) {
	typ = typ.Normalize()

	r.mu.RLock()
	descriptor, ok := r.descriptors[typ]
	r.mu.RUnlock()

	if !ok {
		return block.Descriptor{}, &block.UnknownTypeError{Type: typ}
	}
	return descriptor.Clone(), nil
}

// Has reports whether typ is registered.
func (r *Registry) Has(typ block.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.descriptors[typ.Normalize()]
	return ok
}

// Types returns the registered types sorted alphabetically.
func (r *Registry) Types() []block.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]block.Type, 0, len(r.descriptors))
	for typ := range r.descriptors {
		out = append(out, typ)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Freeze closes registration.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze was called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Reset clears all registrations and reopens the registry. Intended for
// process shutdown and tests.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.descriptors = make(map[block.Type]block.Descriptor)
	r.frozen = false
	r.mu.Unlock()
}
