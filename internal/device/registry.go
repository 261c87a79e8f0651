package device

import (
	"fmt"

	"github.com/nerrad567/depthcam-core/internal/source"
)

// Registry holds at most one source per kind. It keeps one slot per kind
// for lookup and an insertion-ordered list for iteration.
//
// Registry is not safe for concurrent use.
type Registry struct {
	byKind map[source.Kind]source.Source
	order  []source.Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKind: make(map[source.Kind]source.Source)}
}

// Insert adds src. It returns ErrSourceExists if a source of the same kind
// is already registered, leaving the registry unchanged.
func (r *Registry) Insert(src source.Source) error {
	kind := src.Kind()
	if _, ok := r.byKind[kind]; ok {
		return fmt.Errorf("%w: %s", ErrSourceExists, kind)
	}
	r.byKind[kind] = src
	r.order = append(r.order, src)
	return nil
}

// Lookup returns the source of the given kind, or nil.
func (r *Registry) Lookup(kind source.Kind) source.Source {
	return r.byKind[kind]
}

// All returns the sources in insertion order. The slice is a copy.
func (r *Registry) All() []source.Source {
	out := make([]source.Source, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of sources.
func (r *Registry) Len() int {
	return len(r.order)
}

// Reset removes every source without closing them.
func (r *Registry) Reset() {
	r.byKind = make(map[source.Kind]source.Source)
	r.order = nil
}

// lookupAs returns the source of kind as its concrete type.
func lookupAs[T source.Source](r *Registry, kind source.Kind) T {
	s, _ := r.Lookup(kind).(T)
	return s
}
