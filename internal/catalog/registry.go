package catalog

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrModelNotFound marks lookups for ids the catalog does not carry. The
	// gateway checks it before any network call is made.
	ErrModelNotFound = errors.New("model not found")
	// ErrEmptyCatalog marks a catalog document that parsed cleanly but
	// declares zero models. An empty registry is invalid, not degraded.
	ErrEmptyCatalog = errors.New("catalog declares no models")
)

// Registry is the immutable, in-memory table of model specifications. It is
// built once by Load (or Parse) and is safe for concurrent reads without
// locking; callers must not mutate the specs it hands out.
type Registry struct {
	version string
	models  map[string]*ModelSpec
	ids     []string
}

// Version returns the catalog document's version marker, if any.
func (r *Registry) Version() string {
	return r.version
}

// Has reports whether the id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.models[id]
	return ok
}

// Get returns the spec for id. The returned spec is shared and read-only.
func (r *Registry) Get(id string) (*ModelSpec, bool) {
	m, ok := r.models[id]
	return m, ok
}

// List returns all registered ids in sorted order.
func (r *Registry) List() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Count returns the number of registered models.
func (r *Registry) Count() int {
	return len(r.models)
}

// Enforce is the single membership gate used before any outbound call. It
// returns an error wrapping ErrModelNotFound for unregistered ids, no matter
// how plausible the id looks.
func (r *Registry) Enforce(id string) error {
	if _, ok := r.models[id]; !ok {
		return fmt.Errorf("%w: %q", ErrModelNotFound, id)
	}
	return nil
}

func newRegistry(version string, specs []*ModelSpec) *Registry {
	r := &Registry{
		version: version,
		models:  make(map[string]*ModelSpec, len(specs)),
		ids:     make([]string, 0, len(specs)),
	}
	for _, m := range specs {
		r.models[m.ID] = m
		r.ids = append(r.ids, m.ID)
	}
	sort.Strings(r.ids)
	return r
}
