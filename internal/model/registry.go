package model

import (
	"errors"
	"fmt"
	"sort"
)

// ErrDuplicateType is returned by Registry.Add when a name is already taken.
var ErrDuplicateType = errors.New("model: duplicate type")

// Registry is a name-indexed model set: every type decoded from one artifact.
// Names are unique within a registry.
type Registry struct {
	order []string
	types map[string]*Type
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

// Add inserts t. The first type registered under a name wins; later ones
// are rejected with ErrDuplicateType, matching class path lookup order.
func (r *Registry) Add(t *Type) error {
	if _, ok := r.types[t.name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateType, t.DisplayName())
	}
	r.types[t.name] = t
	r.order = append(r.order, t.name)
	return nil
}

// Lookup returns the type registered under name (dotted or slash form).
func (r *Registry) Lookup(name string) (*Type, bool) {
	t, ok := r.types[NormalizeName(name)]
	return t, ok
}

// Len returns the number of registered types.
func (r *Registry) Len() int { return len(r.order) }

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Types returns the registered types in insertion order.
func (r *Registry) Types() []*Type {
	out := make([]*Type, len(r.order))
	for i, name := range r.order {
		out[i] = r.types[name]
	}
	return out
}

// Link resolves the declaring type of member types that were decoded from
// their own unit. It must run once, after the last Add and before the
// registry is handed to anyone else.
func (r *Registry) Link() {
	for _, name := range r.order {
		t := r.types[name]
		if t.owner != nil || t.declaringName == "" || t.declaringName == t.name {
			continue
		}
		if outer, ok := r.types[t.declaringName]; ok {
			t.owner = outer
		}
	}
}

// Validate checks the structural invariants the rule engine relies on.
func (r *Registry) Validate() error {
	for _, name := range r.order {
		if err := validateType(r.types[name]); err != nil {
			return err
		}
	}
	return nil
}

func validateType(t *Type) error {
	if t.name == "" {
		return fmt.Errorf("%w: type without a name", ErrInvalidModel)
	}
	if t.owner == t {
		return fmt.Errorf("%w: %s is its own owner", ErrInvalidModel, t.DisplayName())
	}
	for _, f := range t.fields {
		if f.owner != t {
			return fmt.Errorf("%w: field %s is not owned by %s", ErrInvalidModel, f.name, t.DisplayName())
		}
	}
	for _, m := range t.methods {
		if m.owner != t {
			return fmt.Errorf("%w: method %s is not owned by %s", ErrInvalidModel, m.Key(), t.DisplayName())
		}
	}
	for _, n := range t.nested {
		if n.owner != t {
			return fmt.Errorf("%w: nested type %s is not owned by %s", ErrInvalidModel, n.DisplayName(), t.DisplayName())
		}
	}
	return nil
}
