package schema

import (
	"fmt"
	"strings"
)

// Registry holds every declared entity type. It is built once and never
// mutated, so it is safe for concurrent use without locking.
type Registry struct {
	ordered []*Descriptor
	byName  map[string]*Descriptor
}

// NewRegistry validates the descriptors and the relations between them.
func NewRegistry(descriptors ...*Descriptor) (*Registry, error) {
	r := &Registry{
		ordered: make([]*Descriptor, 0, len(descriptors)),
		byName:  make(map[string]*Descriptor, len(descriptors)),
	}
	for _, d := range descriptors {
		if d == nil {
			return nil, fmt.Errorf("nil descriptor")
		}
		if err := d.validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(d.Name())
		if _, dup := r.byName[key]; dup {
			return nil, fmt.Errorf("entity type %s is registered more than once", d.Name())
		}
		r.byName[key] = d
		r.ordered = append(r.ordered, d)
	}

	for _, d := range r.ordered {
		for _, rel := range d.Relations() {
			if _, ok := r.Lookup(rel.Target); !ok {
				return nil, fmt.Errorf("relation %s.%s targets unregistered entity type %s", d.Name(), rel.Name, rel.Target)
			}
		}
	}
	return r, nil
}

// Lookup resolves an entity type by name or route, ignoring case.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	d, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// Descriptors returns the registered descriptors in registration order.
func (r *Registry) Descriptors() []*Descriptor {
	out := make([]*Descriptor, len(r.ordered))
	copy(out, r.ordered)
	return out
}
