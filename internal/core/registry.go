package core

import "strings"

// Registry is the ordered set of people on a ledger. Registration order is
// the deterministic tie-break used by expense splitting and settlement.
type Registry struct {
	names []string
	index map[string]int
}

// NewRegistry registers the given names in order.
func NewRegistry(names []string) (*Registry, error) {
	r := &Registry{index: make(map[string]int, len(names))}
	for _, name := range names {
		if err := r.Register(name); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a person. Names must be unique within a registry.
func (r *Registry) Register(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if _, ok := r.index[name]; ok {
		return ErrDuplicateName
	}
	r.index[name] = len(r.names)
	r.names = append(r.names, name)
	return nil
}

// All returns every registered name in registration order.
func (r *Registry) All() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Contains reports whether name is registered.
func (r *Registry) Contains(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Position returns the registration index of name, or -1 if unregistered.
func (r *Registry) Position(name string) int {
	if i, ok := r.index[name]; ok {
		return i
	}
	return -1
}

// Len returns the number of registered people.
func (r *Registry) Len() int {
	return len(r.names)
}
