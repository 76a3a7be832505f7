package measure

import (
	"fmt"
)

// Registry holds the configured measures in a fixed order.
type Registry struct {
	measures map[string]*Measure
	order    []string
}

// NewRegistry builds a registry from the given measures, validating each
// definition.
func NewRegistry(measures ...*Measure) (*Registry, error) {
	r := &Registry{measures: make(map[string]*Measure, len(measures))}
	for _, m := range measures {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.measures[m.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate measure %s", ErrValidation, m.Name)
		}
		r.measures[m.Name] = m
		r.order = append(r.order, m.Name)
	}
	return r, nil
}

// Get returns the named measure.
func (r *Registry) Get(name string) (*Measure, error) {
	m, ok := r.measures[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown measure %q", ErrValidation, name)
	}
	return m, nil
}

// Names returns the measure names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Score dispatches to the named measure's scoring.
func (r *Registry) Score(name string, answers []int) (int, string, error) {
	m, err := r.Get(name)
	if err != nil {
		return 0, "", err
	}
	return m.Score(answers)
}
