package schema

import "fmt"

// Registry holds models by name, in registration order.
type Registry struct {
	models []*Model
}

// NewRegistry creates a registry holding the given models.
func NewRegistry(models ...*Model) *Registry {
	r := &Registry{}
	for _, m := range models {
		// duplicates in a literal list are a programming error
		if err := r.Add(m); err != nil {
			panic(err)
		}
	}
	return r
}

// Add registers a model. Names must be unique.
func (r *Registry) Add(m *Model) error {
	for _, existing := range r.models {
		if existing.Name == m.Name {
			return fmt.Errorf("model %q already registered", m.Name)
		}
	}
	r.models = append(r.models, m)
	return nil
}

// Model looks up a model by name, falling back to its table name.
func (r *Registry) Model(name string) (*Model, bool) {
	for _, m := range r.models {
		if m.Name == name {
			return m, true
		}
	}
	for _, m := range r.models {
		if m.Table == name {
			return m, true
		}
	}
	return nil, false
}

// Models returns all registered models in registration order.
func (r *Registry) Models() []*Model {
	return append([]*Model(nil), r.models...)
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	return len(r.models)
}
