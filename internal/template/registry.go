package template

import (
	"fmt"
	"strings"
)

// Registry holds templates by id. Registration order is preserved because
// detection tries templates in that order.
type Registry struct {
	order []string
	byID  map[string]Config
}

// NewRegistry creates a registry holding cfgs. Panics on a duplicate or
// invalid template.
func NewRegistry(cfgs ...Config) *Registry {
	r := &Registry{byID: make(map[string]Config, len(cfgs))}
	for _, c := range cfgs {
		r.Register(c)
	}
	return r
}

// Register adds a template. Panics on duplicate id or invalid config.
func (r *Registry) Register(c Config) {
	if err := r.check(c); err != nil {
		panic(err.Error())
	}
	key := strings.ToLower(c.ID)
	r.byID[key] = c.clone()
	r.order = append(r.order, key)
}

func (r *Registry) check(c Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if _, ok := r.byID[strings.ToLower(c.ID)]; ok {
		return fmt.Errorf("%w: duplicate template id %q", ErrInvalidTemplate, c.ID)
	}
	return nil
}

// With returns a new registry holding r's templates followed by cfgs. Unlike
// Register it reports bad templates as errors, since cfgs usually come from
// a user file.
func (r *Registry) With(cfgs ...Config) (*Registry, error) {
	out := NewRegistry(r.All()...)
	for _, c := range cfgs {
		if err := out.check(c); err != nil {
			return nil, err
		}
		out.Register(c)
	}
	return out, nil
}

// Get returns the template for id, or ErrUnknownTemplate.
func (r *Registry) Get(id string) (Config, error) {
	c, ok := r.byID[strings.ToLower(id)]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
	}
	return c.clone(), nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[strings.ToLower(id)]
	return ok
}

// All returns every template in registration order.
func (r *Registry) All() []Config {
	out := make([]Config, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byID[key].clone())
	}
	return out
}

var defaultRegistry = NewRegistry(builtins()...)

// Default returns the registry of built-in templates. Callers must not
// Register into it; use With to extend.
func Default() *Registry {
	return defaultRegistry
}
