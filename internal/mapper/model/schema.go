// Package model declares schemas that reshape input documents into output
// records and runs the build pipeline that applies them.
//
// A schema is an ordered list of attributes. Building walks the attributes
// in declaration order, reading each from the input and writing it to the
// output, then applying its modifiers:
//
//	s := model.New()
//	s.Attribute("first_name").As("firstName")
//	s.Attribute("price").Type(model.Number)
//	s.Attribute("?formatted").Copy("price").Format(model.NumberFormat("$0,0.00"))
//
//	out, err := s.Build(ctx, map[string]any{"first_name": "A", "price": "1234.56"})
//	// {"firstName": "A", "price": 1234.56, "formatted": "$1,234.56"}
package model

import (
	"sync"
)

// Options are the schema defaults a build starts from.
type Options struct {
	// FailOnMissing aborts a build when a required attribute is absent.
	FailOnMissing bool
}

// DefaultOptions returns the default schema options.
func DefaultOptions() Options {
	return Options{FailOnMissing: true}
}

// Schema is an ordered registry of attribute specifications. It is safe
// for concurrent use; every build reads a snapshot of the attributes.
type Schema struct {
	mu      sync.RWMutex
	order   []string
	attrs   map[string]*Attribute
	last    *Attribute
	options Options
}

// New creates an empty schema with default options.
func New() *Schema {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates an empty schema with custom options.
func NewWithOptions(options Options) *Schema {
	return &Schema{
		attrs:   make(map[string]*Attribute),
		options: options,
	}
}

// Extend creates a schema holding a copy of base's attributes and options.
// The two schemas are independent afterwards; nested schemas stay shared.
func Extend(base *Schema) *Schema {
	return NewWithOptions(base.Options()).Include(base)
}

// Include copies base's attributes into s, after the attributes s already
// declares. Paths s already declares are replaced in place.
func (s *Schema) Include(base *Schema) *Schema {
	if s == base {
		return s
	}
	attrs, _ := base.snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range attrs {
		if _, exists := s.attrs[a.path]; !exists {
			s.order = append(s.order, a.path)
		}
		s.attrs[a.path] = a.clone(s)
		s.last = s.attrs[a.path]
	}
	return s
}

// SetOptions replaces the schema defaults.
func (s *Schema) SetOptions(options Options) *Schema {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options = options
	return s
}

// Options returns the schema defaults.
func (s *Schema) Options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.options
}

// Attribute declares a scalar attribute. A leading "?" marks it optional.
func (s *Schema) Attribute(name string) *Attribute {
	return s.register(newAttribute(s, name, KindScalar, nil))
}

// One declares an attribute built once through nested.
func (s *Schema) One(name string, nested *Schema) *Attribute {
	return s.register(newAttribute(s, name, KindOne, nested))
}

// Many declares an attribute whose list elements are each built through nested.
func (s *Schema) Many(name string, nested *Schema) *Attribute {
	return s.register(newAttribute(s, name, KindMany, nested))
}

// Attributes declares every entry in order and returns the schema.
func (s *Schema) Attributes(decls ...Declaration) *Schema {
	for _, d := range decls {
		s.declare(d)
	}
	return s
}

func (s *Schema) declare(d Declaration) *Attribute {
	o := d.Options

	var a *Attribute
	switch {
	case o.One != nil:
		a = s.One(d.Name, o.One)
	case o.Many != nil:
		a = s.Many(d.Name, o.Many)
	default:
		a = s.Attribute(d.Name)
	}

	if o.As != "" {
		a.As(o.As)
	}
	if o.Default != nil {
		a.Default(o.Default)
	}
	if o.Copy != "" {
		a.Copy(o.Copy)
	}
	if o.Type != nil {
		a.Type(o.Type)
	}
	if o.Format != nil {
		a.Format(o.Format)
	}
	return a
}

// Last returns the most recently declared attribute.
func (s *Schema) Last() (*Attribute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, ErrNoActiveAttribute
	}
	return s.last, nil
}

// Lookup returns the attribute declared at path.
func (s *Schema) Lookup(path string) (*Attribute, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attrs[NormalizeName(path)]
	return a, ok
}

// Len returns the number of declared attributes.
func (s *Schema) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Paths returns the declared paths in declaration order.
func (s *Schema) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// register stores a. Redeclaring a path replaces its specification but
// keeps the position of the first declaration.
func (s *Schema) register(a *Attribute) *Attribute {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.attrs[a.path]; !exists {
		s.order = append(s.order, a.path)
	}
	s.attrs[a.path] = a
	s.last = a
	return a
}

// snapshot copies the attributes in declaration order.
func (s *Schema) snapshot() ([]*Attribute, Options) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	attrs := make([]*Attribute, 0, len(s.order))
	for _, path := range s.order {
		a := s.attrs[path].clone(s)
		a.modifiers = a.ordered()
		attrs = append(attrs, a)
	}
	return attrs, s.options
}
