package model

import (
	"sort"
	"strings"
)

// optionalMarker prefixes attribute names that may be absent from the input.
const optionalMarker = "?"

// Kind is how an attribute's value is produced.
type Kind int

const (
	// KindScalar copies the input value as-is.
	KindScalar Kind = iota
	// KindOne builds the input value through a nested schema.
	KindOne
	// KindMany builds each element of the input list through a nested schema.
	KindMany
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "attribute"
	case KindOne:
		return "one"
	case KindMany:
		return "many"
	default:
		return "unknown"
	}
}

// NormalizeName strips the optional marker: "?price.value" becomes "price.value".
func NormalizeName(name string) string {
	return strings.Replace(name, optionalMarker, "", 1)
}

// IsRequired reports whether name lacks the optional marker.
func IsRequired(name string) bool {
	return !strings.HasPrefix(name, optionalMarker)
}

// Attribute is one declared field of a schema. Declaring an attribute
// returns its handle; modifier methods attach to that attribute and return
// the same handle for chaining.
type Attribute struct {
	schema *Schema

	name      string
	path      string
	required  bool
	kind      Kind
	nested    *Schema
	modifiers []Modifier
}

func newAttribute(s *Schema, name string, kind Kind, nested *Schema) *Attribute {
	return &Attribute{
		schema:   s,
		name:     name,
		path:     NormalizeName(name),
		required: IsRequired(name),
		kind:     kind,
		nested:   nested,
	}
}

// Name returns the declared name, including any optional marker.
func (a *Attribute) Name() string { return a.name }

// Path returns the normalized input path.
func (a *Attribute) Path() string { return a.path }

// Required reports whether the attribute must be present in the input.
func (a *Attribute) Required() bool { return a.required }

// Kind returns the attribute kind.
func (a *Attribute) Kind() Kind { return a.kind }

// Nested returns the nested schema of a one or many reference.
func (a *Attribute) Nested() *Schema { return a.nested }

// Modifiers returns the attached modifiers in application order.
func (a *Attribute) Modifiers() []Modifier {
	a.schema.mu.RLock()
	defer a.schema.mu.RUnlock()
	return a.ordered()
}

// As renames the attribute in the output.
func (a *Attribute) As(name string) *Attribute {
	return a.with(Rename{To: NormalizeName(name)})
}

// Default sets the value written when the attribute is absent.
func (a *Attribute) Default(value any) *Attribute {
	return a.with(Default{Value: value})
}

// Copy fills the attribute from another output path. The source may be an
// attribute declared later in the schema.
func (a *Attribute) Copy(from string) *Attribute {
	return a.with(Copy{From: NormalizeName(from)})
}

// Type coerces the value.
func (a *Attribute) Type(fn CoerceFunc) *Attribute {
	return a.with(Coerce{Fn: fn})
}

// Format renders the value.
func (a *Attribute) Format(f Formatter) *Attribute {
	return a.with(Format{Formatter: f})
}

// FormatFunc renders the value with fn.
func (a *Attribute) FormatFunc(fn func(value any, record map[string]any) (any, error)) *Attribute {
	return a.with(Format{Formatter: FormatFunc(fn)})
}

// Modify attaches m, replacing any modifier of the same kind.
func (a *Attribute) Modify(m Modifier) *Attribute {
	return a.with(m)
}

func (a *Attribute) with(m Modifier) *Attribute {
	a.schema.mu.Lock()
	defer a.schema.mu.Unlock()

	for i, existing := range a.modifiers {
		if existing.rank() == m.rank() {
			a.modifiers[i] = m
			return a
		}
	}
	a.modifiers = append(a.modifiers, m)
	return a
}

func (a *Attribute) ordered() []Modifier {
	out := make([]Modifier, len(a.modifiers))
	copy(out, a.modifiers)
	sort.SliceStable(out, func(i, j int) bool { return out[i].rank() < out[j].rank() })
	return out
}

// clone copies the attribute for schema s. The nested schema is shared.
func (a *Attribute) clone(s *Schema) *Attribute {
	c := *a
	c.schema = s
	c.modifiers = make([]Modifier, len(a.modifiers))
	copy(c.modifiers, a.modifiers)
	return &c
}

// AttributeOptions declares an attribute together with its modifiers.
// Zero fields are not applied.
type AttributeOptions struct {
	As      string
	Default any
	Copy    string
	Type    CoerceFunc
	Format  Formatter
	One     *Schema
	Many    *Schema
}

// Declaration is one entry of a bulk declaration.
type Declaration struct {
	Name    string
	Options AttributeOptions
}

// Renamed is shorthand for a declaration that only renames.
func Renamed(name, as string) Declaration {
	return Declaration{Name: name, Options: AttributeOptions{As: as}}
}

// Declare is shorthand for a declaration with options.
func Declare(name string, opts AttributeOptions) Declaration {
	return Declaration{Name: name, Options: opts}
}
