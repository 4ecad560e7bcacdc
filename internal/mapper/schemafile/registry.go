package schemafile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conduit-lang/mapper/internal/mapper/model"
)

// Registry holds compiled schemas by name.
type Registry struct {
	schemas map[string]*model.Schema
	sources map[string]string
}

// Get returns the schema called name.
func (r *Registry) Get(name string) (*model.Schema, bool) {
	if r == nil {
		return nil, false
	}
	s, ok := r.schemas[name]
	return s, ok
}

// Names returns the schema names, sorted.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Source returns the file that declared name.
func (r *Registry) Source(name string) string {
	if r == nil {
		return ""
	}
	return r.sources[name]
}

// Len returns the number of schemas.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.schemas)
}

// Load reads and compiles the schema files at paths. The format is chosen
// by extension: .yaml, .yml or .toml.
func Load(paths ...string) (*Registry, error) {
	var defs []Definition
	for _, path := range paths {
		fileDefs, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, fileDefs...)
	}
	return Compile(defs)
}

// ReadFile parses the definitions in one schema file.
func ReadFile(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}

	var defs []Definition
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		defs, err = ParseYAML(data)
	case ".toml":
		defs, err = ParseTOML(data)
	default:
		return nil, fmt.Errorf("%s: unsupported schema file extension %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for i := range defs {
		defs[i].Source = path
	}
	return defs, nil
}

// Compile declares every definition. Schemas may reference each other in
// any order through one and many; extends is resolved base first and must
// not form a cycle.
func Compile(defs []Definition) (*Registry, error) {
	c := &compiler{
		defs:  make(map[string]Definition, len(defs)),
		state: make(map[string]int, len(defs)),
		reg: &Registry{
			schemas: make(map[string]*model.Schema, len(defs)),
			sources: make(map[string]string, len(defs)),
		},
	}

	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("%s: schema without a name", def.Source)
		}
		if prev, dup := c.defs[def.Name]; dup {
			return nil, fmt.Errorf("schema %q declared twice (%s, %s)", def.Name, prev.Source, def.Source)
		}
		c.defs[def.Name] = def
		c.reg.schemas[def.Name] = model.New()
		c.reg.sources[def.Name] = def.Source
	}

	for _, name := range c.reg.Names() {
		if err := c.compile(name, nil); err != nil {
			return nil, err
		}
	}
	return c.reg, nil
}

const (
	pending = iota
	visiting
	done
)

type compiler struct {
	defs  map[string]Definition
	state map[string]int
	reg   *Registry
}

func (c *compiler) compile(name string, chain []string) error {
	switch c.state[name] {
	case done:
		return nil
	case visiting:
		return fmt.Errorf("schema %q extends itself: %s", name, strings.Join(append(chain, name), " -> "))
	}
	c.state[name] = visiting

	def := c.defs[name]
	s := c.reg.schemas[name]

	if def.Extends != "" {
		base, ok := c.reg.schemas[def.Extends]
		if !ok {
			return fmt.Errorf("schema %q extends unknown schema %q", name, def.Extends)
		}
		if err := c.compile(def.Extends, append(chain, name)); err != nil {
			return err
		}
		s.SetOptions(base.Options()).Include(base)
	}

	if def.Options != nil && def.Options.FailOnMissing != nil {
		opts := s.Options()
		opts.FailOnMissing = *def.Options.FailOnMissing
		s.SetOptions(opts)
	}

	for _, attr := range def.Attributes {
		if err := c.declare(s, name, attr); err != nil {
			return err
		}
	}

	c.state[name] = done
	return nil
}

func (c *compiler) declare(s *model.Schema, schema string, def AttributeDef) error {
	var a *model.Attribute
	switch {
	case def.One != "":
		nested, ok := c.reg.schemas[def.One]
		if !ok {
			return fmt.Errorf("schema %q attribute %q: unknown schema %q", schema, def.Name, def.One)
		}
		a = s.One(def.Name, nested)
	case def.Many != "":
		nested, ok := c.reg.schemas[def.Many]
		if !ok {
			return fmt.Errorf("schema %q attribute %q: unknown schema %q", schema, def.Name, def.Many)
		}
		a = s.Many(def.Name, nested)
	default:
		a = s.Attribute(def.Name)
	}

	if def.As != "" {
		a.As(def.As)
	}
	if def.HasDefault {
		a.Default(def.Default)
	}
	if def.Copy != "" {
		a.Copy(def.Copy)
	}
	if def.Type != "" {
		fn, ok := coercions[strings.ToLower(def.Type)]
		if !ok {
			return fmt.Errorf("schema %q attribute %q: unknown type %q", schema, def.Name, def.Type)
		}
		a.Type(fn)
	}
	if def.Format != nil {
		a.Format(def.Format.formatter())
	}
	return nil
}
