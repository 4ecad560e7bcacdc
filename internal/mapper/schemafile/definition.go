// Package schemafile declares schemas in YAML or TOML files.
//
// A file holds named schemas. Attribute order in the file is the
// declaration order of the schema:
//
//	schemas:
//	  currency:
//	    attributes:
//	      code: {}
//	      rate: { type: number }
//	  store:
//	    extends: base
//	    options: { fail_on_missing: false }
//	    attributes:
//	      first_name: firstName          # rename shorthand
//	      price: { type: number }
//	      "?formatted": { copy: price, format: "$0,0.00" }
//	      created_at: { as: date, format: { type: date, to: "MMM. Do, YYYY" } }
//	      currency: { one: currency }
//	      branches: { many: branch }
package schemafile

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/conduit-lang/mapper/internal/mapper/model"
)

// Definition is one schema as written in a file.
type Definition struct {
	Name       string
	Extends    string
	Options    *Options
	Attributes []AttributeDef
	// Source names the file the definition came from.
	Source string
}

// Options are schema defaults as written in a file.
type Options struct {
	FailOnMissing *bool
}

// AttributeDef is one attribute entry.
type AttributeDef struct {
	Name       string
	As         string
	Default    any
	HasDefault bool
	Copy       string
	Type       string
	Format     *FormatDef
	One        string
	Many       string
}

// FormatDef is a format modifier. Type is "number" or "date".
type FormatDef struct {
	Type    string
	Pattern string
	From    string
}

// decodeAttribute reads one attribute entry. value is nil for a plain
// attribute, a string for a rename, or a map of modifiers.
func decodeAttribute(name string, value any) (AttributeDef, error) {
	def := AttributeDef{Name: name}

	switch v := value.(type) {
	case nil:
		return def, nil
	case string:
		def.As = v
		return def, nil
	}

	fields, err := cast.ToStringMapE(value)
	if err != nil {
		return def, fmt.Errorf("attribute %q: expected a rename or a map of modifiers, got %T", name, value)
	}

	for key, raw := range fields {
		switch key {
		case "as":
			def.As, err = cast.ToStringE(raw)
		case "default":
			def.Default, def.HasDefault = raw, true
		case "copy":
			def.Copy, err = cast.ToStringE(raw)
		case "type":
			def.Type, err = cast.ToStringE(raw)
		case "format":
			def.Format, err = decodeFormat(raw)
		case "one":
			def.One, err = cast.ToStringE(raw)
		case "many":
			def.Many, err = cast.ToStringE(raw)
		default:
			err = fmt.Errorf("unknown modifier %q", key)
		}
		if err != nil {
			return def, fmt.Errorf("attribute %q: %s: %w", name, key, err)
		}
	}

	if def.One != "" && def.Many != "" {
		return def, fmt.Errorf("attribute %q: one and many are exclusive", name)
	}
	return def, nil
}

func decodeFormat(raw any) (*FormatDef, error) {
	if s, ok := raw.(string); ok {
		return &FormatDef{Type: "number", Pattern: s}, nil
	}

	fields, err := cast.ToStringMapStringE(raw)
	if err != nil {
		return nil, fmt.Errorf("expected a pattern or a map, got %T", raw)
	}
	f := &FormatDef{
		Type:    strings.ToLower(fields["type"]),
		Pattern: fields["pattern"],
		From:    fields["from"],
	}
	if to, ok := fields["to"]; ok {
		f.Pattern = to
	}
	if f.Type == "" {
		f.Type = "number"
	}
	if f.Type != "number" && f.Type != "date" {
		return nil, fmt.Errorf("unknown format type %q", f.Type)
	}
	if f.Pattern == "" {
		return nil, fmt.Errorf("%s format needs a pattern", f.Type)
	}
	return f, nil
}

var coercions = map[string]model.CoerceFunc{
	"number":  model.Number,
	"float":   model.Number,
	"integer": model.Integer,
	"int":     model.Integer,
	"string":  model.String,
	"boolean": model.Boolean,
	"bool":    model.Boolean,
}

func (f *FormatDef) formatter() model.Formatter {
	if f.Type == "date" {
		return model.DateFormat{From: f.From, To: f.Pattern}
	}
	return model.NumberFormat(f.Pattern)
}
