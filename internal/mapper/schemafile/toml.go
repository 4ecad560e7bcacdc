package schemafile

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cast"
)

// ParseTOML reads schema definitions from a TOML document:
//
//	[schemas.store]
//	extends = "base"
//
//	[schemas.store.attributes]
//	first_name = "firstName"
//	price = { type = "number" }
//	"?formatted" = { copy = "price", format = "$0,0.00" }
//
// Schemas and attributes keep the order they are written in.
func ParseTOML(data []byte) ([]Definition, error) {
	var doc map[string]any
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("parse toml: %w", err)
	}

	schemas, err := cast.ToStringMapE(doc["schemas"])
	if err != nil {
		return nil, fmt.Errorf("schemas must be a table")
	}

	// Parent tables may only be implied by a nested header, so order comes
	// from the first key mentioning each name.
	var schemaOrder []string
	attrOrder := map[string][]string{}
	seen := map[string]bool{}
	for _, key := range md.Keys() {
		if len(key) < 2 || key[0] != "schemas" {
			continue
		}
		name := key[1]
		if !seen[name] {
			seen[name] = true
			schemaOrder = append(schemaOrder, name)
		}
		if len(key) >= 4 && key[2] == "attributes" {
			id := name + "\x00" + key[3]
			if !seen[id] {
				seen[id] = true
				attrOrder[name] = append(attrOrder[name], key[3])
			}
		}
	}

	defs := make([]Definition, 0, len(schemaOrder))
	for _, name := range schemaOrder {
		table, err := cast.ToStringMapE(schemas[name])
		if err != nil {
			return nil, fmt.Errorf("schema %q must be a table", name)
		}

		def := Definition{Name: name, Extends: cast.ToString(table["extends"])}
		if raw, ok := table["options"]; ok {
			opts := cast.ToStringMap(raw)
			if v, ok := opts["fail_on_missing"]; ok {
				fail := cast.ToBool(v)
				def.Options = &Options{FailOnMissing: &fail}
			}
		}

		if def.Attributes, err = tomlAttributes(table["attributes"], attrOrder[name]); err != nil {
			return nil, fmt.Errorf("schema %q: %w", name, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func tomlAttributes(raw any, order []string) ([]AttributeDef, error) {
	if raw == nil {
		return nil, nil
	}
	if list, ok := raw.([]any); ok {
		out := make([]AttributeDef, 0, len(list))
		for _, item := range list {
			out = append(out, AttributeDef{Name: cast.ToString(item)})
		}
		return out, nil
	}

	attrs, err := cast.ToStringMapE(raw)
	if err != nil {
		return nil, fmt.Errorf("attributes must be a table or a list of names")
	}

	out := make([]AttributeDef, 0, len(order))
	for _, name := range order {
		def, err := decodeAttribute(name, attrs[name])
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, nil
}
