package schemafile

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Schemas yaml.Node `yaml:"schemas"`
}

type yamlSchema struct {
	Extends    string       `yaml:"extends"`
	Options    *yamlOptions `yaml:"options"`
	Attributes yaml.Node    `yaml:"attributes"`
}

type yamlOptions struct {
	FailOnMissing *bool `yaml:"fail_on_missing"`
}

// ParseYAML reads schema definitions from a YAML document. Schemas and
// attributes keep the order they are written in.
func ParseYAML(data []byte) ([]Definition, error) {
	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if file.Schemas.Kind == 0 {
		return nil, nil
	}
	if file.Schemas.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: schemas must be a mapping", file.Schemas.Line)
	}

	var defs []Definition
	err := eachPair(&file.Schemas, func(key, value *yaml.Node) error {
		var raw yamlSchema
		if err := value.Decode(&raw); err != nil {
			return fmt.Errorf("schema %q: %w", key.Value, err)
		}

		def := Definition{Name: key.Value, Extends: raw.Extends}
		if raw.Options != nil {
			def.Options = &Options{FailOnMissing: raw.Options.FailOnMissing}
		}

		attrs, err := yamlAttributes(&raw.Attributes)
		if err != nil {
			return fmt.Errorf("schema %q: %w", key.Value, err)
		}
		def.Attributes = attrs
		defs = append(defs, def)
		return nil
	})
	return defs, err
}

func yamlAttributes(node *yaml.Node) ([]AttributeDef, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.SequenceNode:
		// A list of plain attribute names.
		var names []string
		if err := node.Decode(&names); err != nil {
			return nil, fmt.Errorf("line %d: attributes: %w", node.Line, err)
		}
		out := make([]AttributeDef, len(names))
		for i, name := range names {
			out[i] = AttributeDef{Name: name}
		}
		return out, nil
	case yaml.MappingNode:
	default:
		return nil, fmt.Errorf("line %d: attributes must be a mapping", node.Line)
	}

	var out []AttributeDef
	err := eachPair(node, func(key, value *yaml.Node) error {
		var raw any
		if err := value.Decode(&raw); err != nil {
			return fmt.Errorf("line %d: attribute %q: %w", value.Line, key.Value, err)
		}
		def, err := decodeAttribute(key.Value, raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", key.Line, err)
		}
		out = append(out, def)
		return nil
	})
	return out, err
}

func eachPair(node *yaml.Node, fn func(key, value *yaml.Node) error) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if err := fn(node.Content[i], node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}
