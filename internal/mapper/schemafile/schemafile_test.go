package schemafile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/mapper/internal/mapper/model"
)

const storesYAML = `
schemas:
  branch:
    attributes:
      id: {}
      city:
  store:
    attributes:
      first_name: firstName
      price: { type: number }
      "?formatted": { copy: price, format: "$0,0.00" }
      created_at: { as: created, format: { type: date, from: "YYYY-MM-DD", to: "MMM. Do, YYYY" } }
      "?status": { default: open }
  detail:
    extends: store
    options: { fail_on_missing: false }
    attributes:
      branches: { many: branch }
      owner: { one: person }
  person:
    attributes: [name, email]
`

const currenciesTOML = `
[schemas.currency]
attributes = ["code", "symbol"]

[schemas.price]
extends = "currency"

[schemas.price.options]
fail_on_missing = false

[schemas.price.attributes]
amount = { type = "number" }
"?label" = { copy = "amount", format = "0.00" }
code = "currencyCode"
`

func compileYAML(t *testing.T, src string) *Registry {
	t.Helper()
	defs, err := ParseYAML([]byte(src))
	require.NoError(t, err)
	reg, err := Compile(defs)
	require.NoError(t, err)
	return reg
}

func TestParseYAML_Order(t *testing.T) {
	defs, err := ParseYAML([]byte(storesYAML))
	require.NoError(t, err)
	require.Len(t, defs, 4)

	names := []string{defs[0].Name, defs[1].Name, defs[2].Name, defs[3].Name}
	assert.Equal(t, []string{"branch", "store", "detail", "person"}, names)

	store := defs[1]
	require.Len(t, store.Attributes, 5)
	assert.Equal(t, AttributeDef{Name: "first_name", As: "firstName"}, store.Attributes[0])
	assert.Equal(t, "number", store.Attributes[1].Type)
	assert.Equal(t, &FormatDef{Type: "number", Pattern: "$0,0.00"}, store.Attributes[2].Format)
	assert.Equal(t, &FormatDef{Type: "date", Pattern: "MMM. Do, YYYY", From: "YYYY-MM-DD"}, store.Attributes[3].Format)
	assert.True(t, store.Attributes[4].HasDefault)
	assert.Equal(t, "open", store.Attributes[4].Default)

	detail := defs[2]
	assert.Equal(t, "store", detail.Extends)
	require.NotNil(t, detail.Options)
	assert.False(t, *detail.Options.FailOnMissing)

	assert.Equal(t, []AttributeDef{{Name: "name"}, {Name: "email"}}, defs[3].Attributes)
}

func TestCompile_YAML(t *testing.T) {
	reg := compileYAML(t, storesYAML)
	assert.Equal(t, []string{"branch", "detail", "person", "store"}, reg.Names())
	assert.Equal(t, 4, reg.Len())

	store, ok := reg.Get("store")
	require.True(t, ok)
	assert.Equal(t, []string{"first_name", "price", "formatted", "created_at", "status"}, store.Paths())
	assert.True(t, store.Options().FailOnMissing)

	detail, ok := reg.Get("detail")
	require.True(t, ok)
	assert.Equal(t, []string{"first_name", "price", "formatted", "created_at", "status", "branches", "owner"}, detail.Paths())
	assert.False(t, detail.Options().FailOnMissing)

	out, err := detail.BuildOne(context.Background(), map[string]any{
		"first_name": "Ada",
		"price":      "10",
		"created_at": "2024-03-01",
		"branches": []any{
			map[string]any{"id": 1, "city": "Porto", "manager": "x"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"firstName": "Ada",
		"price":     10.0,
		"formatted": "$10.00",
		"created":   "Mar. 1st, 2024",
		"status":    "open",
		"branches": []any{
			map[string]any{"id": 1, "city": "Porto"},
		},
	}, out)

	_, err = store.BuildOne(context.Background(), map[string]any{"price": 1})
	assert.ErrorIs(t, err, model.ErrMissingAttribute)
}

func TestCompile_ReferencesInAnyOrder(t *testing.T) {
	reg := compileYAML(t, `
schemas:
  order:
    attributes:
      lines: { many: line }
  line:
    attributes:
      sku: {}
`)
	order, _ := reg.Get("order")
	line, _ := reg.Get("line")
	lines, ok := order.Lookup("lines")
	require.True(t, ok)
	assert.Equal(t, model.KindMany, lines.Kind())
	assert.Same(t, line, lines.Nested())
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"cycle", `
schemas:
  a: { extends: b }
  b: { extends: a }
`, "extends itself"},
		{"unknown base", `
schemas:
  a: { extends: nope }
`, `extends unknown schema "nope"`},
		{"unknown reference", `
schemas:
  a:
    attributes:
      owner: { one: nope }
`, `unknown schema "nope"`},
		{"unknown type", `
schemas:
  a:
    attributes:
      n: { type: decimal }
`, `unknown type "decimal"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs, err := ParseYAML([]byte(tt.src))
			require.NoError(t, err)
			_, err = Compile(defs)
			assert.ErrorContains(t, err, tt.want)
		})
	}

	_, err := Compile([]Definition{{Name: "a", Source: "one.yaml"}, {Name: "a", Source: "two.yaml"}})
	assert.ErrorContains(t, err, `schema "a" declared twice (one.yaml, two.yaml)`)

	_, err = Compile([]Definition{{Source: "x.yaml"}})
	assert.ErrorContains(t, err, "schema without a name")
}

func TestParseYAML_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"schemas list", "schemas: [a, b]", "schemas must be a mapping"},
		{"unknown modifier", "schemas:\n  a:\n    attributes:\n      x: { colour: red }", `unknown modifier "colour"`},
		{"one and many", "schemas:\n  a:\n    attributes:\n      x: { one: b, many: b }", "one and many are exclusive"},
		{"format type", "schemas:\n  a:\n    attributes:\n      x: { format: { type: money, pattern: '0' } }", `unknown format type "money"`},
		{"format pattern", "schemas:\n  a:\n    attributes:\n      x: { format: { type: date } }", "date format needs a pattern"},
		{"attribute shape", "schemas:\n  a:\n    attributes:\n      x: [1, 2]", "expected a rename or a map of modifiers"},
		{"syntax", "schemas: [", "parse yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.src))
			assert.ErrorContains(t, err, tt.want)
		})
	}

	defs, err := ParseYAML([]byte("other: 1"))
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestParseTOML(t *testing.T) {
	defs, err := ParseTOML([]byte(currenciesTOML))
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, "currency", defs[0].Name)
	assert.Equal(t, []AttributeDef{{Name: "code"}, {Name: "symbol"}}, defs[0].Attributes)

	price := defs[1]
	assert.Equal(t, "currency", price.Extends)
	require.NotNil(t, price.Options)
	assert.False(t, *price.Options.FailOnMissing)
	require.Len(t, price.Attributes, 3)
	assert.Equal(t, "amount", price.Attributes[0].Name)
	assert.Equal(t, "?label", price.Attributes[1].Name)
	assert.Equal(t, AttributeDef{Name: "code", As: "currencyCode"}, price.Attributes[2])

	reg, err := Compile(defs)
	require.NoError(t, err)
	s, _ := reg.Get("price")
	assert.Equal(t, []string{"code", "symbol", "amount", "label"}, s.Paths(), "redeclared paths keep their position")

	out, err := s.BuildOne(context.Background(), map[string]any{"code": "EUR", "amount": "3.5"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"currencyCode": "EUR", "amount": 3.5, "label": "3.50"}, out)
}

func TestParseTOML_Errors(t *testing.T) {
	_, err := ParseTOML([]byte("schemas = 1"))
	assert.ErrorContains(t, err, "schemas must be a table")

	_, err = ParseTOML([]byte("[schemas"))
	assert.ErrorContains(t, err, "parse toml")

	_, err = ParseTOML([]byte("[schemas.a.attributes]\nx = { colour = \"red\" }"))
	assert.ErrorContains(t, err, `unknown modifier "colour"`)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "stores.yaml")
	tomlPath := filepath.Join(dir, "currencies.toml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(storesYAML), 0o644))
	require.NoError(t, os.WriteFile(tomlPath, []byte(currenciesTOML), 0o644))

	reg, err := Load(yamlPath, tomlPath)
	require.NoError(t, err)
	assert.Equal(t, 6, reg.Len())
	assert.Equal(t, yamlPath, reg.Source("store"))
	assert.Equal(t, tomlPath, reg.Source("currency"))

	_, err = Load(yamlPath, yamlPath)
	assert.ErrorContains(t, err, "declared twice")

	jsonPath := filepath.Join(dir, "schemas.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte("{}"), 0o644))
	_, err = Load(jsonPath)
	assert.ErrorContains(t, err, "unsupported schema file extension")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "read schema file")
}

func TestRegistry_Nil(t *testing.T) {
	var reg *Registry
	_, ok := reg.Get("x")
	assert.False(t, ok)
	assert.Nil(t, reg.Names())
	assert.Zero(t, reg.Len())
	assert.Empty(t, reg.Source("x"))
}
