package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/mapper/internal/mapper/fetch"
)

const schemasYAML = `
schemas:
  store:
    attributes:
      first_name: firstName
      price: { type: number }
      "?formatted": { copy: price, format: "$0,0.00" }
`

func init() {
	color.NoColor = true
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "mapper", cmd.Use)

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"version", "serve", "build", "check", "routes", "fetch"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.2.3-test"
	out, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mapper version: 1.2.3-test")
	assert.Contains(t, out, "Go version: ")
}

func TestBuildCommand(t *testing.T) {
	dir := t.TempDir()
	schemas := writeFile(t, dir, "schemas.yaml", schemasYAML)

	out, _, err := execute(t, `{"first_name": "Ada", "price": "1234.56"}`,
		"build", "--schemas", schemas, "--schema", "store")
	require.NoError(t, err)

	got, err := oj.ParseString(out)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"firstName": "Ada",
		"price":     1234.56,
		"formatted": "$1,234.56",
	}, got)
}

func TestBuildCommand_ListAndOne(t *testing.T) {
	dir := t.TempDir()
	schemas := writeFile(t, dir, "schemas.yaml", schemasYAML)
	input := writeFile(t, dir, "in.json", `[{"first_name": "Ada", "price": 1}, {"first_name": "Bob", "price": 2}]`)

	out, _, err := execute(t, "", "build", "-s", schemas, "--schema", "store", "-i", input)
	require.NoError(t, err)
	got, err := oj.ParseString(out)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	out, _, err = execute(t, "", "build", "-s", schemas, "--schema", "store", "-i", input, "--one")
	require.NoError(t, err)
	got, err = oj.ParseString(out)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.(map[string]any)["firstName"])
}

func TestBuildCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	schemas := writeFile(t, dir, "schemas.yaml", schemasYAML)

	_, stderr, err := execute(t, "{}", "build", "-s", schemas, "--schema", "stor")
	require.Error(t, err)
	assert.Contains(t, stderr, "Did you mean: store?")

	_, _, err = execute(t, `{"price": 1}`, "build", "-s", schemas, "--schema", "store")
	assert.ErrorContains(t, err, "first_name")

	out, _, err := execute(t, `{"price": 1}`, "build", "-s", schemas, "--schema", "store", "--lenient")
	require.NoError(t, err)
	got, err := oj.ParseString(out)
	require.NoError(t, err)
	assert.NotContains(t, got, "firstName")

	_, _, err = execute(t, `{not json`, "build", "-s", schemas, "--schema", "store")
	assert.ErrorContains(t, err, "parse")
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	schemas := writeFile(t, dir, "schemas.yaml", schemasYAML)

	out, _, err := execute(t, "", "check", "-s", schemas, "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "store")
	assert.Contains(t, out, "formatted (optional) [copy price, format]")
	assert.Contains(t, out, "first_name [as firstName]")
	assert.Contains(t, out, "✓ 1 schemas")

	config := writeFile(t, dir, "mapper.yaml", `
schemas:
  - `+schemas+`
endpoints:
  - path: /stores
    fetch: http://api/stores
    schema: shop
`)
	_, stderr, err := execute(t, "", "check", "-c", config)
	assert.ErrorContains(t, err, `unknown schema "shop"`)
	assert.Contains(t, stderr, "UNKNOWN SCHEMA: shop")
}

func TestRoutesCommand(t *testing.T) {
	config := writeFile(t, t.TempDir(), "mapper.yaml", `
endpoints:
  - path: /stores/{id}
    fetch:
      store: http://api/stores/{id}
      rates: http://api/rates
    select: store
  - path: /rates
    method: post
    fetch: http://api/rates
`)

	out, _, err := execute(t, "", "routes", "-c", config)
	require.NoError(t, err)
	assert.Contains(t, out, "/stores/{id}")
	assert.Contains(t, out, "POST")
	assert.Contains(t, out, "store")
}

func TestFetchPlan(t *testing.T) {
	assert.Equal(t, "http://api/x?a=1", fetchPlan([]string{"http://api/x?a=1"}))
	assert.Equal(t, fetch.Plan{
		"store": "http://api/stores/1",
		"doc1":  "http://api/rates?base=EUR",
	}, fetchPlan([]string{"store=http://api/stores/1", "http://api/rates?base=EUR"}))
}

func TestCheckCommand_Example(t *testing.T) {
	out, _, err := execute(t, "", "check", "-c", filepath.Join("..", "..", "..", "examples", "stores", "mapper.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 3 endpoints")
	assert.Contains(t, out, "✓ 5 schemas")
}
