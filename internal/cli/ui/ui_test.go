package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	assert.Equal(t, 3, Distance("kitten", "sitting"))
	assert.Equal(t, 3, Distance("saturday", "sunday"))
	assert.Equal(t, 4, Distance("", "four"))
	assert.Equal(t, 0, Distance("same", "same"))
}

func TestFindSimilar(t *testing.T) {
	known := []string{"store", "currency", "stores", "branch"}

	assert.Equal(t, []string{"store", "stores"}, FindSimilar("stor", known, nil))
	assert.Equal(t, []string{"currency"}, FindSimilar("CURENCY", known, nil))
	assert.Empty(t, FindSimilar("CURENCY", known, &SimilarOptions{CaseSensitive: true}))
	assert.Equal(t, []string{"store"}, FindSimilar("stor", known, &SimilarOptions{MaxSuggestions: 1}))
}

func TestProblem_Format(t *testing.T) {
	out := UnknownSchema("stor", []string{"store", "currency"}, true).Format()

	assert.Contains(t, out, "✗ UNKNOWN SCHEMA: stor")
	assert.Contains(t, out, "Did you mean: store?")
	assert.Contains(t, out, "→ List schemas")
}

func TestSuccess(t *testing.T) {
	var buf bytes.Buffer
	WriteSuccess(&buf, "3 schemas", true)
	assert.Equal(t, "✓ 3 schemas\n", buf.String())
}

func TestTable_Render(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, true, "NAME", "ATTRIBUTES")
	table.AddRow("store", "4")
	table.AddRow("currency")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"NAME      ATTRIBUTES",
		"────────  ──────────",
		"store     4",
		"currency",
	}, lines)
}
