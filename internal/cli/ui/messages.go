// Package ui formats terminal output for the mapper command.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a message.
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Problem describes a failure for the terminal.
type Problem struct {
	Level       Level
	Context     string
	Message     string
	Suggestions []string
	Hints       []string
	NoColor     bool
}

// Format renders p:
//
//	✗ UNKNOWN SCHEMA: stor
//	   Did you mean: store?
//
//	   → List schemas: mapper check --schemas schemas.yaml
func (p Problem) Format() string {
	var b strings.Builder

	header, symbol := color.New(color.FgRed, color.Bold), "✗"
	switch p.Level {
	case LevelWarning:
		header, symbol = color.New(color.FgYellow, color.Bold), "!"
	case LevelInfo:
		header, symbol = color.New(color.FgCyan, color.Bold), "i"
	}
	hint := color.New(color.FgCyan)
	suggest := color.New(color.FgYellow)
	if p.NoColor {
		header.DisableColor()
		hint.DisableColor()
		suggest.DisableColor()
	}

	if p.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(p.Context), p.Message)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, p.Message)
	}

	if len(p.Suggestions) > 0 {
		suggest.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(p.Suggestions, ", "))
	}

	if len(p.Hints) > 0 {
		b.WriteString("\n")
		for _, h := range p.Hints {
			hint.Fprintf(&b, "   → %s\n", h)
		}
	}
	return b.String()
}

// Write writes p to w.
func (p Problem) Write(w io.Writer) {
	fmt.Fprint(w, p.Format())
}

// UnknownSchema reports a schema name missing from the registry with the
// closest known names.
func UnknownSchema(name string, known []string, noColor bool) Problem {
	return Problem{
		Context:     "unknown schema",
		Message:     name,
		Suggestions: FindSimilar(name, known, nil),
		Hints:       []string{"List schemas: mapper check --schemas <file>"},
		NoColor:     noColor,
	}
}

// Success formats a success line.
func Success(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success line to w.
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, Success(message, noColor))
}
