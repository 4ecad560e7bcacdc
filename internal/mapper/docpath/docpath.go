// Package docpath reads and writes values inside generic JSON-like documents
// addressed by dotted paths such as "device.attributes[0].description".
//
// Paths are parsed with ojg's JSONPath parser and cached. Only child and index
// fragments are meaningful; a leading "$" is ignored. A path that does not
// parse is treated as a single literal key.
package docpath

import (
	"reflect"
	"strings"
	"sync"

	"github.com/ohler55/ojg/jp"
)

var cache sync.Map // string -> jp.Expr

// Parse returns the fragments for p.
func Parse(p string) jp.Expr {
	if cached, ok := cache.Load(p); ok {
		return cached.(jp.Expr)
	}

	expr := parse(p)
	cache.Store(p, expr)
	return expr
}

func parse(p string) jp.Expr {
	if p == "" || p == "$" {
		return jp.Expr{}
	}

	x, err := jp.ParseString(p)
	if err != nil {
		return jp.Expr{jp.Child(p)}
	}

	out := make(jp.Expr, 0, len(x))
	for _, frag := range x {
		switch frag.(type) {
		case jp.Root, jp.At:
			continue
		case jp.Child, jp.Nth:
			out = append(out, frag)
		default:
			// Wildcards, filters and slices address many values; a document
			// path addresses one, so fall back to the literal key.
			return jp.Expr{jp.Child(p)}
		}
	}
	return out
}

// Key returns the canonical form of p. Two spellings of the same path
// ("a.b" and "a['b']") share a key.
func Key(p string) string {
	expr := Parse(p)
	if len(expr) == 0 {
		return ""
	}
	return strings.TrimPrefix(expr.String(), "$.")
}

// Get returns the value at p and whether the path resolved.
func Get(doc any, p string) (any, bool) {
	return getIn(doc, Parse(p))
}

// Value returns the value at p, or def when the path does not resolve.
func Value(doc any, p string, def any) any {
	if v, ok := Get(doc, p); ok {
		return v
	}
	return def
}

// Has reports whether p resolves inside doc.
func Has(doc any, p string) bool {
	_, ok := Get(doc, p)
	return ok
}

func getIn(node any, frags jp.Expr) (any, bool) {
	for i, frag := range frags {
		switch f := frag.(type) {
		case jp.Child:
			switch n := node.(type) {
			case map[string]any:
				v, ok := n[string(f)]
				if !ok {
					return nil, false
				}
				node = v
			case nil:
				return nil, false
			default:
				return reflectGet(node, frags[i:])
			}
		case jp.Nth:
			switch n := node.(type) {
			case []any:
				idx := int(f)
				if idx < 0 {
					idx += len(n)
				}
				if idx < 0 || idx >= len(n) {
					return nil, false
				}
				node = n[idx]
			case nil:
				return nil, false
			default:
				return reflectGet(node, frags[i:])
			}
		default:
			return nil, false
		}
	}
	return node, true
}

// reflectGet resolves the remaining fragments against typed maps, slices and
// structs. ojg reports a missing value as nil, so nil counts as absent here.
func reflectGet(node any, frags jp.Expr) (any, bool) {
	if v := frags.First(node); v != nil {
		return v, true
	}
	return nil, false
}

// Set writes v at p inside doc and returns the (possibly new) root.
// Missing or scalar intermediates are replaced with maps, or with slices
// when the next fragment is an index.
func Set(doc any, p string, v any) any {
	return setIn(doc, Parse(p), v)
}

func setIn(node any, frags jp.Expr, v any) any {
	if len(frags) == 0 {
		return v
	}

	switch f := frags[0].(type) {
	case jp.Nth:
		s, ok := node.([]any)
		if !ok {
			s = []any{}
		}
		idx := int(f)
		if idx < 0 {
			idx += len(s)
			if idx < 0 {
				idx = 0
			}
		}
		for len(s) <= idx {
			s = append(s, nil)
		}
		s[idx] = setIn(s[idx], frags[1:], v)
		return s
	case jp.Child:
		m, ok := node.(map[string]any)
		if !ok {
			m = map[string]any{}
		}
		m[string(f)] = setIn(m[string(f)], frags[1:], v)
		return m
	default:
		return node
	}
}

// Unset removes the value at p. Only map keys are removed; slice elements
// are left in place. It reports whether something was removed.
func Unset(doc any, p string) bool {
	frags := Parse(p)
	if len(frags) == 0 {
		return false
	}

	parent, ok := getIn(doc, frags[:len(frags)-1])
	if !ok {
		return false
	}

	key, isChild := frags[len(frags)-1].(jp.Child)
	m, isMap := parent.(map[string]any)
	if !isChild || !isMap {
		return false
	}
	if _, exists := m[string(key)]; !exists {
		return false
	}
	delete(m, string(key))
	return true
}

// Prune walks up the ancestors of p and removes each one that is an empty
// map, stopping at the first ancestor that still holds data. A path that is
// a strict prefix of another populated path is never removed.
func Prune(doc any, p string) {
	frags := Parse(p)
	for i := len(frags) - 1; i >= 1; i-- {
		ancestor := frags[:i]
		node, ok := getIn(doc, ancestor)
		if !ok {
			continue
		}
		m, isMap := node.(map[string]any)
		if !isMap || len(m) > 0 {
			return
		}
		parent, _ := getIn(doc, ancestor[:len(ancestor)-1])
		pm, isMap := parent.(map[string]any)
		key, isChild := ancestor[len(ancestor)-1].(jp.Child)
		if !isMap || !isChild {
			return
		}
		delete(pm, string(key))
	}
}

// Clone deep-copies maps and slices. Other values are returned as-is.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = Clone(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Clone(val)
		}
		return out
	default:
		return v
	}
}

// AsSlice reports whether v is a list and returns its elements.
// Byte slices are treated as scalars.
func AsSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []byte, string, nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// IsEmpty reports whether v is nil or an empty map, slice or string.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case string:
		return t == ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.String:
		return rv.Len() == 0
	}
	return false
}
