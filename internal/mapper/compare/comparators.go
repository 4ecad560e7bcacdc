// Package compare holds the named comparators used to filter fetched
// documents and the matching engine built on top of them.
package compare

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Comparator reports whether actual satisfies expected.
type Comparator func(actual, expected any) bool

// Pattern is the expected value of the "match" comparator.
// *regexp.Regexp satisfies it.
type Pattern interface {
	MatchString(s string) bool
}

// ErrUnknownComparator is matched by every UnknownComparatorError.
var ErrUnknownComparator = errors.New("unknown comparator")

// UnknownComparatorError is returned when a where spec names an operator
// the table does not define.
type UnknownComparatorError struct {
	Name  string
	Valid []string
}

func (e *UnknownComparatorError) Error() string {
	return fmt.Sprintf("comparison method %s not found, use one of: [%s]", e.Name, strings.Join(e.Valid, ", "))
}

// Is matches ErrUnknownComparator.
func (e *UnknownComparatorError) Is(target error) bool {
	return target == ErrUnknownComparator
}

// Table is an immutable set of named comparators.
type Table struct {
	fns map[string]Comparator
}

var defaultTable = Table{fns: map[string]Comparator{
	"==":         LooseEqual,
	"===":        StrictEqual,
	"!=":         func(a, b any) bool { return !LooseEqual(a, b) },
	"!==":        func(a, b any) bool { return !StrictEqual(a, b) },
	"eq":         StrictEqual,
	"notEq":      func(a, b any) bool { return !StrictEqual(a, b) },
	">":          func(a, b any) bool { c, ok := order(a, b); return ok && c > 0 },
	"<":          func(a, b any) bool { c, ok := order(a, b); return ok && c < 0 },
	">=":         func(a, b any) bool { c, ok := order(a, b); return ok && c >= 0 },
	"<=":         func(a, b any) bool { c, ok := order(a, b); return ok && c <= 0 },
	"in":         func(a, b any) bool { return contains(b, a) },
	"notIn":      func(a, b any) bool { return !contains(b, a) },
	"startsWith": stringPredicate(strings.HasPrefix),
	"endsWith":   stringPredicate(strings.HasSuffix),
	"match":      matchPattern,
	"is":         isType,
}}

// Default returns the built-in comparator table.
func Default() Table {
	return defaultTable
}

// With returns a copy of t with fn registered under name. Existing names
// are replaced in the copy only.
func (t Table) With(name string, fn Comparator) Table {
	fns := make(map[string]Comparator, len(t.fns)+1)
	for k, v := range t.fns {
		fns[k] = v
	}
	fns[name] = fn
	return Table{fns: fns}
}

// Lookup returns the comparator registered under name.
func (t Table) Lookup(name string) (Comparator, error) {
	fn, ok := t.fns[name]
	if !ok {
		return nil, &UnknownComparatorError{Name: name, Valid: t.Names()}
	}
	return fn, nil
}

// Names returns the registered operator names, sorted.
func (t Table) Names() []string {
	names := make([]string, 0, len(t.fns))
	for name := range t.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StrictEqual compares numbers by value regardless of Go kind; every other
// value must have the same dynamic type and be deeply equal.
func StrictEqual(a, b any) bool {
	if x, ok := number(a); ok {
		y, ok := number(b)
		return ok && x == y
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// LooseEqual is StrictEqual plus coercion of numeric strings and bools when
// compared against numbers.
func LooseEqual(a, b any) bool {
	if StrictEqual(a, b) {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	_, aNum := number(a)
	_, bNum := number(b)
	if aNum || bNum {
		x, errA := cast.ToFloat64E(a)
		y, errB := cast.ToFloat64E(b)
		return errA == nil && errB == nil && x == y
	}
	return false
}

// order compares a and b. Numbers compare numerically, strings
// lexicographically, times chronologically. A number and a numeric string
// compare as numbers.
func order(a, b any) (int, bool) {
	x, aNum := number(a)
	y, bNum := number(b)
	switch {
	case aNum && bNum:
		return cmpFloat(x, y)
	case aNum || bNum:
		fx, errA := cast.ToFloat64E(a)
		fy, errB := cast.ToFloat64E(b)
		if errA != nil || errB != nil {
			return 0, false
		}
		return cmpFloat(fx, fy)
	}

	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb), true
		}
		return 0, false
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb), true
		}
	}
	return 0, false
}

func cmpFloat(x, y float64) (int, bool) {
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

// number reports whether v is a Go numeric value and returns it as float64.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func contains(collection, item any) bool {
	switch c := collection.(type) {
	case nil:
		return false
	case string:
		s, ok := item.(string)
		return ok && strings.Contains(c, s)
	case []any:
		for _, v := range c {
			if StrictEqual(v, item) {
				return true
			}
		}
		return false
	}

	rv := reflect.ValueOf(collection)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if StrictEqual(rv.Index(i).Interface(), item) {
				return true
			}
		}
	case reflect.Map:
		key := reflect.ValueOf(item)
		if key.IsValid() && key.Type().AssignableTo(rv.Type().Key()) {
			return rv.MapIndex(key).IsValid()
		}
	}
	return false
}

func stringPredicate(fn func(s, affix string) bool) Comparator {
	return func(a, b any) bool {
		s, ok := a.(string)
		if !ok {
			return false
		}
		affix, ok := b.(string)
		return ok && fn(s, affix)
	}
}

func matchPattern(a, b any) bool {
	s, ok := a.(string)
	if !ok {
		return false
	}
	p, ok := b.(Pattern)
	return ok && p.MatchString(s)
}
