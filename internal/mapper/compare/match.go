package compare

import (
	"sort"

	"github.com/conduit-lang/mapper/internal/mapper/docpath"
)

// Where maps keys to conditions. At the top level keys are paths into the
// item; inside a nested condition map keys are operator names applied to
// the value selected by the enclosing key.
//
//	Where{"id": 1}                      // item.id === 1
//	Where{"id": Where{">": 10}}         // item.id > 10
//	Where{"name": Where{"match": re}}   // re matches item.name
//	Where{"tags": Predicate(fn)}        // fn(item.tags, item)
type Where map[string]any

// Predicate is a condition evaluated by a function instead of a comparator.
type Predicate func(value, item any) bool

const defaultOperator = "==="

// Match reports whether every condition in where holds for item.
func (t Table) Match(item any, where Where) (bool, error) {
	return t.match(item, where, defaultOperator)
}

func (t Table) match(item any, where map[string]any, operator string) (bool, error) {
	for _, key := range sortedKeys(where) {
		condition := where[key]

		value := item
		if operator != "" {
			value, _ = docpath.Get(item, key)
		}

		ok, err := t.evaluate(value, item, key, condition, operator)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (t Table) evaluate(value, item any, key string, condition any, operator string) (bool, error) {
	switch c := condition.(type) {
	case Where:
		return t.match(value, c, "")
	case map[string]any:
		return t.match(value, c, "")
	case Predicate:
		return c(value, item), nil
	case func(value, item any) bool:
		return c(value, item), nil
	}

	name := operator
	if name == "" {
		name = key
	}
	fn, err := t.Lookup(name)
	if err != nil {
		return false, err
	}
	return fn(value, condition), nil
}

// Filter returns the items matching where, in their original order.
func (t Table) Filter(items []any, where Where) ([]any, error) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		ok, err := t.Match(item, where)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, item)
		}
	}
	return out, nil
}

// Match evaluates where against item with the default table.
func Match(item any, where Where) (bool, error) {
	return defaultTable.Match(item, where)
}

// Filter filters items with the default table.
func Filter(items []any, where Where) ([]any, error) {
	return defaultTable.Filter(items, where)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
