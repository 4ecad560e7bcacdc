// Package mediator navigates fetched documents before they are mapped.
//
// A Mediator wraps a root document and a cursor over it. Each query chain
// starts with Select, narrows the selection with Where, Match, Take or Model
// and ends with a terminal (Value, Get, First, Head or Last) that returns
// the result and resets the cursor to the root:
//
//	m, err := mediator.Fetch(ctx, client, fetch.Plan{
//		"device":       "http://api/devices/1",
//		"measurements": "http://api/devices/1/measurements",
//	})
//	name, err := m.Select("device.attributes").Where("id_attribute", 1).First("description")
//	chart, err := m.Select("measurements").WhereKey("id_metric").Match(3).Model(chartSchema).Value()
package mediator

import (
	"context"
	"errors"

	"github.com/conduit-lang/mapper/internal/mapper/compare"
	"github.com/conduit-lang/mapper/internal/mapper/docpath"
	"github.com/conduit-lang/mapper/internal/mapper/fetch"
	"github.com/conduit-lang/mapper/internal/mapper/model"
)

// ErrDanglingMatch is returned when Match is called without a preceding
// WhereKey.
var ErrDanglingMatch = errors.New("match needs a pending where: call WhereKey(<property>) before Match(<condition>)")

// Option configures a Mediator.
type Option func(*Mediator)

// WithComparators replaces the comparator table used by Where and Match.
func WithComparators(t compare.Table) Option {
	return func(m *Mediator) { m.comparators = t }
}

// Mediator is a query cursor over a root document. It is not safe for
// concurrent use; separate mediators may share the same data.
type Mediator struct {
	data        any
	comparators compare.Table

	selection    any
	pendingWhere string
	fallback     any
	err          error
}

// New wraps data.
func New(data any, opts ...Option) *Mediator {
	m := &Mediator{
		data:        data,
		comparators: compare.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.selection = data
	return m
}

// Fetch resolves plan with f and wraps the result. plan is a single request
// or a fetch.Plan of names to requests; named requests run concurrently and
// the first failure aborts the fetch.
func Fetch(ctx context.Context, f fetch.Fetcher, plan any, opts ...Option) (*Mediator, error) {
	data, err := fetch.Resolve(ctx, f, plan)
	if err != nil {
		return nil, err
	}
	return New(data, opts...), nil
}

// Data returns the root document.
func (m *Mediator) Data() any {
	return m.data
}

// Err returns the error pending in the current chain.
func (m *Mediator) Err() error {
	return m.err
}

// Select starts a chain at path within the root document.
func (m *Mediator) Select(path string) *Mediator {
	m.reset()
	m.selection, _ = docpath.Get(m.data, path)
	return m
}

// Where keeps the selected items whose value at key satisfies condition.
func (m *Mediator) Where(key string, condition any) *Mediator {
	return m.WhereSpec(compare.Where{key: condition})
}

// WhereKey records key for a following Match.
func (m *Mediator) WhereKey(key string) *Mediator {
	m.pendingWhere = key
	return m
}

// Match supplies the condition for the key recorded by WhereKey.
func (m *Mediator) Match(condition any) *Mediator {
	if m.pendingWhere == "" {
		return m.fail(ErrDanglingMatch)
	}
	return m.Where(m.pendingWhere, condition)
}

// WhereSpec filters the selection with every condition in where. A list
// keeps its matching items in order; a single document is kept when it
// matches and otherwise dropped.
func (m *Mediator) WhereSpec(where compare.Where) *Mediator {
	m.pendingWhere = ""
	if m.err != nil || m.selection == nil {
		return m
	}

	if items, ok := docpath.AsSlice(m.selection); ok {
		kept, err := m.comparators.Filter(items, where)
		if err != nil {
			return m.fail(err)
		}
		m.selection = kept
		return m
	}

	ok, err := m.comparators.Match(m.selection, where)
	if err != nil {
		return m.fail(err)
	}
	if !ok {
		m.selection = nil
	}
	return m
}

// Model replaces the selection with its build through schema. The build
// runs on the calling goroutine and completes before Model returns.
func (m *Mediator) Model(schema *model.Schema, opts ...model.BuildOption) *Mediator {
	if m.err != nil || m.selection == nil {
		return m
	}
	out, err := schema.BuildSync(m.selection, opts...)
	if err != nil {
		return m.fail(err)
	}
	m.selection = out
	return m
}

// Take keeps the first n items of a list selection, or the last n when
// fromEnd is set.
func (m *Mediator) Take(n int, fromEnd bool) *Mediator {
	items, ok := docpath.AsSlice(m.selection)
	if m.err != nil || !ok {
		return m
	}
	if n < 0 {
		n = 0
	}
	if n > len(items) {
		n = len(items)
	}
	if fromEnd {
		m.selection = items[len(items)-n:]
	} else {
		m.selection = items[:n]
	}
	return m
}

// Default sets the value returned by the terminal (Value, Get, First, Head
// or Last) when its key is absent. It lasts until that terminal resets the
// cursor.
func (m *Mediator) Default(value any) *Mediator {
	m.fallback = value
	return m
}

// Value returns the selection, or the value at key within it, and resets
// the cursor.
func (m *Mediator) Value(key ...string) (any, error) {
	defer m.reset()
	if m.err != nil {
		return nil, m.err
	}
	if len(key) == 0 || key[0] == "" {
		return m.selection, nil
	}
	return docpath.Value(m.selection, key[0], m.fallback), nil
}

// Get narrows a list selection to the item at index, then behaves as Value.
// A negative index counts from the end. An absent key yields the value set
// by Default.
func (m *Mediator) Get(index int, key ...string) (any, error) {
	if items, ok := docpath.AsSlice(m.selection); ok {
		if index < 0 {
			index += len(items)
		}
		if index >= 0 && index < len(items) {
			m.selection = items[index]
		} else {
			m.selection = nil
		}
	}
	return m.Value(key...)
}

// First narrows a list selection to its first item, then behaves as Value,
// including the Default fallback.
func (m *Mediator) First(key ...string) (any, error) {
	return m.Get(0, key...)
}

// Head is First.
func (m *Mediator) Head(key ...string) (any, error) {
	return m.First(key...)
}

// Last narrows a list selection to its last item, then behaves as Value,
// including the Default fallback.
func (m *Mediator) Last(key ...string) (any, error) {
	return m.Get(-1, key...)
}

func (m *Mediator) fail(err error) *Mediator {
	if m.err == nil {
		m.err = err
	}
	return m
}

func (m *Mediator) reset() {
	m.selection = m.data
	m.pendingWhere = ""
	m.fallback = nil
	m.err = nil
}
