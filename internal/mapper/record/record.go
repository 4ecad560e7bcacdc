// Package record provides the mutable output tree a schema build writes into.
//
// A Record supports path based reads and writes plus one-shot subscriptions
// on exact paths. Subscriptions resolve copies whose source attribute is
// declared later in the schema: the copy registers interest in the source
// path and runs when that path is first written.
package record

import (
	"github.com/conduit-lang/mapper/internal/mapper/docpath"
)

// WriteFunc is a one-shot subscription callback. It receives the value
// written at the watched path.
type WriteFunc func(value any) error

// Record is a mutable document scoped to a single build invocation.
// It is not safe for concurrent use.
type Record struct {
	root     map[string]any
	watchers map[string][]WriteFunc

	held    int
	touched []string
	err     error
}

// New creates a record seeded with a deep copy of seed.
func New(seed map[string]any) *Record {
	root, _ := docpath.Clone(seed).(map[string]any)
	if root == nil {
		root = map[string]any{}
	}
	return &Record{
		root:     root,
		watchers: make(map[string][]WriteFunc),
	}
}

// Map returns the underlying tree. It is live, not a copy.
func (r *Record) Map() map[string]any {
	return r.root
}

// Get returns the value at path and whether it is present.
func (r *Record) Get(path string) (any, bool) {
	return docpath.Get(r.root, path)
}

// Value returns the value at path or def when absent.
func (r *Record) Value(path string, def any) any {
	return docpath.Value(r.root, path, def)
}

// Set writes value at path, creating intermediate containers, and notifies
// subscribers of exactly that path. Descendant and ancestor paths are not
// notified.
func (r *Record) Set(path string, value any) {
	if root, ok := docpath.Set(r.root, path, value).(map[string]any); ok {
		r.root = root
	}

	key := docpath.Key(path)
	if len(r.watchers[key]) == 0 {
		return
	}
	if r.held > 0 {
		r.touched = append(r.touched, key)
		return
	}
	r.notify(key)
}

// Unset removes the value at path and then prunes ancestors left empty.
func (r *Record) Unset(path string) {
	docpath.Unset(r.root, path)
	docpath.Prune(r.root, path)
}

// OnceWritten registers fn to run the first time path is written. The
// subscription is removed before fn runs.
func (r *Record) OnceWritten(path string, fn WriteFunc) {
	key := docpath.Key(path)
	r.watchers[key] = append(r.watchers[key], fn)
}

// Pending returns the number of subscriptions still waiting for a write.
func (r *Record) Pending() int {
	n := 0
	for _, fns := range r.watchers {
		n += len(fns)
	}
	return n
}

// Hold defers notifications until the matching Release. Holds nest.
func (r *Record) Hold() {
	r.held++
}

// Release ends a Hold. When the outermost hold is released every path
// touched while held is notified with the value it holds now; a path that
// no longer holds a value keeps its subscribers.
func (r *Record) Release() error {
	if r.held == 0 {
		return r.err
	}
	r.held--
	if r.held > 0 {
		return r.err
	}

	touched := r.touched
	r.touched = nil
	for _, key := range touched {
		r.notify(key)
	}
	return r.err
}

// Err returns the first error reported by a subscription callback.
func (r *Record) Err() error {
	return r.err
}

func (r *Record) notify(key string) {
	fns := r.watchers[key]
	if len(fns) == 0 {
		return
	}
	value, ok := docpath.Get(r.root, key)
	if !ok {
		return
	}

	delete(r.watchers, key)
	for _, fn := range fns {
		if err := fn(value); err != nil && r.err == nil {
			r.err = err
		}
	}
}
