package watch

import (
	"sort"
	"sync"
	"time"
)

// Debouncer collects names and hands them to a callback once no new name
// has arrived for its delay.
type Debouncer struct {
	delay    time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	pending  map[string]struct{}
	callback func([]string)
	stopped  bool
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, pending: map[string]struct{}{}}
}

// SetCallback sets the function receiving collected names.
func (d *Debouncer) SetCallback(fn func([]string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callback = fn
}

// Add records name and restarts the quiet period.
func (d *Debouncer) Add(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.pending[name] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

// flush calls the callback outside the lock with the names in sorted order.
func (d *Debouncer) flush() {
	d.mu.Lock()
	if len(d.pending) == 0 || d.stopped {
		d.mu.Unlock()
		return
	}
	names := make([]string, 0, len(d.pending))
	for name := range d.pending {
		names = append(names, name)
	}
	d.pending = map[string]struct{}{}
	fn := d.callback
	d.mu.Unlock()

	sort.Strings(names)
	if fn != nil {
		fn(names)
	}
}

// Stop drops pending names and disables further callbacks.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.stopped = true
	d.pending = map[string]struct{}{}
}
