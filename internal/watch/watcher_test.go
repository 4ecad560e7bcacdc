package watch

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu    sync.Mutex
	calls [][]string
}

func (c *collector) add(names []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, names)
}

func (c *collector) snapshot() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]string(nil), c.calls...)
}

func TestDebouncer_CollapsesBurst(t *testing.T) {
	var c collector
	d := NewDebouncer(30 * time.Millisecond)
	d.SetCallback(c.add)

	d.Add("b")
	d.Add("a")
	d.Add("b")

	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, c.snapshot()[0])
}

func TestDebouncer_Stop(t *testing.T) {
	var c collector
	d := NewDebouncer(20 * time.Millisecond)
	d.SetCallback(c.add)

	d.Add("a")
	d.Stop()
	d.Add("b")

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, c.snapshot())
}

func TestWatcher_ReportsWatchedFiles(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "schemas.yaml")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(watched, []byte("a"), 0o644))

	var c collector
	w, err := New([]string{watched}, 20*time.Millisecond, nil, func(files []string) error {
		c.add(files)
		return nil
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(other, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(watched, []byte("b"), 0o644))

	require.Eventually(t, func() bool { return len(c.snapshot()) > 0 }, 2*time.Second, 10*time.Millisecond)
	abs, err := filepath.Abs(watched)
	require.NoError(t, err)
	for _, call := range c.snapshot() {
		assert.Equal(t, []string{abs}, call)
	}
}

func TestWatcher_CloseTwice(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "x.yaml")}, 0, nil, func([]string) error { return nil })
	require.NoError(t, err)
	assert.NoError(t, w.Close())
	assert.NoError(t, w.Close())
}
