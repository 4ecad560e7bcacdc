// Package watch reports changes to a fixed set of files.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDelay is the quiet period before changes are reported.
const DefaultDelay = 100 * time.Millisecond

// Watcher calls onChange with the files written since the last call. Bursts
// of events are collapsed by a Debouncer.
type Watcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	files     map[string]struct{}
	log       *zap.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// New watches files. Their directories are watched so editors that replace
// a file on save are still observed.
func New(files []string, delay time.Duration, log *zap.Logger, onChange func([]string) error) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if delay <= 0 {
		delay = DefaultDelay
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:   fw,
		debouncer: NewDebouncer(delay),
		files:     make(map[string]struct{}, len(files)),
		log:       log,
		stop:      make(chan struct{}),
	}
	w.debouncer.SetCallback(func(changed []string) {
		if err := onChange(changed); err != nil {
			log.Warn("change handler failed", zap.Strings("files", changed), zap.Error(err))
		}
	})

	dirs := map[string]struct{}{}
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	select {
	case <-w.stop:
		return nil
	default:
		close(w.stop)
	}
	err := w.watcher.Close()
	w.wg.Wait()
	w.debouncer.Stop()
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, watched := w.files[name]; watched {
				w.log.Debug("file changed", zap.String("file", name))
				w.debouncer.Add(name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))

		case <-w.stop:
			return
		}
	}
}
