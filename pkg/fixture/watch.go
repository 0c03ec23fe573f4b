package fixture

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor produces on save.
const DefaultDebounce = 200 * time.Millisecond

// Watcher calls a function when a watched file changes.
//
// fsnotify can emit several events for a single save (write, chmod,
// rename-and-create), so events are debounced with a timer that is reset
// on every event for the file.
type Watcher struct {
	w        *fsnotify.Watcher
	target   string
	debounce time.Duration
	onChange func()
	logger   *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

// NewWatcher watches path and calls onChange after changes settle.
// The parent directory is watched so that editors that replace the file
// are still observed.
func NewWatcher(path string, debounce time.Duration, onChange func(), logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		w:        fw,
		target:   abs,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("fixture changed", "path", event.Name, "op", event.Op.String())
			w.schedule()
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.onChange)
		return
	}
	w.timer.Reset(w.debounce)
}

// Close stops watching. Pending callbacks are cancelled.
func (w *Watcher) Close() error {
	err := w.w.Close()
	<-w.done
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}
