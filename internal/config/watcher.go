package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/nativedbg/internal/logging"
)

// DefaultDebounce is the quiet period after the last file event before a
// reload.
const DefaultDebounce = 100 * time.Millisecond

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithErrorHandler receives reload and watch errors.
func WithErrorHandler(fn func(error)) WatcherOption {
	return func(w *Watcher) { w.onError = fn }
}

// WithWatcherLogger sets the logger.
func WithWatcherLogger(log *logging.Logger) WatcherOption {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// WithEnviron replaces os.Environ for reloads.
func WithEnviron(environ func() []string) WatcherOption {
	return func(w *Watcher) { w.environ = environ }
}

// Watcher reloads a config file whenever it changes and hands the valid
// result to a callback. The file's directory is watched, so editors that
// save by rename are followed too.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(Options)
	onError  func(error)
	environ  func() []string
	log      *logging.Logger

	fsw *fsnotify.Watcher

	mu       sync.Mutex
	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

// NewWatcher starts watching path. onChange runs on the watcher goroutine.
func NewWatcher(path string, onChange func(Options), opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := FormatOf(abs); err != nil {
		return nil, err
	}
	w := &Watcher{
		path:     abs,
		debounce: DefaultDebounce,
		onChange: onChange,
		environ:  os.Environ,
		log:      logging.Discard(),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.WithComponent("config").WithField("path", abs)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w.fsw = fsw

	w.closedWg.Add(1)
	go w.processLoop()
	return w, nil
}

// Path returns the watched file.
func (w *Watcher) Path() string { return w.path }

// Close stops the watcher. Calling it again is a no-op.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.closedWg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) processLoop() {
	defer w.closedWg.Done()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("config file event %s", ev.Op)
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.fail(err)

		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != w.path {
		return false
	}
	return ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Rename)
}

func (w *Watcher) reload() {
	if _, err := os.Stat(w.path); err != nil {
		// Renamed away mid-save; the create that follows triggers a reload.
		w.log.Debug("config file missing: %v", err)
		return
	}
	opts, err := LoadWithEnv(w.path, w.environ())
	if err != nil {
		w.fail(err)
		return
	}
	w.log.Info("config reloaded")
	if w.onChange != nil {
		w.onChange(opts)
	}
}

func (w *Watcher) fail(err error) {
	w.log.Warn("config reload failed: %v", err)
	if w.onError != nil {
		w.onError(err)
	}
}
