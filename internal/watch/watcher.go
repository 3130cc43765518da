package watch

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/kode4food/twill/pkg/log"
)

type (
	// Watcher polls a file for content changes, lets bursts of writes
	// settle, and invokes registered callbacks with the latest content.
	// Only a genuine change in bytes counts; a bumped modification time
	// with identical content is remembered but never fires
	Watcher struct {
		lastMod   time.Time
		stop      chan struct{}
		done      chan struct{}
		path      string
		callbacks []Callback
		lastData  []byte
		interval  time.Duration
		debounce  time.Duration
		mu        sync.Mutex
		tracked   bool
		running   bool
	}

	// Callback receives the state of the watched file after a change is
	// detected or a reload is forced. Callbacks run synchronously in
	// registration order under the watcher lock
	Callback func(*Change)

	// Change describes the watched file at the moment callbacks fire
	Change struct {
		ModTime     time.Time
		Path        string
		Content     []byte
		Forced      bool
		Disappeared bool
	}
)

// ErrCallbackPanic reports a reload callback that panicked
var ErrCallbackPanic = errors.New("reload callback panicked")

const stopTimeout = 5 * time.Second

// New creates a watcher for the file at path. The interval sets the
// poll cadence and the debounce sets how long a detected change is
// given to settle before callbacks fire
func New(path string, interval, debounce time.Duration) *Watcher {
	return &Watcher{
		path:     path,
		interval: interval,
		debounce: debounce,
	}
}

// OnReload registers a callback. The same callback may be registered
// more than once and will fire once per registration
func (w *Watcher) OnReload(fn Callback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Start begins polling in the background. Starting a watcher that is
// already running is a no-op beyond a warning
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		slog.Warn("Watcher already running", log.Path(w.path))
		return
	}
	w.running = true
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	stop, done := w.stop, w.done
	w.mu.Unlock()

	w.prime()
	go w.loop(stop, done)
	slog.Info("Watcher started",
		log.Path(w.path),
		slog.Duration("interval", w.interval))
}

// Stop halts the polling loop, waiting a bounded time for it to exit.
// Stopping a watcher that is not running is a no-op
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	stop, done := w.stop, w.done
	w.mu.Unlock()

	close(stop)
	select {
	case <-done:
		slog.Info("Watcher stopped", log.Path(w.path))
	case <-time.After(stopTimeout):
		slog.Warn("Watcher loop did not exit before timeout",
			log.Path(w.path))
	}
}

// ForceReload invokes every callback with the current file state,
// bypassing change detection entirely
func (w *Watcher) ForceReload() {
	info, err := os.Stat(w.path)
	if os.IsNotExist(err) {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.fire(&Change{Path: w.path, Forced: true, Disappeared: true})
		return
	}
	if err != nil {
		slog.Warn("Watched file could not be inspected",
			log.Path(w.path), log.Error(err))
		return
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		slog.Warn("Watched file could not be read",
			log.Path(w.path), log.Error(err))
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.fire(&Change{
		ModTime: info.ModTime(),
		Path:    w.path,
		Content: data,
		Forced:  true,
	})
}

// prime seeds the change cache from the file's current state so the
// first poll after Start compares against what is already on disk
func (w *Watcher) prime() {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tracked = true
	w.lastMod = info.ModTime()
	w.lastData = data
}

func (w *Watcher) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.poll(stop)
		}
	}
}

// poll runs one tick of the change detector. Modification time gates
// the content read; only differing bytes proceed to the debounce and
// the re-check that decides whether callbacks fire
func (w *Watcher) poll(stop <-chan struct{}) {
	info, err := os.Stat(w.path)
	if os.IsNotExist(err) {
		w.fileGone()
		return
	}
	if err != nil {
		slog.Warn("Watched file could not be inspected",
			log.Path(w.path), log.Error(err))
		return
	}

	w.mu.Lock()
	unchanged := w.tracked && info.ModTime().Equal(w.lastMod)
	w.mu.Unlock()
	if unchanged {
		return
	}

	data, ok := w.read()
	if !ok {
		return
	}

	w.mu.Lock()
	touched := w.tracked && bytes.Equal(data, w.lastData)
	if touched {
		// mtime moved but the bytes did not; remember the new
		// mtime so later polls fall back to content comparison
		w.lastMod = info.ModTime()
	}
	w.mu.Unlock()
	if touched {
		return
	}

	if !w.settle(stop) {
		return
	}

	info, err = os.Stat(w.path)
	if os.IsNotExist(err) {
		w.fileGone()
		return
	}
	if err != nil {
		slog.Warn("Watched file could not be inspected",
			log.Path(w.path), log.Error(err))
		return
	}
	data, ok = w.read()
	if !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.tracked && bytes.Equal(data, w.lastData) {
		// the burst settled back to known content
		w.lastMod = info.ModTime()
		return
	}
	w.fire(&Change{
		ModTime: info.ModTime(),
		Path:    w.path,
		Content: data,
	})
}

// read returns the file's bytes, reporting disappearance between the
// stat and the read as the file going away
func (w *Watcher) read() ([]byte, bool) {
	data, err := os.ReadFile(w.path)
	if os.IsNotExist(err) {
		w.fileGone()
		return nil, false
	}
	if err != nil {
		slog.Warn("Watched file could not be read",
			log.Path(w.path), log.Error(err))
		return nil, false
	}
	return data, true
}

func (w *Watcher) fileGone() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.tracked {
		return
	}
	w.fire(&Change{Path: w.path, Disappeared: true})
}

// settle waits out the debounce interval, aborting early on stop
func (w *Watcher) settle(stop <-chan struct{}) bool {
	timer := time.NewTimer(w.debounce)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-stop:
		return false
	}
}

// fire updates the change cache and invokes every callback in
// registration order. Callers must hold the watcher lock
func (w *Watcher) fire(ch *Change) {
	if ch.Disappeared {
		w.tracked = false
		w.lastMod = time.Time{}
		w.lastData = nil
	} else {
		w.tracked = true
		w.lastMod = ch.ModTime
		w.lastData = ch.Content
	}
	slog.Info("Watched file reloading",
		log.Path(w.path),
		slog.Bool("disappeared", ch.Disappeared),
		slog.Bool("forced", ch.Forced))
	for _, fn := range w.callbacks {
		if err := runCallback(fn, ch); err != nil {
			slog.Error("Reload callback failed",
				log.Path(w.path), log.Error(err))
		}
	}
}

func runCallback(fn Callback, ch *Change) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrCallbackPanic, rec)
		}
	}()
	fn(ch)
	return nil
}
