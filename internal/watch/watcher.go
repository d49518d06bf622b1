package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vango-dev/debounce/internal/errors"
)

// Change represents a detected file change.
type Change struct {
	// Path is the file or directory that changed.
	Path string

	// Op is the fsnotify operation, e.g. WRITE or CREATE|REMOVE.
	Op fsnotify.Op

	// Seq numbers changes from 1 so repeated events on one path differ.
	Seq uint64

	// Time is when the event was received.
	Time time.Time
}

// Config configures the watcher.
type Config struct {
	// Paths are the files and directories to watch.
	Paths []string

	// Ignore patterns to skip.
	Ignore []string

	// Logger receives watch errors. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultIgnore contains default patterns to ignore.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher monitors paths for changes.
type Watcher struct {
	config   Config
	ignore   *Matcher
	logger   *slog.Logger
	onChange func(Change)
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	ready    chan struct{}
	readyOne sync.Once
	seq      atomic.Uint64
}

// New creates a watcher. It does nothing until Start.
func New(config Config) *Watcher {
	if len(config.Ignore) == 0 {
		config.Ignore = DefaultIgnore
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		config: config,
		ignore: NewMatcher(config.Ignore),
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// OnChange sets the callback for file changes. It runs on the watcher's
// goroutine and must not block for long.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Ready is closed once the initial paths are being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// IsRunning reports whether Start is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Start watches until ctx is done or Stop is called. It returns
// ctx.Err() on cancellation and nil after Stop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	stopCh := w.stopCh
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New("E151").Wrap(err)
	}
	defer fw.Close()

	for _, path := range w.config.Paths {
		if err := w.addRecursive(fw, path); err != nil {
			return errors.New("E151").
				WithDetail("Cannot watch " + path + ".").
				Wrap(err).
				WithSuggestion("Check that the path exists and is readable")
		}
	}
	w.readyOne.Do(func() { close(w.ready) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(fw, event)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

func (w *Watcher) handle(fw *fsnotify.Watcher, event fsnotify.Event) {
	if w.ignore.Match(event.Name) {
		return
	}
	// Permission and timestamp changes are noise for content watchers.
	if event.Op == fsnotify.Chmod {
		return
	}

	// A new directory is watched along with everything already inside it.
	if event.Has(fsnotify.Create) {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(fw, event.Name); err != nil {
				w.logger.Warn("watch new directory", "path", event.Name, "error", err)
			}
		}
	}

	w.mu.Lock()
	callback := w.onChange
	w.mu.Unlock()
	if callback == nil {
		return
	}

	callback(Change{
		Path: event.Name,
		Op:   event.Op,
		Seq:  w.seq.Add(1),
		Time: time.Now(),
	})
}

// addRecursive adds root and every non-ignored directory below it.
func (w *Watcher) addRecursive(fw *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fw.Add(root)
	}

	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Directories can vanish between the event and the walk.
			if p != root {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.ignore.Match(p) {
			return filepath.SkipDir
		}
		return fw.Add(p)
	})
}
