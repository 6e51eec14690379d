package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"pdfwhacker/internal/fileutil"
	"pdfwhacker/internal/logging"
)

// Event reports a PDF that appeared in one of the watched directories.
type Event struct {
	Dir  string
	Path string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithBuffer sets the capacity of the event channel.
func WithBuffer(n int) Option {
	return func(w *Watcher) {
		if n >= 0 {
			w.buffer = n
		}
	}
}

// Watcher turns filesystem creation notifications into PDF arrival events.
type Watcher struct {
	fsw       *fsnotify.Watcher
	closeOnce sync.Once
	closeErr  error
	dirs      map[string]struct{}
	events    chan Event
	buffer    int
	logger    *slog.Logger
}

// New watches each directory in dirs (non-recursively).
func New(dirs []string, opts ...Option) (*Watcher, error) {
	if len(dirs) == 0 {
		return nil, errors.New("at least one directory required")
	}
	w := &Watcher{
		dirs:   make(map[string]struct{}, len(dirs)),
		buffer: 64,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.NewComponentLogger(w.logger, "watcher")

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		w.dirs[dir] = struct{}{}
	}
	w.fsw = fsw
	w.events = make(chan Event, w.buffer)
	return w, nil
}

// Events delivers arrivals until Run returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Close releases the inotify handle. Run calls it on return; callers that
// never start Run must call it themselves. Repeated calls are no-ops.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fsw.Close()
	})
	return w.closeErr
}

// Run forwards matching notifications until ctx is cancelled. It closes the
// event channel and the underlying watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.events)
	defer func() { _ = w.Close() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			event, match := w.translate(ev)
			if !match {
				continue
			}
			select {
			case w.events <- event:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				logging.WarnWithContext(w.logger, "watch event queue overflowed", "watch_overflow",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "restart the watcher to rescan the input folders"),
					logging.String(logging.FieldImpact, "some arrivals may not be processed until restart"),
				)
				continue
			}
			w.logger.Warn("watch error", logging.Error(err))
		}
	}
}

func (w *Watcher) translate(ev fsnotify.Event) (Event, bool) {
	if !ev.Has(fsnotify.Create) {
		return Event{}, false
	}
	if !fileutil.IsPDF(ev.Name) {
		return Event{}, false
	}
	dir := filepath.Dir(ev.Name)
	if _, ok := w.dirs[dir]; !ok {
		return Event{}, false
	}
	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		return Event{}, false
	}
	return Event{Dir: dir, Path: ev.Name}, true
}
