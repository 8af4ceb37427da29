package chaos

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// changeChannelBuffer is the size of the change notification channel.
const changeChannelBuffer = 16

// defaultDebounce is how long to wait for more log writes before notifying.
const defaultDebounce = 500 * time.Millisecond

// Watcher notifies when the chaos event log changes, so a long-running
// view (the due-today banner) can refresh recent-system data without
// polling. Notifications are coalesced: a burst of log writes produces
// one change signal.
type Watcher struct {
	reader   *Reader
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	pendingMu sync.Mutex
	pending   bool

	changes chan struct{}
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithDebounce overrides the coalescing delay.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a watcher over the reader's log directory.
func NewWatcher(reader *Reader, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		reader:   reader,
		watcher:  fsw,
		logger:   slog.Default(),
		debounce: defaultDebounce,
		changes:  make(chan struct{}, changeChannelBuffer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Changes returns the channel signalled after the log changes.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Start begins watching the log directory. The changes channel is closed
// when ctx is cancelled or the watcher is stopped.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.reader.Dir()); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Debug("Chaos log watcher started", "dir", w.reader.Dir())
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.changes)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Chaos log watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	rel, err := filepath.Rel(w.reader.Dir(), event.Name)
	if err != nil {
		return
	}
	matched, err := doublestar.Match(w.reader.pattern, filepath.ToSlash(rel))
	if err != nil || !matched {
		return
	}

	w.pendingMu.Lock()
	w.pending = true
	w.pendingMu.Unlock()
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	fire := w.pending
	w.pending = false
	w.pendingMu.Unlock()

	if !fire {
		return
	}

	select {
	case w.changes <- struct{}{}:
	default:
		// A signal is already queued; the consumer will re-read anyway.
	}
}
