// Package live turns writes to the record store by other processes into
// debounced refetch signals.
package live

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/nhle/inbox-triage/internal/policy"
)

// ChangedMsg is a tea.Msg sent when the record store changed on disk.
type ChangedMsg struct{}

// Watcher watches the record store file and its write-ahead log.
type Watcher struct {
	watcher  *fsnotify.Watcher
	files    map[string]bool
	debounce *policy.Debouncer
	changes  chan struct{}
	log      zerolog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a watcher for the SQLite database at dbPath. A burst of
// writes yields one signal once wait has passed without further writes.
func New(dbPath string, wait time.Duration, logger zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	dir := filepath.Dir(dbPath)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	base := filepath.Base(dbPath)
	w := &Watcher{
		watcher: fw,
		files:   map[string]bool{base: true, base + "-wal": true},
		changes: make(chan struct{}, 1),
		log:     logger.With().Str("component", "live").Logger(),
		stopCh:  make(chan struct{}),
	}
	w.debounce = policy.NewDebouncer(wait, w.signal)
	return w, nil
}

// Start runs the event loop until ctx is done or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.loop(ctx)
}

// Changes delivers one value per debounced burst of writes. Signals are
// coalesced while nobody is receiving.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// WaitCmd returns a tea.Cmd that blocks until the next change.
func (w *Watcher) WaitCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-w.changes:
			return ChangedMsg{}
		case <-w.stopCh:
			return nil
		}
	}
}

// Close stops the watcher and cancels any pending signal.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.debounce.Stop()
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				w.debounce.Trigger()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !w.files[filepath.Base(event.Name)] {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *Watcher) signal() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}
