package fs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/mulch/pkg/core"
)

type watchWorker struct {
	*worker.BaseWorker
	repo      *Repository
	pattern   string
	events    chan core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc
}

func newWatchWorker(repo *Repository, pattern string, events chan core.Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("fs-watcher"),
		repo:       repo,
		pattern:    pattern,
		events:     events,
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := w.repo.recursiveAdd(watcher); err != nil {
		_ = watcher.Close()
		return err
	}

	// Watch .git so commits can pause event processing.
	_ = watcher.Add(filepath.Join(w.repo.Path, ".git"))

	w.watcher = watcher
	w.debouncer = newDebouncer(50 * time.Millisecond)
	w.repo.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}

	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

// recursiveAdd registers the site root and every non-system subdirectory
// with the watcher.
func (r *Repository) recursiveAdd(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(r.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != r.Path && (name == ".git" || name == r.config.SystemDir || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// handleGitLockEvent processes .git/index.lock events (git operations
// pause/resume). Returns true if the event was handled.
func (w *watchWorker) handleGitLockEvent(event fsnotify.Event, gitLocked *bool) (handled bool, gitLockedNew bool) {
	gitLockedNew = *gitLocked
	handled = false

	if filepath.Base(event.Name) == "index.lock" {
		dir := filepath.Dir(event.Name)
		if filepath.Base(dir) == ".git" {
			handled = true
			if event.Has(fsnotify.Create) {
				gitLockedNew = true
				if w.repo.config.Logger != nil {
					w.repo.config.Logger.Debug("git operations detected, pausing watcher")
				}
			} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				gitLockedNew = false
				if w.repo.config.Logger != nil {
					w.repo.config.Logger.Debug("git operations finished, reconciling")
				}
			}
		}
	}
	return handled, gitLockedNew
}

// reconcileAfterGitUnlock is spawned as a goroutine to handle missed events
// after git releases the lock.
func (w *watchWorker) reconcileAfterGitUnlock(ctx context.Context) {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		reconciledEvents, err := w.repo.Reconcile(ctx)
		if err != nil {
			if w.repo.config.Logger != nil {
				w.repo.config.Logger.Error("reconcile failed", "error", err)
			}
			return err
		}
		for _, e := range reconciledEvents {
			w.sendEvent(ctx, e)
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		if w.repo.config.ErrorHandler != nil {
			w.repo.config.ErrorHandler(fmt.Errorf("reconcile panic: %w", err))
		} else if w.repo.config.Logger != nil {
			w.repo.config.Logger.Error("reconcile panic", "error", err)
		}
	}))
}

// processFilesystemEvent handles filtering, mapping, and debouncing of
// filesystem events.
func (w *watchWorker) processFilesystemEvent(ctx context.Context, event fsnotify.Event) (processed bool) {
	if w.repo.config.Logger != nil {
		w.repo.config.Logger.Debug("event received", "name", event.Name)
	}

	// New directories must be added to the watch set as they appear.
	if event.Has(fsnotify.Create) {
		if info, err := statDir(event.Name); err == nil && info {
			_ = w.watcher.Add(event.Name)
			return false
		}
	}

	if w.repo.shouldIgnore(event.Name, w.pattern) {
		return false
	}

	eType := mapEventType(event)
	if eType == "" {
		return false
	}

	id, err := w.repo.resolveID(event.Name)
	if err != nil {
		if w.repo.config.ErrorHandler != nil {
			w.repo.config.ErrorHandler(fmt.Errorf("failed to resolve slug for %s: %w", event.Name, err))
		} else if w.repo.config.Logger != nil {
			w.repo.config.Logger.Debug("resolveID failed", "path", event.Name, "err", err)
		}
		return false
	}

	w.debounce(ctx, core.Event{
		Type:      eType,
		ID:        id,
		Timestamp: time.Now().Unix(),
	})

	return true
}

// debounce coalesces per-slug bursts before delivery.
func (w *watchWorker) debounce(ctx context.Context, e core.Event) {
	w.debouncer.enqueue(e.ID+"|"+string(e.Type), func() {
		w.sendEvent(ctx, e)
	})
}

// sendEvent delivers an event, dropping it if the context is done or the
// subscriber is not keeping up.
func (w *watchWorker) sendEvent(ctx context.Context, e core.Event) {
	select {
	case <-ctx.Done():
	case w.events <- e:
	default:
		if w.repo.config.Logger != nil {
			w.repo.config.Logger.Warn("event buffer full, dropping event", "id", e.ID, "type", e.Type)
		}
	}
}

func (w *watchWorker) handleWatcherError(err error) {
	if w.repo.config.ErrorHandler != nil {
		w.repo.config.ErrorHandler(err)
	} else if w.repo.config.Logger != nil {
		w.repo.config.Logger.Error("watcher error", "error", err)
	}
}

func (w *watchWorker) run(ctx context.Context) error {
	defer func() {
		// Shutdown order matters: stop producing, drain timers, then close
		// the channel subscribers are reading from.
		w.debouncer.stopAndWait(5 * time.Second)
		w.repo.setWatcherActive(false)
		_ = w.watcher.Close()
		close(w.events)
	}()

	var gitLocked bool
	return w.mainEventLoop(ctx, &gitLocked)
}

// mainEventLoop is the core select loop that processes filesystem and
// watcher events.
func (w *watchWorker) mainEventLoop(ctx context.Context, gitLocked *bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}

			// Handle git lock events (pause/resume watching)
			if handled, newGitLocked := w.handleGitLockEvent(event, gitLocked); handled {
				*gitLocked = newGitLocked
				if !*gitLocked { // Transitioned from locked to unlocked
					w.reconcileAfterGitUnlock(ctx)
				}
				continue
			}

			// Skip processing if git is locked
			if *gitLocked {
				continue
			}

			w.processFilesystemEvent(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.handleWatcherError(wErr)
		}
	}
}

// statDir reports whether the path exists and is a directory.
func statDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
