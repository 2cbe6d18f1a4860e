package schedule

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hammamikhairi/announcer/internal/logger"
)

// SyncFile loads the schedule at path and syncs the watch list with it.
// On a parse error the watch list is left untouched.
func (c *Checker) SyncFile(ctx context.Context, path string, loc *time.Location) error {
	list, err := LoadFile(path, loc)
	if err != nil {
		return err
	}
	if err := c.Sync(ctx, list); err != nil {
		return fmt.Errorf("syncing schedule: %w", err)
	}
	return nil
}

// WatcherOption configures the FileWatcher.
type WatcherOption func(*FileWatcher)

// WithDebounce sets how long the watcher waits for writes to settle.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *FileWatcher) {
		w.debounce = d
	}
}

// FileWatcher calls onChange when the schedule file is written, created
// or replaced. Editors often save by renaming a temp file over the
// original, so the containing directory is watched rather than the file.
type FileWatcher struct {
	path     string
	onChange func(ctx context.Context)
	log      *logger.Logger
	debounce time.Duration
}

// NewFileWatcher creates a watcher for path.
func NewFileWatcher(path string, onChange func(ctx context.Context), log *logger.Logger, opts ...WatcherOption) *FileWatcher {
	w := &FileWatcher{
		path:     filepath.Clean(path),
		onChange: onChange,
		log:      log,
		debounce: 300 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. It returns an error only if the
// watch could not be set up.
func (w *FileWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	w.log.Info("watching schedule %s", w.path)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("schedule watcher stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.log.Debug("schedule watcher: %s %s", ev.Op, ev.Name)

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(w.debounce, func() {
				if ctx.Err() == nil {
					w.onChange(ctx)
				}
			})

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("schedule watcher: %v", err)
		}
	}
}
