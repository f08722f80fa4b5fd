package suite

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce groups bursts of file events, such as an editor's
// write-then-rename, into one change notification.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports changed case files below a set of paths.
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration
}

type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

func WithWatchLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher watches every directory below paths. A file path watches its
// parent directory.
func NewWatcher(paths []string, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{watcher: fw, logger: zap.NewNop(), debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(w)
	}

	for _, path := range paths {
		if err := w.add(path); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", path, err)
	}
	if !info.IsDir() {
		return w.watcher.Add(filepath.Dir(path))
	}
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error adding directory to watcher: %w", err)
	}
	return nil
}

// Run calls onChange with the sorted case files written or created since the
// last call, until ctx is done.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, files []string)) error {
	pending := make(map[string]bool)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.add(event.Name); err != nil {
						w.logger.Warn("watching new directory", zap.String("dir", event.Name), zap.Error(err))
					}
					continue
				}
			}
			if !isCaseFile(event.Name) {
				continue
			}
			pending[event.Name] = true
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", zap.Error(err))
		case <-timer.C:
			files := make([]string, 0, len(pending))
			for f := range pending {
				files = append(files, f)
			}
			clear(pending)
			slices.Sort(files)
			w.logger.Debug("case files changed", zap.Strings("files", files))
			onChange(ctx, files)
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
