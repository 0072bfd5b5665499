package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watchDebounce coalesces the write bursts editors produce on save.
const watchDebounce = 300 * time.Millisecond

// Watcher re-formats source files as they change on disk. It watches the app
// directory plus the configured subdirectories; no process supervision, only
// the formatter concern.
type Watcher struct {
	norm     *Normalizer
	cfg      Config
	mode     FormatMode
	debounce time.Duration
	log      *zap.Logger
}

// NewWatcher returns a Watcher formatting with the given mode.
func NewWatcher(cfg Config, mode FormatMode, log *zap.Logger) *Watcher {
	return &Watcher{
		norm:     NewNormalizer(cfg.AppDir, cfg.Formatter, log),
		cfg:      cfg,
		mode:     mode,
		debounce: watchDebounce,
		log:      log,
	}
}

// Run blocks until ctx is cancelled, formatting each changed file after a
// short debounce.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.cfg.AppDir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.AppDir, err)
	}
	for _, sub := range w.cfg.Formatter.Subdirs {
		subdir := filepath.Join(w.cfg.AppDir, sub)
		if info, err := os.Stat(subdir); err == nil && info.IsDir() && !dirSkipList[sub] {
			if err := fw.Add(subdir); err != nil {
				w.log.Warn("cannot watch subdirectory", zap.String("dir", subdir), zap.Error(err))
			}
		}
	}

	w.log.Info("watching for changes",
		zap.String("dir", w.cfg.AppDir),
		zap.String("glob", w.cfg.Formatter.Glob))

	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
		due     = make(chan string, 16)
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// A configured subdirectory appearing later gets picked up here.
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if w.isWatchedSubdir(event.Name) {
					_ = fw.Add(event.Name)
				}
				continue
			}
			if !watchable(event.Name, w.cfg.Formatter.Glob) {
				continue
			}

			mu.Lock()
			if t, ok := pending[event.Name]; ok {
				t.Reset(w.debounce)
			} else {
				path := event.Name
				pending[path] = time.AfterFunc(w.debounce, func() {
					// Run may already have returned; never block the timer
					// goroutine on a channel nobody reads.
					select {
					case due <- path:
					case <-ctx.Done():
					}
				})
			}
			mu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))

		case path := <-due:
			mu.Lock()
			delete(pending, path)
			mu.Unlock()

			res := w.norm.FormatFile(ctx, path, w.mode)
			if res.Err != nil {
				w.log.Warn("format failed", zap.String("file", path), zap.Error(res.Err))
			} else {
				w.log.Info("formatted", zap.String("file", path), zap.String("outcome", res.Outcome.String()))
			}
		}
	}
}

// isWatchedSubdir reports whether dir is one of the configured subdirectories.
func (w *Watcher) isWatchedSubdir(dir string) bool {
	base := filepath.Base(dir)
	if dirSkipList[base] {
		return false
	}
	for _, sub := range w.cfg.Formatter.Subdirs {
		if base == sub {
			return true
		}
	}
	return false
}

// watchable reports whether a changed path should be formatted: its base name
// matches the source glob and no path element is skip-listed.
func watchable(path, glob string) bool {
	ok, err := filepath.Match(glob, filepath.Base(path))
	if err != nil || !ok {
		return false
	}
	for _, elem := range strings.Split(filepath.ToSlash(path), "/") {
		if dirSkipList[elem] {
			return false
		}
	}
	return true
}
