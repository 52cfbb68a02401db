package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// watchConfig schedules a reload whenever the config file changes. The
// watch sits on the parent directory because editors typically replace
// the file, which would orphan a watch held on the file itself. Bursts
// of events are collapsed into one reload per debounce window.
func (a *App) watchConfig(ctx context.Context, path string) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		slog.Warn("app: config watch disabled", "error", err)
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("app: config watch disabled", "error", err)
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(absPath)
	if err := watcher.Add(dir); err != nil {
		slog.Warn("app: cannot watch config directory", "dir", dir, "error", err)
		return
	}
	slog.Debug("app: watching config file", "path", absPath)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				fire = timer.C
			} else {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("app: config watcher error", "error", err)
		case <-fire:
			slog.Info("app: config file changed, scheduling reload")
			a.requestReload()
		}
	}
}
