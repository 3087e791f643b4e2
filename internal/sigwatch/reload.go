package sigwatch

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig reloads the config file on change and hands the new signal
// set to the watcher. Editors often replace files instead of writing them
// in place, so the parent directory is watched and events filtered by
// name. Returns when ctx is canceled.
func WatchConfig(ctx context.Context, path string, w *Watcher, logf func(format string, args ...any)) error {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Name != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := LoadConfig(abs)
			if err != nil {
				logf("[sigwatch] reload rejected: %v", err)
				continue
			}
			if err := w.Apply(cfg.Signals); err != nil {
				logf("[sigwatch] reload rejected: %v", err)
				continue
			}
			logf("[sigwatch] config reloaded: signals=%v", cfg.Signals)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logf("[sigwatch] config watch error: %v", err)
		}
	}
}
