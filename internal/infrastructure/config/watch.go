package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce lets editors finish writing before the file is re-read.
const reloadDebounce = 100 * time.Millisecond

// ReloadFunc receives each reloaded configuration, or the error that
// prevented loading it. The previous configuration stays in effect on error.
type ReloadFunc func(cfg *Config, err error)

// Watch reloads the configuration file whenever it changes and passes the
// result to fn. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file itself so that
// editors which save by rename keep triggering reloads.
//
// Parameters:
//   - ctx: Cancels the watch
//   - path: Path to the YAML configuration file
//   - fn: Called after every change
//
// Returns:
//   - error: If the watcher cannot be created; nil once ctx is cancelled
func Watch(ctx context.Context, path string, fn ReloadFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching config directory: %w", err)
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(reloadDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fn(nil, fmt.Errorf("watching config: %w", err))

		case <-pending:
			pending = nil
			cfg, err := Load(path)
			fn(cfg, err)
		}
	}
}
