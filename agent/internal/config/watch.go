package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events one save produces.
const reloadDelay = 250 * time.Millisecond

// Watch reloads the agent config whenever the file at path changes and hands
// the result to onChange. It returns when ctx is cancelled.
//
// The containing directory is watched so rename-based saves keep being seen.
// A file that fails to load is logged and skipped; the poller keeps its
// current subscribers and scoring until a valid file appears.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("config: watch %s: %w", target, err)
	}
	slog.Info("config: watching for changes", "path", target)

	debounce := time.NewTimer(reloadDelay)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				debounce.Reset(reloadDelay)
			}

		case <-debounce.C:
			cfg, err := Load(target)
			if err != nil {
				slog.Error("config: reload rejected", "path", target, "err", err)
				continue
			}
			slog.Info("config: reloaded",
				"path", target,
				"subscribers", len(cfg.Agent.Subscribers),
				"poll_interval", cfg.Agent.PollInterval)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config: watcher error", "err", err)
		}
	}
}
