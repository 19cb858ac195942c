package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/vantage/pkg/domain/model"
)

// WatchGovernance reloads the governance file whenever it changes and passes the new
// configuration to onChange. It runs until ctx is cancelled. A file that fails to load,
// or that onChange rejects, leaves the previous configuration active.
func WatchGovernance(ctx context.Context, path string, onChange func(context.Context, *model.GovernanceConfig) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return goerr.Wrap(err, "failed to create file watcher")
	}
	defer watcher.Close()

	// Editors save atomically by renaming over the file, so watch the directory
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return goerr.Wrap(err, "failed to watch configuration directory", goerr.V("path", path))
	}

	logger := ctxlog.From(ctx)
	logger.Info("Watching governance configuration", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := LoadGovernanceFromFile(path)
			if err != nil {
				logger.Error("Failed to reload governance configuration, keeping previous one",
					"path", path, "error", err)
				continue
			}
			if err := onChange(ctx, cfg); err != nil {
				logger.Error("Governance configuration rejected, keeping previous one",
					"path", path, "error", err)
				continue
			}
			logger.Info("Governance configuration reloaded", "path", path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Configuration watcher error", "error", err)
		}
	}
}
