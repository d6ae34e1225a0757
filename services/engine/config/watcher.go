// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchTaskDefinitions reloads the task definition file on change and
// delivers the parsed result to onReload.
//
// Description:
//
//	Runs until ctx is cancelled. Write events are debounced so editors
//	that truncate-then-write deliver a single reload. Parse failures are
//	logged and skipped; the previous definitions stay in effect.
//
// Thread Safety: onReload is invoked from a single goroutine.
func WatchTaskDefinitions(ctx context.Context, path string, logger *slog.Logger, onReload func([]TaskDefinition)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(path); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(250*time.Millisecond, func() {
					defs, err := LoadTaskDefinitions(path)
					if err != nil {
						logger.Warn("task definition reload failed",
							"path", path, "error", err)
						return
					}
					logger.Info("task definitions reloaded",
						"path", path, "count", len(defs))
					onReload(defs)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("task definition watcher error", "error", err)
			}
		}
	}()
	return nil
}
