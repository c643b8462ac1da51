package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events an editor save produces.
const watchDebounce = 200 * time.Millisecond

// Watch reloads the config file whenever it changes on disk and hands the
// validated result to apply. The parent directory is watched rather than
// the file itself so atomic rename saves are caught. Invalid files are
// logged and skipped; the previous config stays in effect.
func Watch(ctx context.Context, path string, logger *log.Logger, apply func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("config watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()
		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				pending = time.After(watchDebounce)
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Printf("config watch error: %v", werr)
			case <-pending:
				pending = nil
				cfg, lerr := Load(path)
				if lerr != nil {
					logger.Printf("config reload rejected: %v", lerr)
					continue
				}
				logger.Printf("config reloaded from %s", path)
				apply(cfg)
			}
		}
	}()
	return nil
}
