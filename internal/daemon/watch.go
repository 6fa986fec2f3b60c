package daemon

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of filesystem events an editor emits
// on save into a single reload.
const reloadDebounce = 100 * time.Millisecond

// WatchConfig watches the config file and invokes apply with each revision
// that parses cleanly, until ctx ends. Editors typically replace the file
// on save rather than writing in place, so the watch covers the parent
// directory and filters events by name.
func WatchConfig(ctx context.Context, apply func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	path := ConfigPath()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				cfg, err := LoadConfig()
				if err != nil {
					log.Printf("[daemon] config reload failed: %v", err)
					return
				}
				apply(cfg)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[daemon] config watch error: %v", err)
		}
	}
}
