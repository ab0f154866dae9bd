// Package watcher reloads the YAML configuration when the file changes on
// disk, pushing the new configuration into the running server.
package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samvilian/gemini-proxy-panel3/internal/config"
	log "github.com/sirupsen/logrus"
)

// Watcher observes one configuration file and invokes the reload callback
// with each successfully parsed new configuration.
type Watcher struct {
	configPath string
	onReload   func(*config.Config)
}

// New creates a watcher for configPath. onReload runs on the watcher
// goroutine for every valid configuration change.
func New(configPath string, onReload func(*config.Config)) *Watcher {
	return &Watcher{configPath: configPath, onReload: onReload}
}

// Start watches until ctx is cancelled. Editors often replace the file
// instead of writing in place, so the parent directory is watched and events
// are filtered by name.
func (w *Watcher) Start(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(w.configPath)
	if err = fsWatcher.Add(dir); err != nil {
		_ = fsWatcher.Close()
		return err
	}

	go func() {
		defer func() { _ = fsWatcher.Close() }()

		// Debounce: editors fire several events per save.
		var reloadTimer *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsWatcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if reloadTimer != nil {
					reloadTimer.Stop()
				}
				reloadTimer = time.AfterFunc(200*time.Millisecond, w.reload)
			case errWatch, ok := <-fsWatcher.Errors:
				if !ok {
					return
				}
				log.Errorf("config watcher error: %v", errWatch)
			}
		}
	}()

	return nil
}

func (w *Watcher) reload() {
	cfg, err := config.LoadConfig(w.configPath)
	if err != nil {
		log.Errorf("config reload failed, keeping previous configuration: %v", err)
		return
	}
	log.Infof("configuration file changed, reloading")
	w.onReload(cfg)
}
