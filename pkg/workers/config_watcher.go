package workers

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dskvich/banana-draw-bot/pkg/config"
	"github.com/dskvich/banana-draw-bot/pkg/logger"
)

const reloadDelay = 250 * time.Millisecond

type ConfigLoader interface {
	Load() (*config.Plugin, error)
}

type ConfigReloader interface {
	Reload(cfg *config.Plugin)
}

// configWatcher reloads the plugin config whenever the file changes on disk.
type configWatcher struct {
	path     string
	loader   ConfigLoader
	reloader ConfigReloader
}

func NewConfigWatcher(path string, loader ConfigLoader, reloader ConfigReloader) *configWatcher {
	return &configWatcher{
		path:     filepath.Clean(path),
		loader:   loader,
		reloader: reloader,
	}
}

func (w *configWatcher) Name() string { return "config_watcher_worker" }

func (w *configWatcher) Start(ctx context.Context) error {
	slog.Info("Starting worker", "name", w.Name(), "path", w.path)
	defer slog.Info("Worker stopped", "name", w.Name())

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	// Editors and our own saves replace the file, so watch the directory.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watching '%s': %w", filepath.Dir(w.path), err)
	}

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			timer.Reset(reloadDelay)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Config watcher error", logger.Err(err))
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *configWatcher) reload() {
	cfg, err := w.loader.Load()
	if err != nil {
		slog.Error("Reloading plugin config, keeping the previous one", logger.Err(err))
		return
	}
	w.reloader.Reload(cfg)
}
