package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// Watcher reloads the configuration when files in the config directory change
// and hands the new value to registered callbacks. Used in development only.
type Watcher struct {
	loader    *Loader
	logger    *zap.Logger
	mu        sync.RWMutex
	current   *Config
	callbacks []func(*Config)
}

// NewWatcher creates a watcher seeded with the initial configuration
func NewWatcher(loader *Loader, initial *Config, logger *zap.Logger) *Watcher {
	return &Watcher{
		loader:  loader,
		logger:  logger,
		current: initial,
	}
}

// OnChange registers a callback invoked after every successful reload
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Current returns the most recently loaded configuration
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Reload loads the configuration again. An invalid file keeps the previous value.
func (w *Watcher) Reload() error {
	cfg, err := w.loader.Load()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.current = cfg
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
	return nil
}

// Run watches the config directory until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(w.loader.BasePath()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.loader.BasePath(), err)
	}

	w.logger.Info("Configuration hot reloading enabled",
		zap.String("dir", w.loader.BasePath()),
	)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 && isConfigFile(event.Name) {
				w.logger.Debug("Configuration file changed",
					zap.String("file", event.Name),
					zap.String("operation", event.Op.String()),
				)
				debounce = time.After(reloadDebounce)
			}

		case <-debounce:
			debounce = nil
			if err := w.Reload(); err != nil {
				w.logger.Warn("Configuration reload failed, keeping previous values", zap.Error(err))
				continue
			}
			w.logger.Info("Configuration reloaded")

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func isConfigFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
