// internal/config/watcher.go
package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

// ConfigWatcher reloads a configuration file when it changes
type ConfigWatcher struct {
	watcher    *fsnotify.Watcher
	configPath string
	callbacks  []func(*Config)
	logger     utils.Logger
	mu         sync.RWMutex
	stopped    bool
	done       chan struct{}
}

// NewConfigWatcher creates a new configuration file watcher
func NewConfigWatcher(configPath string, logger utils.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	cw := &ConfigWatcher{
		watcher:    watcher,
		configPath: filepath.Clean(configPath),
		logger:     logger.WithField("component", "config"),
		done:       make(chan struct{}),
	}

	// editors replace the file, so watch its directory
	if err := watcher.Add(filepath.Dir(cw.configPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	go cw.watch()
	return cw, nil
}

// OnChange registers a callback run with every valid reloaded configuration
func (cw *ConfigWatcher) OnChange(callback func(*Config)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

func (cw *ConfigWatcher) watch() {
	defer close(cw.done)
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) == cw.configPath && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				cw.handleConfigChange()
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Warnf("config watcher error: %v", err)
		}
	}
}

func (cw *ConfigWatcher) handleConfigChange() {
	cw.mu.RLock()
	if cw.stopped {
		cw.mu.RUnlock()
		return
	}
	callbacks := make([]func(*Config), len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.RUnlock()

	config, err := LoadFromFile(cw.configPath)
	if err != nil {
		cw.logger.Warnf("failed to reload config, keeping the previous one: %v", err)
		return
	}
	cw.logger.Info("config reloaded")
	for _, callback := range callbacks {
		callback(config)
	}
}

// Close stops the watcher and releases resources
func (cw *ConfigWatcher) Close() error {
	cw.mu.Lock()
	cw.stopped = true
	cw.mu.Unlock()

	err := cw.watcher.Close()
	<-cw.done
	return err
}
