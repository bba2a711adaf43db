// Package config provides configuration loading and hot reload.
package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder provides thread-safe access to configuration with hot reload support.
// Besides the config file it watches the settings fragment files the config
// lists, so editing a fragment triggers a reload as well.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	logger   zerolog.Logger
	watcher  *fsnotify.Watcher
	watched  []string // absolute paths that trigger a reload
	onChange []func(*Config)
	onReload func(at time.Time, err error)
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewHolder creates a new config holder and loads the initial configuration.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	return &Holder{
		config: cfg,
		path:   absPath,
		logger: logger.With().Str("component", "config").Logger(),
		stopCh: make(chan struct{}),
	}, nil
}

// Get returns the current configuration (thread-safe).
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Path returns the absolute path of the config file.
func (h *Holder) Path() string {
	return h.path
}

// Reload reloads the configuration from disk.
// Returns error if loading fails (keeps old config).
func (h *Holder) Reload() error {
	h.logger.Info().Str("path", h.path).Msg("reloading configuration")

	newCfg, err := Load(h.path)
	if err != nil {
		h.logger.Error().Err(err).Msg("config reload failed, keeping old config")
		h.reported(err)
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.config
	h.config = newCfg
	listeners := slices.Clone(h.onChange)
	h.mu.Unlock()

	h.logChanges(oldCfg, newCfg)

	for _, fn := range listeners {
		fn(newCfg)
	}

	h.mu.RLock()
	w := h.watcher
	h.mu.RUnlock()
	if w != nil {
		h.watchFragments(w, newCfg)
	}

	h.reported(nil)
	h.logger.Info().Msg("configuration reloaded successfully")
	return nil
}

// OnChange registers a callback to be called when config changes.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// OnReload registers a callback receiving the outcome of every reload attempt.
func (h *Holder) OnReload(fn func(at time.Time, err error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onReload = fn
}

func (h *Holder) reported(err error) {
	h.mu.RLock()
	fn := h.onReload
	h.mu.RUnlock()
	if fn != nil {
		fn(time.Now(), err)
	}
}

// WatchFile starts watching the config file and fragment files for changes.
// Changes trigger automatic reload.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Watch the directory (more reliable for editors that do atomic saves)
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	h.mu.Lock()
	h.watcher = watcher
	h.watched = []string{h.path}
	h.mu.Unlock()
	h.watchFragments(watcher, h.Get())

	h.wg.Add(1)
	go h.watchLoop()

	h.logger.Info().Str("path", h.path).Msg("watching config file for changes")
	return nil
}

// watchFragments adds the directories of the configured fragment files.
func (h *Holder) watchFragments(w *fsnotify.Watcher, cfg *Config) {
	watched := []string{h.path}
	for _, f := range cfg.Settings.FragmentFiles {
		if abs, err := filepath.Abs(f); err == nil {
			f = abs
		}
		watched = append(watched, f)
		if err := w.Add(filepath.Dir(f)); err != nil {
			h.logger.Warn().Err(err).Str("file", f).Msg("cannot watch fragment directory")
		}
	}

	h.mu.Lock()
	h.watched = watched
	h.mu.Unlock()
}

func (h *Holder) isWatched(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Contains(h.watched, filepath.Clean(name))
}

// WatchSignals starts listening for SIGHUP to trigger reload.
func (h *Holder) WatchSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		for {
			select {
			case <-sigCh:
				h.logger.Info().Msg("received SIGHUP, reloading config")
				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("SIGHUP reload failed")
				}
			case <-h.stopCh:
				signal.Stop(sigCh)
				return
			}
		}
	}()

	h.logger.Info().Msg("listening for SIGHUP to reload config")
}

// Stop stops watching for file changes and signals and waits for the
// watching goroutines to exit. It is safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		h.mu.RLock()
		w := h.watcher
		h.mu.RUnlock()
		if w != nil {
			w.Close()
		}
	})
	h.wg.Wait()
}

func (h *Holder) watchLoop() {
	defer h.wg.Done()

	h.mu.RLock()
	w := h.watcher
	h.mu.RUnlock()

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}

			if !h.isWatched(event.Name) {
				continue
			}

			// React to write or create (atomic save = create)
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.logger.Debug().
					Str("event", event.Op.String()).
					Str("file", event.Name).
					Msg("watched file changed")

				if err := h.Reload(); err != nil {
					h.logger.Error().Err(err).Msg("file watch reload failed")
				}
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("file watcher error")

		case <-h.stopCh:
			return
		}
	}
}

func (h *Holder) logChanges(old, new *Config) {
	if old.Logging.Level != new.Logging.Level {
		h.logger.Info().
			Str("old", old.Logging.Level).
			Str("new", new.Logging.Level).
			Msg("log level changed")
	}

	if !slices.Equal(old.Settings.FragmentFiles, new.Settings.FragmentFiles) {
		h.logger.Info().
			Strs("old", old.Settings.FragmentFiles).
			Strs("new", new.Settings.FragmentFiles).
			Msg("fragment files changed")
	}

	if len(old.Auth.CallbackRoutes) != len(new.Auth.CallbackRoutes) {
		h.logger.Info().
			Int("old", len(old.Auth.CallbackRoutes)).
			Int("new", len(new.Auth.CallbackRoutes)).
			Msg("callback routes count changed")
	}

	for _, field := range NonReloadableFields() {
		if changed(old, new, field) {
			h.logger.Warn().Str("field", field).Msg("field changed but requires a restart")
		}
	}
}

func changed(old, new *Config, field string) bool {
	switch field {
	case "server.host":
		return old.Server.Host != new.Server.Host
	case "server.port":
		return old.Server.Port != new.Server.Port
	case "database.driver":
		return old.Database.Driver != new.Database.Driver
	case "database.dsn":
		return old.Database.DSN != new.Database.DSN
	case "settings.encryption_key":
		return old.Settings.EncryptionKey != new.Settings.EncryptionKey
	case "locale.languages":
		return !slices.Equal(old.Locale.Languages, new.Locale.Languages) || old.Locale.Default != new.Locale.Default
	}
	return false
}

// ReloadableFields returns which fields can be changed without restart.
func ReloadableFields() []string {
	return []string{
		"settings.fragment_files",
		"auth.callback_routes",
		"auth.default_redirect",
		"logging.level",
	}
}

// NonReloadableFields returns which fields require a restart.
func NonReloadableFields() []string {
	return []string{
		"server.host",
		"server.port",
		"database.driver",
		"database.dsn",
		"settings.encryption_key",
		"locale.languages",
	}
}
