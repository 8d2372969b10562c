package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last manifest
// change before calling OnChange.
const DefaultDebounce = 300 * time.Millisecond

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	Paths    []SearchPath
	Debounce time.Duration
	Logger   *slog.Logger
	// OnChange runs once per burst of manifest changes, on the watcher
	// goroutine.
	OnChange func(ctx context.Context)
}

// Watcher triggers a rescan when manifests in the search paths change.
type Watcher struct {
	cfg WatcherConfig

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher validates cfg and applies defaults.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.OnChange == nil {
		return nil, fmt.Errorf("discovery: watcher: OnChange is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{cfg: cfg}, nil
}

// Run watches until ctx is done. Search paths that do not exist are not
// watched.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("discovery: watcher: %w", err)
	}
	defer fsw.Close()

	watched := 0
	for _, p := range w.cfg.Paths {
		if err := fsw.Add(p.Dir); err != nil {
			w.cfg.Logger.Debug("not watching search path", slog.String("dir", p.Dir), slog.Any("error", err))
			continue
		}
		watched++
	}
	w.cfg.Logger.Info("watching search paths", slog.Int("dirs", watched))

	fire := make(chan struct{}, 1)
	defer w.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.cfg.Logger.Debug("manifest changed", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			w.schedule(fire)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.cfg.Logger.Warn("watch error", slog.Any("error", err))
		case <-fire:
			w.cfg.OnChange(ctx)
		}
	}
}

func (w *Watcher) schedule(fire chan<- struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.cfg.Debounce, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(event.Name)
	return !strings.HasPrefix(name, ".") && strings.EqualFold(filepath.Ext(name), ".json")
}
