package soundsvc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// AssetWatcher watches the directories holding the configured cue files and
// logs when an asset disappears or comes back. A missing asset never fails
// the watcher; the cue simply does not play until the file returns.
type AssetWatcher struct {
	log   *zap.Logger
	paths map[string]Cue

	available *xsync.MapOf[string, bool]
	ready     chan struct{}
}

func NewAssetWatcher(log *zap.Logger, cues map[Cue]CueConfig) *AssetWatcher {
	paths := make(map[string]Cue, len(cues))
	for cue, cfg := range cues {
		if !cfg.Enabled || cfg.Path == "" {
			continue
		}
		if abs, err := filepath.Abs(cfg.Path); err == nil {
			paths[abs] = cue
		}
	}
	return &AssetWatcher{
		log:       log,
		paths:     paths,
		available: xsync.NewMapOf[string, bool](),
		ready:     make(chan struct{}),
	}
}

func (w *AssetWatcher) Ready() <-chan struct{} {
	return w.ready
}

// Available reports whether the asset backing the cue currently exists.
func (w *AssetWatcher) Available(cue Cue) bool {
	for path, c := range w.paths {
		if c == cue {
			ok, _ := w.available.Load(path)
			return ok
		}
	}
	return false
}

func (w *AssetWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	dirs := make(map[string]struct{})
	for path, cue := range w.paths {
		_, statErr := os.Stat(path)
		w.available.Store(path, statErr == nil)
		if statErr != nil {
			w.log.Warn("Cue asset missing at startup",
				zap.String("cue", string(cue)),
				zap.String("path", path))
		}
		dirs[filepath.Dir(path)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			w.log.Warn("Cannot watch sound directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	close(w.ready)
	w.log.Info("Sound asset watcher started", zap.Int("assets", len(w.paths)))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("Watcher error", zap.Error(err))
		}
	}
}

func (w *AssetWatcher) handleEvent(event fsnotify.Event) {
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}
	cue, ok := w.paths[abs]
	if !ok {
		return
	}
	switch {
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.available.Store(abs, false)
		w.log.Warn("Cue asset removed",
			zap.String("cue", string(cue)),
			zap.String("path", abs))
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		if was, _ := w.available.Load(abs); !was {
			w.log.Info("Cue asset restored",
				zap.String("cue", string(cue)),
				zap.String("path", abs))
		}
		w.available.Store(abs, true)
	}
}
