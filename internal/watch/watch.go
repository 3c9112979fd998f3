// Package watch re-runs summarization when source files change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/babar-dev/babar/internal/ignore"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const tick = 100 * time.Millisecond

// Watcher observes every non-excluded directory under a root.
type Watcher struct {
	root         string
	filter       *ignore.Filter
	artifactName string
	debounce     time.Duration
	logger       *zap.Logger
	fsw          *fsnotify.Watcher
	pending      map[string]time.Time
}

func New(root string, filter *ignore.Filter, artifactName string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}
	return &Watcher{
		root:         abs,
		filter:       filter,
		artifactName: artifactName,
		debounce:     debounce,
		logger:       logger,
		fsw:          fsw,
		pending:      make(map[string]time.Time),
	}, nil
}

// Run blocks until ctx is done. Once changes settle for the debounce window,
// onChange receives the changed paths; its errors are logged, not returned.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, changed []string) error) error {
	defer w.fsw.Close()
	if err := w.addTree(w.root); err != nil {
		return err
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		case now := <-ticker.C:
			changed := w.settled(now)
			if len(changed) == 0 {
				continue
			}
			w.logger.Info("changes detected", zap.Int("files", len(changed)))
			if err := onChange(ctx, changed); err != nil {
				w.logger.Warn("re-run failed", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if rel := w.rel(event.Name); !w.filter.Excluded(rel, true) {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Debug("failed to watch new directory", zap.String("path", event.Name), zap.Error(err))
				}
			}
			return
		}
	}
	if !w.relevant(event) {
		return
	}
	w.pending[event.Name] = time.Now()
}

// relevant reports whether event concerns a source file the tree builder would keep.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if filepath.Base(event.Name) == w.artifactName {
		return false
	}
	if w.filter.Excluded(w.rel(event.Name), false) {
		return false
	}
	return w.filter.IsRelevant(event.Name)
}

// settled drains paths whose last event is older than the debounce window,
// but only when every pending path has settled.
func (w *Watcher) settled(now time.Time) []string {
	if len(w.pending) == 0 {
		return nil
	}
	for _, at := range w.pending {
		if now.Sub(at) < w.debounce {
			return nil
		}
	}
	out := make([]string, 0, len(w.pending))
	for path := range w.pending {
		out = append(out, path)
	}
	sort.Strings(out)
	clear(w.pending)
	return out
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Debug("skipping unwatchable path", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.filter.Excluded(w.rel(path), true) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
