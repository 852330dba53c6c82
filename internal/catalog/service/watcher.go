package service

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/narwhalmedia/catalog/internal/catalog/provider/pathname"
	"github.com/narwhalmedia/catalog/pkg/interfaces"
)

// TriggerFunc starts a scan of a source.
type TriggerFunc func(ctx context.Context, sourceID string)

// Watcher triggers scans of local sources when their files change. Bursts
// of events are collapsed into one trigger per source.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	trigger  TriggerFunc
	logger   interfaces.Logger

	mu     sync.Mutex
	roots  map[string]string // root -> source id
	timers map[string]*time.Timer
	closed bool
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher. Call Watch for each root, then Run.
func NewWatcher(debounce time.Duration, trigger TriggerFunc, logger interfaces.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fs:       fw,
		debounce: debounce,
		trigger:  trigger,
		logger:   logger,
		roots:    make(map[string]string),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Watch adds root and all directories below it for sourceID.
func (w *Watcher) Watch(sourceID, root string) error {
	root = filepath.Clean(root)
	w.mu.Lock()
	w.roots[root] = sourceID
	w.mu.Unlock()

	if err := w.addRecursive(root); err != nil {
		return err
	}
	w.logger.Info("Watching local source",
		interfaces.String("source_id", sourceID),
		interfaces.String("root", root))
	return nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				interfaces.String("path", path),
				interfaces.Error(err))
		}
		return nil
	})
}

// sourceFor maps a changed path to its source.
func (w *Watcher) sourceFor(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for root, id := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return id, true
		}
	}
	return "", false
}

// Run processes events until ctx is done, then waits for triggers that
// already fired and releases the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.shutdown()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Filesystem watcher error", interfaces.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".part") || strings.HasSuffix(base, ".tmp") {
		return
	}

	sourceID, ok := w.sourceFor(event.Name)
	if !ok {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("Failed to watch new directory",
					interfaces.String("path", event.Name),
					interfaces.Error(err))
			}
			w.schedule(ctx, sourceID)
			return
		}
	}

	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	if !pathname.IsMedia(event.Name) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	w.schedule(ctx, sourceID)
}

// schedule (re)starts the debounce timer of a source.
func (w *Watcher) schedule(ctx context.Context, sourceID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}

	if t, ok := w.timers[sourceID]; ok && t.Stop() {
		w.wg.Done()
	}

	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.timers[sourceID] == t {
			delete(w.timers, sourceID)
		}
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		w.logger.Debug("Filesystem change detected", interfaces.String("source_id", sourceID))
		w.trigger(ctx, sourceID)
	})
	w.timers[sourceID] = t
}

func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	for id, t := range w.timers {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.timers, id)
	}
	w.mu.Unlock()

	w.wg.Wait()
	if err := w.fs.Close(); err != nil {
		w.logger.Warn("Failed to close filesystem watcher", interfaces.Error(err))
	}
}
