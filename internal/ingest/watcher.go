package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/citewise/citewise/internal/errs"
)

const watchDebounce = 400 * time.Millisecond

// Watcher watches directories and feeds file changes into the processor.
// Writes are debounced so editors that save in several steps trigger one
// ingestion.
type Watcher struct {
	processor *Processor
	roots     []string
	recursive bool
	logger    *zap.Logger

	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	started     bool
}

// NewWatcher creates a watcher over the given root directories.
func NewWatcher(processor *Processor, roots []string, recursive bool, logger *zap.Logger) *Watcher {
	return &Watcher{
		processor:   processor,
		roots:       roots,
		recursive:   recursive,
		logger:      logger,
		debounceMap: make(map[string]*time.Timer),
	}
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
// Roots that do not exist are created.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	for _, root := range w.roots {
		if err := w.addRootLocked(root); err != nil {
			_ = w.watcher.Close()
			w.watcher = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()

	w.logger.Info("watching directories",
		zap.Strings("roots", w.roots),
		zap.Bool("recursive", w.recursive),
	)
	go w.run(ctx)
	return nil
}

func (w *Watcher) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	if !w.recursive {
		return w.watcher.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	path := ev.Name
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.handleNewDirectory(ctx, path)
			return
		}
		if supportedPath(path) {
			w.debounceIngest(ctx, path)
		}
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.cancelDebounce(path)
		if supportedPath(path) {
			if err := w.processor.RemovePath(ctx, path); err != nil {
				w.logger.Warn("failed to remove document for deleted file",
					zap.String("path", path), zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleNewDirectory(ctx context.Context, dir string) {
	w.mu.Lock()
	recursive := w.recursive
	watcher := w.watcher
	w.mu.Unlock()
	if watcher == nil || !recursive {
		return
	}
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				w.logger.Warn("failed to watch new directory",
					zap.String("path", path), zap.Error(err))
			}
		} else if supportedPath(path) {
			w.debounceIngest(ctx, path)
		}
		return nil
	})
}

func supportedPath(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

func (w *Watcher) debounceIngest(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(watchDebounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	result, err := w.processor.ProcessPath(ctx, path)
	if err != nil {
		if errs.IsValidation(err) {
			w.logger.Debug("skipping file", zap.String("path", path), zap.Error(err))
		} else {
			w.logger.Error("failed to ingest file", zap.String("path", path), zap.Error(err))
		}
		return
	}
	w.logger.Info("ingested watched file",
		zap.String("path", path),
		zap.String("document_id", result.DocumentID),
		zap.Int("chunks", result.ChunkCount),
	)
}

// SyncExistingFiles ingests files already present in the watched roots.
// Call after Start.
func (w *Watcher) SyncExistingFiles(ctx context.Context) {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	recursive := w.recursive
	w.mu.Unlock()
	for _, root := range roots {
		filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if !recursive && filepath.Clean(path) != filepath.Clean(root) {
					return fs.SkipDir
				}
				return nil
			}
			if supportedPath(path) {
				w.ingest(ctx, path)
			}
			return nil
		})
	}
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started || w.watcher == nil {
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
}
