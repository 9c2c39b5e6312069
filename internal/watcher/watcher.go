// Package watcher monitors the artifacts directory and hot-loads timing
// collections as the offline pipeline drops them in.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/readalong/readalong-server/internal/pipeline"
	"github.com/readalong/readalong-server/internal/service"
)

// DefaultSettleDelay is how long a timing artifact must stay unchanged
// before it is considered fully written.
const DefaultSettleDelay = 500 * time.Millisecond

// Watcher watches an artifacts directory laid out as
// <root>/<contentID>/timing.json and loads each settled artifact into
// the content service. Pipeline writes are not atomic, so files are
// debounced until their size and mtime stop moving.
type Watcher struct {
	root        string
	service     *service.ContentService
	logger      *slog.Logger
	settleDelay time.Duration

	fsw *fsnotify.Watcher

	pending map[string]*pendingArtifact // timing.json path -> settle state
	mu      sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// pendingArtifact tracks a timing file that may still be changing.
type pendingArtifact struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// New creates a watcher over the given artifacts root directory.
func New(root string, svc *service.ContentService, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		root:        filepath.Clean(root),
		service:     svc,
		logger:      logger,
		settleDelay: DefaultSettleDelay,
		fsw:         fsw,
		pending:     make(map[string]*pendingArtifact),
		done:        make(chan struct{}),
	}, nil
}

// Start watches the artifacts root and every content subdirectory, then
// processes events until the context is canceled. Artifacts already on
// disk when Start runs are loaded immediately.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return fmt.Errorf("failed to create artifacts directory: %w", err)
	}
	if err := w.fsw.Add(w.root); err != nil {
		return fmt.Errorf("failed to watch artifacts directory: %w", err)
	}

	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("failed to read artifacts directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(w.root, entry.Name())
		if err := w.fsw.Add(dir); err != nil {
			w.logger.Warn("failed to watch content directory", "path", dir, "error", err)
			continue
		}
		timingPath := filepath.Join(dir, pipeline.TimingFileName)
		if _, statErr := os.Stat(timingPath); statErr == nil {
			w.load(ctx, timingPath)
		}
	}

	w.wg.Add(1)
	go w.processEvents(ctx)

	w.logger.Info("artifact watcher started", "path", w.root)
	return nil
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)

	w.mu.Lock()
	for _, pending := range w.pending {
		pending.timer.Stop()
	}
	clear(w.pending)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	path := event.Name

	// New content directory: watch it so its timing.json is seen. The
	// artifact may already be on disk before the watch is in place, so
	// scan for it too.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if filepath.Dir(path) == w.root {
				if err := w.fsw.Add(path); err != nil {
					w.logger.Warn("failed to watch content directory", "path", path, "error", err)
					return
				}
				timingPath := filepath.Join(path, pipeline.TimingFileName)
				if _, statErr := os.Stat(timingPath); statErr == nil {
					w.startSettling(ctx, timingPath)
				}
			}
			return
		}
	}

	if filepath.Base(path) != pipeline.TimingFileName {
		return
	}

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.cancelPending(path)
		contentID := filepath.Base(filepath.Dir(path))
		if err := w.service.Unload(ctx, contentID); err != nil {
			w.logger.Debug("unload after artifact removal", "content_id", contentID, "error", err)
		}
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
		w.startSettling(ctx, path)
	}
}

// startSettling begins the settle timer for a timing artifact.
func (w *Watcher) startSettling(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if pending, exists := w.pending[path]; exists {
		pending.timer.Stop()
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		return
	}

	pending := &pendingArtifact{
		size:    info.Size(),
		modTime: info.ModTime(),
	}
	pending.timer = time.AfterFunc(w.settleDelay, func() {
		w.checkSettled(ctx, path)
	})
	w.pending[path] = pending
}

// checkSettled loads the artifact once its size and mtime stop changing.
func (w *Watcher) checkSettled(ctx context.Context, path string) {
	w.mu.Lock()

	pending, exists := w.pending[path]
	if !exists {
		w.mu.Unlock()
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		w.mu.Unlock()
		return
	}

	if info.Size() != pending.size || info.ModTime() != pending.modTime {
		// Still being written, restart the timer.
		pending.size = info.Size()
		pending.modTime = info.ModTime()
		pending.timer = time.AfterFunc(w.settleDelay, func() {
			w.checkSettled(ctx, path)
		})
		w.mu.Unlock()
		return
	}

	delete(w.pending, path)
	w.mu.Unlock()

	w.load(ctx, path)
}

// load imports a timing artifact; the content ID is its directory name.
func (w *Watcher) load(ctx context.Context, timingPath string) {
	dir := filepath.Dir(timingPath)
	contentID := filepath.Base(dir)
	contentPath := filepath.Join(dir, pipeline.ContentFileName)
	if _, err := os.Stat(contentPath); err != nil {
		contentPath = ""
	}

	if err := w.service.LoadFromFile(ctx, contentID, timingPath, contentPath); err != nil {
		w.logger.Error("failed to load timing artifact",
			"content_id", contentID,
			"path", timingPath,
			"error", err,
		)
		return
	}

	w.logger.Info("timing artifact loaded from disk", "content_id", contentID, "path", timingPath)
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if pending, exists := w.pending[path]; exists {
		pending.timer.Stop()
		delete(w.pending, path)
	}
}
