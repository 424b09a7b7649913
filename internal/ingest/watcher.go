package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"docwatch/internal/logging"
)

// processedDirName holds files that were handed off successfully; leaving
// them in the inbox would resubmit them on the next sweep.
const processedDirName = "processed"

var supportedExtensions = map[string]struct{}{
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".tif":  {},
	".tiff": {},
	".webp": {},
	".txt":  {},
}

// Submitter receives settled inbox files. The daemon implements it by
// uploading the file and registering it for tracking.
type Submitter interface {
	SubmitFile(ctx context.Context, path string) error
}

// Watcher turns a local inbox directory into a submission source. Files are
// debounced per path so partially written documents are only handed off once
// writes stop for the settle window.
type Watcher struct {
	dir    string
	settle time.Duration
	submit Submitter
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New constructs a watcher for dir. Settle must be positive; a zero value
// gets a one second floor so fsnotify write bursts cannot double-submit.
func New(dir string, settle time.Duration, submit Submitter, logger *slog.Logger) *Watcher {
	if settle <= 0 {
		settle = time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		dir:     dir,
		settle:  settle,
		submit:  submit,
		logger:  logging.NewComponentLogger(logger, "ingest"),
		pending: make(map[string]*time.Timer),
	}
}

// Run watches the inbox until the context is cancelled. Files already present
// at startup are swept immediately through the same settle path.
func (w *Watcher) Run(ctx context.Context) error {
	if w.submit == nil {
		return errors.New("ingest: submitter is required")
	}
	if err := os.MkdirAll(filepath.Join(w.dir, processedDirName), 0o755); err != nil {
		return fmt.Errorf("ingest: prepare inbox: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ingest: create watcher: %w", err)
	}
	defer watcher.Close()
	defer w.cancelPending()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("ingest: watch %s: %w", w.dir, err)
	}

	w.logger.Info("watching inbox",
		logging.String("dir", w.dir),
		logging.Duration("settle", w.settle))
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write) {
				w.schedule(ctx, event.Name)
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox watch error", logging.Error(watchErr))
		}
	}
}

// sweep submits files that predate the watcher.
func (w *Watcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("inbox sweep failed", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.schedule(ctx, filepath.Join(w.dir, entry.Name()))
	}
}

// schedule arms or resets the settle timer for a path. Every new write event
// pushes the hand-off out by another settle window.
func (w *Watcher) schedule(ctx context.Context, path string) {
	if !eligible(path) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.handOff(ctx, path)
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

// handOff submits one settled file and archives it out of the inbox. A failed
// submission leaves the file in place; the next write event or restart sweep
// retries it.
func (w *Watcher) handOff(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return
	}

	if err := w.submit.SubmitFile(ctx, path); err != nil {
		w.logger.Error("inbox submission failed",
			logging.String("path", path),
			logging.Error(err))
		return
	}

	archived := filepath.Join(w.dir, processedDirName, filepath.Base(path))
	if err := os.Rename(path, archived); err != nil {
		w.logger.Warn("could not archive processed file",
			logging.String("path", path),
			logging.Error(err))
		return
	}
	w.logger.Info("inbox file submitted",
		logging.String("path", path),
		logging.String("archived", archived))
}

// eligible filters out directories' noise: hidden files, editor temp files,
// and unsupported document types.
func eligible(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".tmp") || strings.HasSuffix(name, "~") {
		return false
	}
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}
