package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"docwatch/internal/config"
	"docwatch/internal/ingest"
	"docwatch/internal/logging"
	"docwatch/internal/notifier"
	"docwatch/internal/services"
	"docwatch/internal/services/aiscan"
	"docwatch/internal/services/paperless"
	"docwatch/internal/store"
	"docwatch/internal/tracker"
)

// Daemon wires the clients, tracker, and inbox watcher together and enforces
// single-instance execution via a lock file.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.Store
	docs    *paperless.Client
	enrich  *aiscan.Client
	notify  notifier.Service
	tracker *tracker.Tracker
	inbox   *ingest.Watcher

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status reports daemon runtime information for the CLI.
type Status struct {
	Running        bool
	TrackedItems   int
	SnapshotDBPath string
	LockFilePath   string
	IngestEnabled  bool
	AIEnabled      bool
}

// New constructs a daemon with initialized dependencies. The snapshot store
// is opened here; Close releases it.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	snapshots, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	timeout := time.Duration(cfg.Paperless.RequestTimeout) * time.Second
	docs := paperless.NewClient(cfg.Paperless.URL, cfg.Paperless.Token, paperless.WithTimeout(timeout))
	enrich := aiscan.NewClient(cfg.AI.URL, cfg.AI.Token)
	notify := notifier.NewService(cfg)

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    snapshots,
		docs:     docs,
		enrich:   enrich,
		notify:   notify,
		tracker:  tracker.New(tracker.BudgetsFromConfig(cfg), docs, enrich, notify, snapshots, logger),
		lockPath: filepath.Join(cfg.Paths.LogDir, "docwatch.lock"),
	}
	d.lock = flock.New(d.lockPath)

	if cfg.Ingest.Enabled && cfg.Paths.InboxDir != "" {
		settle := time.Duration(cfg.Ingest.SettleSeconds) * time.Second
		d.inbox = ingest.New(cfg.Paths.InboxDir, settle, d, logger)
	}
	return d, nil
}

// Tracker exposes the running tracker, mainly for status inspection.
func (d *Daemon) Tracker() *tracker.Tracker {
	return d.tracker
}

// Start acquires the instance lock, audits leftover snapshot state, and
// launches the tracking loop and inbox watcher.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another docwatch instance is already running")
	}

	if err := d.store.Audit(ctx, d.logger); err != nil {
		d.logger.Warn("snapshot audit failed", logging.Error(err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.tracker.Run(runCtx); err != nil {
			d.logger.Error("tracking loop exited", logging.Error(err))
		}
	}()

	if d.inbox != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.inbox.Run(runCtx); err != nil {
				d.logger.Error("inbox watcher exited", logging.Error(err))
			}
		}()
	}

	d.running.Store(true)
	d.logger.Info("docwatch daemon started",
		logging.String("lock", d.lockPath),
		logging.Bool("ingest_enabled", d.inbox != nil),
		logging.Bool("ai_enabled", d.enrich.Enabled()))
	return nil
}

// Stop halts background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("docwatch daemon stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Status returns current runtime information.
func (d *Daemon) Status() Status {
	return Status{
		Running:        d.running.Load(),
		TrackedItems:   d.tracker.Registry().Len(),
		SnapshotDBPath: d.store.Path(),
		LockFilePath:   d.lockPath,
		IngestEnabled:  d.inbox != nil,
		AIEnabled:      d.enrich.Enabled(),
	}
}

// SubmitFile uploads a local file for consumption and registers it for
// tracking. The uploaded filename carries a per-submission token so the
// tracker can later match the committed document definitively.
func (d *Daemon) SubmitFile(ctx context.Context, path string) error {
	_, err := d.Submit(ctx, path, "")
	return err
}

// Submit uploads a local file and returns the tracking submission ID. The
// destination selects the notification topic; empty falls back to the
// configured default.
func (d *Daemon) Submit(ctx context.Context, path, destination string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer file.Close()

	displayName := filepath.Base(path)
	token := uuid.NewString()
	uploadName := token + "_" + displayName

	// The matching token doubles as the correlation ID for this submission's
	// log trail until the upstream task ID exists.
	ctx = services.WithRequestID(ctx, token)
	logger := logging.WithContext(ctx, d.logger)

	taskID, err := d.docs.Upload(ctx, uploadName, file, paperless.UploadOptions{})
	if err != nil {
		return "", fmt.Errorf("upload document: %w", err)
	}
	logger.Info("document uploaded",
		logging.String(logging.FieldSubmissionID, taskID),
		logging.String("display_name", displayName))

	// Probe once right away: a fast consumer may already report the document
	// ID, letting the tracker skip the upload-wait state entirely.
	var hint *paperless.TaskStatus
	if status, probeErr := d.docs.TaskStatus(ctx, taskID); probeErr == nil {
		hint = &status
	}

	item := tracker.NewItem(taskID, "", destination, displayName, token)
	if err := d.tracker.Register(ctx, item, hint); err != nil {
		return "", fmt.Errorf("register submission: %w", err)
	}
	return taskID, nil
}
