package tracker

import (
	"context"
	"log/slog"
	"time"

	"docwatch/internal/config"
	"docwatch/internal/logging"
	"docwatch/internal/services/aiscan"
	"docwatch/internal/services/paperless"
	"docwatch/internal/store"
)

// DocumentClient is the document-management surface the tracker consumes.
// *paperless.Client satisfies it; tests substitute fakes.
type DocumentClient interface {
	TaskStatus(ctx context.Context, taskID string) (paperless.TaskStatus, error)
	FetchDocument(ctx context.Context, id int64) (paperless.Document, error)
	ListRecent(ctx context.Context, page, pageSize int) ([]paperless.DocumentSummary, error)
	Search(ctx context.Context, term string) ([]paperless.DocumentSummary, error)
	TagNames(ctx context.Context, ids []int64) ([]string, error)
	CorrespondentName(ctx context.Context, id int64) (string, error)
	DocumentTypeName(ctx context.Context, id int64) (string, error)
	EnsureTag(ctx context.Context, name, color string) (int64, error)
	AddDocumentTag(ctx context.Context, documentID, tagID int64) error
}

// EnrichmentClient is the optional AI side-service surface.
type EnrichmentClient interface {
	Enabled() bool
	TriggerScan(ctx context.Context) error
	ProcessingStatus(ctx context.Context) (aiscan.Status, error)
}

// Notifier delivers milestone messages.
type Notifier interface {
	Send(ctx context.Context, destination, text string) error
}

// Snapshotter persists the registry for crash awareness.
type Snapshotter interface {
	SaveSnapshot(ctx context.Context, records map[string]store.Record) error
}

// Budgets holds the per-state retry/timeout policy, expressed in ticks.
type Budgets struct {
	TickInterval      time.Duration
	UploadAttempts    int
	VisibilityTimeout int
	TriggerRetries    int
	EnrichmentTimeout int
	RecentPageSize    int
	RecencyWindow     time.Duration
}

// BudgetsFromConfig maps the [tracker] config section onto runtime budgets.
func BudgetsFromConfig(cfg *config.Config) Budgets {
	budgets := Budgets{
		TickInterval:      time.Duration(cfg.Tracker.TickIntervalSeconds) * time.Second,
		UploadAttempts:    cfg.Tracker.UploadAttemptLimit,
		VisibilityTimeout: cfg.Tracker.VisibilityTimeout,
		TriggerRetries:    cfg.Tracker.TriggerRetryLimit,
		EnrichmentTimeout: cfg.Tracker.EnrichmentTimeout,
		RecentPageSize:    cfg.Tracker.RecentPageSize,
		RecencyWindow:     time.Duration(cfg.Tracker.RecencyWindowMins) * time.Minute,
	}
	if budgets.TickInterval <= 0 {
		budgets.TickInterval = time.Second
	}
	return budgets
}

// Tracker drives every registered submission through its lifecycle once per
// tick and emits exactly one terminal notification per item.
type Tracker struct {
	budgets  Budgets
	docs     DocumentClient
	enrich   EnrichmentClient
	notify   Notifier
	snapshot Snapshotter
	registry *Registry
	logger   *slog.Logger
}

// New wires a tracker from its collaborators. The registry starts empty; use
// Register to add submissions.
func New(budgets Budgets, docs DocumentClient, enrich EnrichmentClient, notify Notifier, snapshot Snapshotter, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Tracker{
		budgets:  budgets,
		docs:     docs,
		enrich:   enrich,
		notify:   notify,
		snapshot: snapshot,
		registry: NewRegistry(),
		logger:   logging.NewComponentLogger(logger, "tracker"),
	}
}

// Registry exposes the tracked item registry, mainly for status inspection.
func (t *Tracker) Registry() *Registry {
	return t.registry
}

// Register starts tracking a submission. The immediate hint is the status
// probe result taken right after upload; when it already carries a document
// ID, the item skips straight to indexing.
func (t *Tracker) Register(ctx context.Context, item *Item, immediateHint *paperless.TaskStatus) error {
	if item.MaxUploadAttempts == 0 {
		item.MaxUploadAttempts = t.budgets.UploadAttempts
	}
	if err := t.registry.Register(item, immediateHint); err != nil {
		return err
	}
	t.logger.Info("tracking submission",
		logging.String(logging.FieldSubmissionID, item.SubmissionID),
		logging.String("display_name", item.DisplayName),
		logging.String(logging.FieldState, string(item.State)),
		logging.Int64(logging.FieldDocumentID, item.DocumentID))
	t.persistSnapshot(ctx)
	return nil
}

// persistSnapshot writes the current registry to the store. Failures are
// logged and swallowed: the next successful tick re-persists current state.
func (t *Tracker) persistSnapshot(ctx context.Context) {
	if t.snapshot == nil {
		return
	}
	records := make(map[string]store.Record)
	t.registry.mu.Lock()
	for id, item := range t.registry.items {
		records[id] = store.Record{
			SubmissionID:  item.SubmissionID,
			OwnerID:       item.OwnerID,
			DestinationID: item.DestinationID,
			DisplayName:   item.DisplayName,
			SubmittedAt:   item.SubmittedAt.Format(time.RFC3339),
			MatchingToken: item.MatchingToken,
			State:         string(item.State),
			DocumentID:    item.DocumentID,
			Enriched:      item.Enriched,
			Attempts:      item.Attempts,
		}
	}
	t.registry.mu.Unlock()

	if err := t.snapshot.SaveSnapshot(ctx, records); err != nil {
		t.logger.Error("failed to persist tracking snapshot", logging.Error(err))
	}
}

// sendNotification delivers text and swallows delivery failures: the tracked
// work already concluded, so a lost notification never blocks removal.
func (t *Tracker) sendNotification(ctx context.Context, item *Item, text string) {
	if t.notify == nil {
		return
	}
	if err := t.notify.Send(ctx, item.DestinationID, text); err != nil {
		t.logger.Error("failed to send notification",
			logging.String(logging.FieldSubmissionID, item.SubmissionID),
			logging.Error(err))
	}
}
