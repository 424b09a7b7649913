package tracker_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"docwatch/internal/services"
	"docwatch/internal/services/aiscan"
	"docwatch/internal/services/paperless"
	"docwatch/internal/store"
	"docwatch/internal/tracker"
)

type fakeDocs struct {
	taskStatus paperless.TaskStatus
	taskErr    error

	documents map[int64]paperless.Document
	recent    []paperless.DocumentSummary
	search    map[string][]paperless.DocumentSummary

	tagNames    map[int64]string
	ensureTagID int64
	taggedDocs  []int64

	taskCalls int
	listCalls int
}

func (f *fakeDocs) TaskStatus(ctx context.Context, taskID string) (paperless.TaskStatus, error) {
	f.taskCalls++
	return f.taskStatus, f.taskErr
}

func (f *fakeDocs) FetchDocument(ctx context.Context, id int64) (paperless.Document, error) {
	doc, ok := f.documents[id]
	if !ok {
		return paperless.Document{}, notFoundErr()
	}
	return doc, nil
}

func (f *fakeDocs) ListRecent(ctx context.Context, page, pageSize int) ([]paperless.DocumentSummary, error) {
	f.listCalls++
	return f.recent, nil
}

func (f *fakeDocs) Search(ctx context.Context, term string) ([]paperless.DocumentSummary, error) {
	return f.search[term], nil
}

func (f *fakeDocs) TagNames(ctx context.Context, ids []int64) ([]string, error) {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, f.tagNames[id])
	}
	return names, nil
}

func (f *fakeDocs) CorrespondentName(ctx context.Context, id int64) (string, error) {
	return "ACME Corp", nil
}

func (f *fakeDocs) DocumentTypeName(ctx context.Context, id int64) (string, error) {
	return "Invoice", nil
}

func (f *fakeDocs) EnsureTag(ctx context.Context, name, color string) (int64, error) {
	return f.ensureTagID, nil
}

func (f *fakeDocs) AddDocumentTag(ctx context.Context, documentID, tagID int64) error {
	f.taggedDocs = append(f.taggedDocs, documentID)
	return nil
}

type fakeEnrich struct {
	enabled      bool
	triggerErr   error
	status       aiscan.Status
	triggerCalls int
}

func (f *fakeEnrich) Enabled() bool { return f.enabled }

func (f *fakeEnrich) TriggerScan(ctx context.Context) error {
	f.triggerCalls++
	return f.triggerErr
}

func (f *fakeEnrich) ProcessingStatus(ctx context.Context) (aiscan.Status, error) {
	return f.status, nil
}

type sentMessage struct {
	destination string
	text        string
}

type fakeNotify struct {
	sent []sentMessage
}

func (f *fakeNotify) Send(ctx context.Context, destination, text string) error {
	f.sent = append(f.sent, sentMessage{destination: destination, text: text})
	return nil
}

type fakeSnapshot struct {
	saves []map[string]store.Record
}

func (f *fakeSnapshot) SaveSnapshot(ctx context.Context, records map[string]store.Record) error {
	f.saves = append(f.saves, records)
	return nil
}

// notFoundErr mirrors the error shape the real client produces for a 404 so
// the tracker's IsNotFound matching sees production conditions.
func notFoundErr() error {
	return services.Wrap(services.ErrNotFound, "paperless", "fetch-document", "document not found", nil)
}

func testBudgets() tracker.Budgets {
	return tracker.Budgets{
		TickInterval:      time.Millisecond,
		UploadAttempts:    30,
		VisibilityTimeout: 60,
		TriggerRetries:    5,
		EnrichmentTimeout: 120,
		RecentPageSize:    50,
		RecencyWindow:     10 * time.Minute,
	}
}

func newTestTracker(docs tracker.DocumentClient, enrich tracker.EnrichmentClient, notify *fakeNotify) (*tracker.Tracker, *fakeSnapshot) {
	snapshot := &fakeSnapshot{}
	return tracker.New(testBudgets(), docs, enrich, notify, snapshot, nil), snapshot
}

func TestRegisterWithImmediateDocumentIDSkipsToIndexing(t *testing.T) {
	docs := &fakeDocs{}
	notify := &fakeNotify{}
	tr, _ := newTestTracker(docs, nil, notify)

	item := tracker.NewItem("task-a", "owner", "dest", "report.pdf", "")
	hint := &paperless.TaskStatus{State: paperless.TaskSuccess, DocumentID: 77}
	if err := tr.Register(context.Background(), item, hint); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if item.State != tracker.StateIndexing {
		t.Fatalf("state = %s, want %s", item.State, tracker.StateIndexing)
	}
	if item.DocumentID != 77 {
		t.Fatalf("document id = %d, want 77", item.DocumentID)
	}
}

func TestReapedTaskAdvancesToAwaitingVisibility(t *testing.T) {
	docs := &fakeDocs{taskStatus: paperless.TaskStatus{State: paperless.TaskNotFound}}
	notify := &fakeNotify{}
	tr, _ := newTestTracker(docs, nil, notify)

	item := tracker.NewItem("task-b", "owner", "dest", "report.pdf", "")
	if err := tr.Register(context.Background(), item, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tr.Tick(context.Background())

	if item.State != tracker.StateAwaitingVisibility {
		t.Fatalf("state = %s, want %s", item.State, tracker.StateAwaitingVisibility)
	}
	if item.Attempts != 0 {
		t.Fatalf("attempts = %d, want 0 after transition", item.Attempts)
	}
	if len(notify.sent) != 0 {
		t.Fatalf("no notification expected yet, got %d", len(notify.sent))
	}
	if tr.Registry().Len() != 1 {
		t.Fatal("item must stay tracked")
	}
}

func TestFailedUploadTaskSendsFailureAndStops(t *testing.T) {
	docs := &fakeDocs{taskStatus: paperless.TaskStatus{State: paperless.TaskFailure}}
	notify := &fakeNotify{}
	tr, _ := newTestTracker(docs, nil, notify)

	item := tracker.NewItem("task-fail", "owner", "dest", "broken.pdf", "")
	if err := tr.Register(context.Background(), item, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tr.Tick(context.Background())

	if len(notify.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notify.sent))
	}
	if !strings.Contains(notify.sent[0].text, "Processing Failed") {
		t.Fatalf("unexpected message: %q", notify.sent[0].text)
	}
	if tr.Registry().Len() != 0 {
		t.Fatal("failed item must be removed")
	}
}

func TestVisibilityTimeoutEmitsExactlyOneBasicSuccess(t *testing.T) {
	// Upload task is already reaped; the document never shows up anywhere.
	docs := &fakeDocs{taskStatus: paperless.TaskStatus{State: paperless.TaskNotFound}}
	notify := &fakeNotify{}
	tr, _ := newTestTracker(docs, nil, notify)

	item := tracker.NewItem("task-c", "owner", "dest", "ghost.pdf", "")
	if err := tr.Register(context.Background(), item, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// First tick reaps the task, then 60 fruitless visibility polls.
	for i := 0; i < 61; i++ {
		tr.Tick(context.Background())
	}

	if len(notify.sent) != 1 {
		t.Fatalf("notifications = %d, want exactly 1", len(notify.sent))
	}
	if !strings.Contains(notify.sent[0].text, "Document Upload Complete") {
		t.Fatalf("unexpected message: %q", notify.sent[0].text)
	}
	if tr.Registry().Len() != 0 {
		t.Fatal("timed-out item must be removed")
	}

	// Further ticks must not resurrect it.
	tr.Tick(context.Background())
	if len(notify.sent) != 1 {
		t.Fatalf("extra notification after removal: %d", len(notify.sent))
	}
}

func TestIndexingTimesOutWhenDocumentVanishes(t *testing.T) {
	// Fast consumer reported a document ID, but the document never appears
	// (duplicate rejection deletes it upstream). Every fetch is a 404.
	docs := &fakeDocs{}
	notify := &fakeNotify{}
	tr, _ := newTestTracker(docs, nil, notify)

	item := tracker.NewItem("task-gone", "owner", "dest", "duplicate.pdf", "")
	hint := &paperless.TaskStatus{State: paperless.TaskSuccess, DocumentID: 77}
	if err := tr.Register(context.Background(), item, hint); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// 30 fruitless readiness polls; the watchdog fires on the next tick.
	for i := 0; i < 31; i++ {
		tr.Tick(context.Background())
	}

	if len(notify.sent) != 1 {
		t.Fatalf("notifications = %d, want exactly 1", len(notify.sent))
	}
	if !strings.Contains(notify.sent[0].text, "Processing Timeout") {
		t.Fatalf("unexpected message: %q", notify.sent[0].text)
	}
	if tr.Registry().Len() != 0 {
		t.Fatal("timed-out item must be removed")
	}

	tr.Tick(context.Background())
	if len(notify.sent) != 1 {
		t.Fatalf("extra notification after removal: %d", len(notify.sent))
	}
}

func TestNoEnrichmentConfiguredCompletesWithPlainSuccess(t *testing.T) {
	now := time.Now().UTC()
	docs := &fakeDocs{
		documents: map[int64]paperless.Document{
			77: {ID: 77, Title: "report", Content: "scanned text", Created: now},
		},
		recent: []paperless.DocumentSummary{{ID: 77, Title: "report", Created: now}},
	}
	notify := &fakeNotify{}
	tr, _ := newTestTracker(docs, nil, notify)

	item := tracker.NewItem("task-d", "owner", "dest", "report.pdf", "")
	hint := &paperless.TaskStatus{State: paperless.TaskSuccess, DocumentID: 77}
	if err := tr.Register(context.Background(), item, hint); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tr.Tick(context.Background()) // indexing -> enrichment trigger
	tr.Tick(context.Background()) // no enrichment -> done

	if len(notify.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notify.sent))
	}
	text := notify.sent[0].text
	if !strings.Contains(text, "uploaded and indexed") {
		t.Fatalf("unexpected message: %q", text)
	}
	if !strings.Contains(text, "Document ID:** 77") {
		t.Fatalf("message must carry the document id: %q", text)
	}
	if tr.Registry().Len() != 0 {
		t.Fatal("completed item must be removed")
	}
}

func TestDisabledEnrichmentClientNeverTriggered(t *testing.T) {
	now := time.Now().UTC()
	docs := &fakeDocs{
		documents: map[int64]paperless.Document{
			77: {ID: 77, Content: "text", Created: now},
		},
		recent: []paperless.DocumentSummary{{ID: 77, Created: now}},
	}
	enrich := &fakeEnrich{enabled: false}
	notify := &fakeNotify{}
	tr, _ := newTestTracker(docs, enrich, notify)

	item := tracker.NewItem("task-d2", "owner", "dest", "report.pdf", "")
	hint := &paperless.TaskStatus{State: paperless.TaskSuccess, DocumentID: 77}
	if err := tr.Register(context.Background(), item, hint); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tr.Tick(context.Background())
	tr.Tick(context.Background())

	if enrich.triggerCalls != 0 {
		t.Fatalf("trigger calls = %d, want 0", enrich.triggerCalls)
	}
	if len(notify.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notify.sent))
	}
}

func TestEnrichmentConfirmedEmitsSingleEnrichedNotification(t *testing.T) {
	now := time.Now().UTC()
	doc := paperless.Document{ID: 77, Title: "Q3 Invoice", Content: "invoice body text", Created: now}
	docs := &fakeDocs{
		documents: map[int64]paperless.Document{77: doc},
		recent:    []paperless.DocumentSummary{{ID: 77, Created: now}},
		tagNames:  map[int64]string{5: "Invoice"},
	}
	enrich := &fakeEnrich{enabled: true}
	notify := &fakeNotify{}
	tr, _ := newTestTracker(docs, enrich, notify)

	item := tracker.NewItem("task-e", "owner", "dest", "invoice.pdf", "")
	hint := &paperless.TaskStatus{State: paperless.TaskSuccess, DocumentID: 77}
	if err := tr.Register(context.Background(), item, hint); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tr.Tick(context.Background()) // indexing -> enrichment trigger
	tr.Tick(context.Background()) // trigger -> awaiting enrichment

	if enrich.triggerCalls != 1 {
		t.Fatalf("trigger calls = %d, want 1", enrich.triggerCalls)
	}

	// A few polls with no metadata yet.
	for i := 0; i < 7; i++ {
		tr.Tick(context.Background())
	}
	if len(notify.sent) != 0 {
		t.Fatalf("no notification expected while unenriched, got %d", len(notify.sent))
	}

	// AI metadata lands.
	doc.Tags = []int64{5}
	docs.documents[77] = doc

	tr.Tick(context.Background())

	if len(notify.sent) != 1 {
		t.Fatalf("notifications = %d, want exactly 1", len(notify.sent))
	}
	text := notify.sent[0].text
	if !strings.Contains(text, "Processed Successfully") {
		t.Fatalf("unexpected message: %q", text)
	}
	if !strings.Contains(text, "Invoice") {
		t.Fatalf("tag label missing from message: %q", text)
	}
	if !strings.Contains(text, "AI analysis complete") {
		t.Fatalf("enriched footer missing: %q", text)
	}
	if tr.Registry().Len() != 0 {
		t.Fatal("enriched item must be removed the same tick")
	}
	if !item.Enriched {
		t.Fatal("item must be flagged enriched")
	}
}

func TestEnrichmentTimeoutFallsBackToBasicSuccess(t *testing.T) {
	now := time.Now().UTC()
	docs := &fakeDocs{
		documents: map[int64]paperless.Document{
			77: {ID: 77, Content: "text", Created: now},
		},
		recent: []paperless.DocumentSummary{{ID: 77, Created: now}},
	}
	enrich := &fakeEnrich{enabled: true}
	notify := &fakeNotify{}
	tr, _ := newTestTracker(docs, enrich, notify)

	item := tracker.NewItem("task-to", "owner", "dest", "slow.pdf", "")
	hint := &paperless.TaskStatus{State: paperless.TaskSuccess, DocumentID: 77}
	if err := tr.Register(context.Background(), item, hint); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// indexing + trigger + 120 unenriched polls.
	for i := 0; i < 122; i++ {
		tr.Tick(context.Background())
	}

	if len(notify.sent) != 1 {
		t.Fatalf("notifications = %d, want exactly 1", len(notify.sent))
	}
	if !strings.Contains(notify.sent[0].text, "Document Upload Complete") {
		t.Fatalf("unexpected message: %q", notify.sent[0].text)
	}
	if tr.Registry().Len() != 0 {
		t.Fatal("timed-out item must be removed")
	}
}

func TestTriggerFailureFallsBackToTagThenGivesUp(t *testing.T) {
	now := time.Now().UTC()
	docs := &fakeDocs{
		documents: map[int64]paperless.Document{
			77: {ID: 77, Content: "text", Created: now},
		},
		recent:      []paperless.DocumentSummary{{ID: 77, Created: now}},
		ensureTagID: 9,
	}
	enrich := &fakeEnrich{enabled: true, triggerErr: context.DeadlineExceeded}
	notify := &fakeNotify{}
	tr, _ := newTestTracker(docs, enrich, notify)

	item := tracker.NewItem("task-tf", "owner", "dest", "doc.pdf", "")
	hint := &paperless.TaskStatus{State: paperless.TaskSuccess, DocumentID: 77}
	if err := tr.Register(context.Background(), item, hint); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tr.Tick(context.Background()) // indexing -> trigger
	tr.Tick(context.Background()) // trigger fails, tag fallback succeeds

	if len(docs.taggedDocs) != 1 || docs.taggedDocs[0] != 77 {
		t.Fatalf("tag fallback not applied: %v", docs.taggedDocs)
	}
	if item.State != tracker.StateAwaitingEnrichment {
		t.Fatalf("state = %s, want %s", item.State, tracker.StateAwaitingEnrichment)
	}
}

func TestSnapshotPersistedOnRegisterAndRemoval(t *testing.T) {
	docs := &fakeDocs{taskStatus: paperless.TaskStatus{State: paperless.TaskFailure}}
	notify := &fakeNotify{}
	tr, snapshot := newTestTracker(docs, nil, notify)

	item := tracker.NewItem("task-s", "owner", "dest", "doc.pdf", "")
	if err := tr.Register(context.Background(), item, nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(snapshot.saves) != 1 {
		t.Fatalf("saves after register = %d, want 1", len(snapshot.saves))
	}
	if _, ok := snapshot.saves[0]["task-s"]; !ok {
		t.Fatal("registered item missing from snapshot")
	}

	tr.Tick(context.Background()) // failure removes the item

	if len(snapshot.saves) != 2 {
		t.Fatalf("saves after removal = %d, want 2", len(snapshot.saves))
	}
	if len(snapshot.saves[1]) != 0 {
		t.Fatalf("final snapshot should be empty, got %d records", len(snapshot.saves[1]))
	}
}
