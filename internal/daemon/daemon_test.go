package daemon_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docwatch/internal/daemon"
	"docwatch/internal/testsupport"
	"docwatch/internal/tracker"
)

func newPaperlessStub(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/documents/post_document/":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`"task-stub-1"`))
		case strings.HasPrefix(r.URL.Path, "/api/tasks/"):
			http.NotFound(w, r)
		default:
			w.Write([]byte(`{"results": []}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDaemonStartEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure dirs: %v", err)
	}

	first, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer first.Close()

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	second, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	defer second.Close()

	if err := second.Start(context.Background()); err == nil {
		t.Fatal("second instance must fail to acquire the lock")
	}

	first.Stop()

	// The lock is free again after a clean stop.
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("restart after release: %v", err)
	}
	second.Stop()
}

func TestDaemonStatusReflectsRuntime(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Ingest.Enabled = true

	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	status := d.Status()
	if status.Running {
		t.Fatal("daemon must not report running before Start")
	}
	if !status.IngestEnabled {
		t.Fatal("ingest enabled in config must be reflected")
	}
	if status.AIEnabled {
		t.Fatal("AI must be disabled without configuration")
	}
	if status.SnapshotDBPath == "" {
		t.Fatal("snapshot path must be populated")
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Status().Running {
		t.Fatal("daemon must report running after Start")
	}
	d.Stop()
	if d.Status().Running {
		t.Fatal("daemon must not report running after Stop")
	}
}

func TestSubmitUploadsAndRegistersWithToken(t *testing.T) {
	server := newPaperlessStub(t)
	cfg := testsupport.NewConfig(t)
	cfg.Paperless.URL = server.URL

	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	path := filepath.Join(t.TempDir(), "invoice.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	submissionID, err := d.Submit(context.Background(), path, "my-topic")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if submissionID != "task-stub-1" {
		t.Fatalf("submission id = %q", submissionID)
	}

	item, ok := d.Tracker().Registry().Get(submissionID)
	if !ok {
		t.Fatal("submission not registered")
	}
	if item.DisplayName != "invoice.pdf" {
		t.Fatalf("display name = %q", item.DisplayName)
	}
	if item.MatchingToken == "" {
		t.Fatal("matching token must be set")
	}
	if item.DestinationID != "my-topic" {
		t.Fatalf("destination = %q", item.DestinationID)
	}
	if item.State != tracker.StateUploading {
		t.Fatalf("state = %s, want %s", item.State, tracker.StateUploading)
	}
}

func TestSubmitFailsOnMissingFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	if _, err := d.Submit(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"), ""); err == nil {
		t.Fatal("submit of missing file must fail")
	}
	if d.Tracker().Registry().Len() != 0 {
		t.Fatal("failed submit must not register anything")
	}
}

func TestInboxSubmissionFlowsThroughDaemon(t *testing.T) {
	server := newPaperlessStub(t)
	cfg := testsupport.NewConfig(t)
	cfg.Paperless.URL = server.URL
	cfg.Ingest.Enabled = true
	cfg.Ingest.SettleSeconds = 1
	cfg.Tracker.TickIntervalSeconds = 3600 // keep the loop out of the way

	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	path := filepath.Join(cfg.Paths.InboxDir, "scan.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if d.Tracker().Registry().Len() == 1 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("inbox file was never registered for tracking")
}
