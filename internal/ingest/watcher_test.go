package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"docwatch/internal/ingest"
)

type recordingSubmitter struct {
	mu    sync.Mutex
	paths []string
	fail  bool
}

func (r *recordingSubmitter) SubmitFile(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return os.ErrPermission
	}
	r.paths = append(r.paths, path)
	return nil
}

func (r *recordingSubmitter) submitted() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func startWatcher(t *testing.T, dir string, submit ingest.Submitter) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	watcher := ingest.New(dir, 50*time.Millisecond, submit, nil)
	go func() {
		defer close(done)
		if err := watcher.Run(ctx); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func TestWatcherSubmitsSettledFile(t *testing.T) {
	dir := t.TempDir()
	submit := &recordingSubmitter{}
	startWatcher(t, dir, submit)

	path := filepath.Join(dir, "invoice.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 test"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool { return len(submit.submitted()) == 1 })
	if got := submit.submitted()[0]; got != path {
		t.Fatalf("submitted %q, want %q", got, path)
	}

	// Successful hand-off archives the file out of the inbox.
	waitFor(t, 5*time.Second, func() bool {
		_, err := os.Stat(filepath.Join(dir, "processed", "invoice.pdf"))
		return err == nil
	})
}

func TestWatcherSweepsPreexistingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.pdf")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	submit := &recordingSubmitter{}
	startWatcher(t, dir, submit)

	waitFor(t, 5*time.Second, func() bool { return len(submit.submitted()) == 1 })
}

func TestWatcherIgnoresTempAndHiddenFiles(t *testing.T) {
	dir := t.TempDir()
	submit := &recordingSubmitter{}
	startWatcher(t, dir, submit)

	for _, name := range []string{".hidden.pdf", "draft.pdf.part", "notes.tmp", "backup.pdf~", "archive.zip"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	// Control file proves the watcher is live.
	if err := os.WriteFile(filepath.Join(dir, "real.pdf"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write control: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool { return len(submit.submitted()) == 1 })
	if got := filepath.Base(submit.submitted()[0]); got != "real.pdf" {
		t.Fatalf("submitted %q, want real.pdf", got)
	}
}

func TestWatcherLeavesFileOnSubmitFailure(t *testing.T) {
	dir := t.TempDir()
	submit := &recordingSubmitter{fail: true}
	startWatcher(t, dir, submit)

	path := filepath.Join(dir, "retry.pdf")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Give the settle timer time to fire, then confirm the file survived.
	time.Sleep(500 * time.Millisecond)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("failed submission must leave the file in place: %v", err)
	}
	if len(submit.submitted()) != 0 {
		t.Fatal("no successful submissions expected")
	}
}
