package store_test

import (
	"context"
	"testing"
	"time"

	"docwatch/internal/logging"
	"docwatch/internal/store"
	"docwatch/internal/testsupport"
)

func TestSaveAndLoadSnapshotRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	submitted := time.Now().UTC().Truncate(time.Second)
	records := map[string]store.Record{
		"task-1": {
			SubmissionID:  "task-1",
			OwnerID:       "42",
			DestinationID: "chat-9",
			DisplayName:   "invoice.pdf",
			SubmittedAt:   submitted.Format(time.RFC3339),
			MatchingToken: "abc123",
			State:         "uploading",
			Attempts:      3,
		},
	}
	if err := s.SaveSnapshot(context.Background(), records); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	loaded, err := s.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	got, ok := loaded["task-1"]
	if !ok {
		t.Fatal("expected task-1 in snapshot")
	}
	parsed, err := time.Parse(time.RFC3339, got.SubmittedAt)
	if err != nil {
		t.Fatalf("submitted_at should parse as RFC3339: %v", err)
	}
	if !parsed.Equal(submitted) {
		t.Fatalf("submitted_at = %v, want %v", parsed, submitted)
	}
	if got.MatchingToken != "abc123" || got.Attempts != 3 {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestLoadSnapshotEmptyWhenAbsent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	loaded, err := s.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty snapshot, got %d records", len(loaded))
	}
}

func TestSaveSnapshotOverwritesPrevious(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	first := map[string]store.Record{"a": {SubmissionID: "a", SubmittedAt: time.Now().UTC().Format(time.RFC3339)}}
	second := map[string]store.Record{"b": {SubmissionID: "b", SubmittedAt: time.Now().UTC().Format(time.RFC3339)}}

	if err := s.SaveSnapshot(context.Background(), first); err != nil {
		t.Fatalf("SaveSnapshot first: %v", err)
	}
	if err := s.SaveSnapshot(context.Background(), second); err != nil {
		t.Fatalf("SaveSnapshot second: %v", err)
	}

	loaded, err := s.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if _, ok := loaded["a"]; ok {
		t.Fatal("previous snapshot should be replaced")
	}
	if _, ok := loaded["b"]; !ok {
		t.Fatal("expected b in snapshot")
	}
}

func TestAuditPrunesStaleAndMalformedEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)

	records := map[string]store.Record{
		"fresh": {SubmissionID: "fresh", SubmittedAt: time.Now().UTC().Format(time.RFC3339)},
		"old":   {SubmissionID: "old", SubmittedAt: time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC3339)},
		"bad":   {SubmissionID: "bad", SubmittedAt: "not-a-timestamp"},
	}
	if err := s.SaveSnapshot(context.Background(), records); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	if err := s.Audit(context.Background(), logging.NewNop()); err != nil {
		t.Fatalf("Audit: %v", err)
	}

	loaded, err := s.LoadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected only the fresh record to survive, got %v", loaded)
	}
	if _, ok := loaded["fresh"]; !ok {
		t.Fatal("fresh record should survive the audit")
	}
}
