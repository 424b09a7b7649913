package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"docwatch/internal/logging"
)

// Record is the serializable form of one tracked submission. Collaborator
// handles never appear here; timestamps are ISO-8601 strings so operators can
// read the payload directly.
type Record struct {
	SubmissionID  string `json:"submission_id"`
	OwnerID       string `json:"owner_id"`
	DestinationID string `json:"destination_id"`
	DisplayName   string `json:"display_name"`
	SubmittedAt   string `json:"submitted_at"`
	MatchingToken string `json:"matching_token,omitempty"`
	State         string `json:"state"`
	DocumentID    int64  `json:"document_id,omitempty"`
	Enriched      bool   `json:"enriched"`
	Attempts      int    `json:"attempts"`
}

// SaveSnapshot replaces the persisted snapshot with the provided records.
// A failed persist is the caller's to log; the next successful tick
// re-persists current state anyway.
func (s *Store) SaveSnapshot(ctx context.Context, records map[string]Record) error {
	if s == nil || s.db == nil {
		return errors.New("snapshot store not open")
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	now := time.Now().UTC()
	return s.execWithRetry(ctx,
		`INSERT INTO snapshots (key, payload, saved_at, expires_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET payload = excluded.payload,
             saved_at = excluded.saved_at, expires_at = excluded.expires_at`,
		snapshotKey, string(payload), now.Format(time.RFC3339), now.Add(s.ttl).Format(time.RFC3339))
}

// LoadSnapshot returns the persisted records. An expired or absent snapshot
// yields an empty map.
func (s *Store) LoadSnapshot(ctx context.Context) (map[string]Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("snapshot store not open")
	}
	ctx = ensureContext(ctx)

	var payload, expiresAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM snapshots WHERE key = ?`, snapshotKey).
		Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if expiry, parseErr := time.Parse(time.RFC3339, expiresAt); parseErr == nil && time.Now().After(expiry) {
		return map[string]Record{}, nil
	}

	records := map[string]Record{}
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return records, nil
}

// Audit inspects the persisted snapshot at startup for operator visibility.
// Each discovered entry is logged, entries whose submitted_at is older than
// the TTL or fails to parse are pruned, and the cleaned snapshot is written
// back. Live items are never reconstructed from the snapshot: the collaborator
// clients cannot be safely rehydrated, so restart always begins with an empty
// registry.
func (s *Store) Audit(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	records, err := s.LoadSnapshot(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	logger.Info("found persisted submissions from previous run",
		logging.Int("count", len(records)))

	cutoff := time.Now().Add(-s.ttl)
	stale := make([]string, 0)
	for id, record := range records {
		logger.Info("cached submission",
			logging.String(logging.FieldSubmissionID, id),
			logging.String("display_name", record.DisplayName),
			logging.String(logging.FieldState, record.State),
			logging.String("submitted_at", record.SubmittedAt))

		submitted, parseErr := time.Parse(time.RFC3339, record.SubmittedAt)
		if parseErr != nil || submitted.Before(cutoff) {
			stale = append(stale, id)
		}
	}

	if len(stale) == 0 {
		return nil
	}
	for _, id := range stale {
		delete(records, id)
	}
	logger.Info("pruned stale snapshot entries", logging.Int("count", len(stale)))
	return s.SaveSnapshot(ctx, records)
}
