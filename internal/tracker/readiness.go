package tracker

import (
	"context"
	"strings"

	"docwatch/internal/logging"
	"docwatch/internal/services"
)

// documentReady reports whether the resolved document is fully committed:
// retrievable, content-extracted, carrying a creation date, and visible in
// the same recent-documents listing the upstream UI reads. A vanished
// document (rejected duplicate) is not ready, not an error; the probe is
// read-only and safe to repeat.
func (t *Tracker) documentReady(ctx context.Context, item *Item) (bool, error) {
	if item.DocumentID == 0 {
		return false, nil
	}

	doc, err := t.docs.FetchDocument(ctx, item.DocumentID)
	if services.IsNotFound(err) {
		t.logger.Warn("document missing during readiness probe",
			logging.String(logging.FieldSubmissionID, item.SubmissionID),
			logging.Int64(logging.FieldDocumentID, item.DocumentID))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if strings.TrimSpace(doc.Content) == "" || doc.Created.IsZero() {
		return false, nil
	}

	return t.documentListed(ctx, item.DocumentID)
}

// documentListed confirms the document shows up in the recent listing, the
// last signal that it is committed and searchable rather than mid-ingest.
func (t *Tracker) documentListed(ctx context.Context, documentID int64) (bool, error) {
	docs, err := t.docs.ListRecent(ctx, 1, t.budgets.RecentPageSize)
	if err != nil {
		return false, err
	}
	for _, doc := range docs {
		if doc.ID == documentID {
			return true, nil
		}
	}
	return false, nil
}
