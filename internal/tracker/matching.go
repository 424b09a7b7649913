package tracker

import (
	"context"
	"path/filepath"
	"strings"

	"docwatch/internal/logging"
	"docwatch/internal/services/paperless"
)

// resolveDocument locates the upstream document for a submission. When the
// item carries a matching token the token scan is the only strategy used that
// tick; the fuzzy filename fallback exists for submissions that arrived
// without one (watch-folder drops renamed by the upstream consumer, manual
// uploads).
func (t *Tracker) resolveDocument(ctx context.Context, item *Item) (int64, error) {
	if item.MatchingToken != "" {
		return t.findByToken(ctx, item.MatchingToken)
	}
	return t.findByRecency(ctx, item)
}

// findByToken scans the most recent documents for the matching token embedded
// in the uploaded filename. A hit is definitive: the token is unique per
// submission.
func (t *Tracker) findByToken(ctx context.Context, token string) (int64, error) {
	docs, err := t.docs.ListRecent(ctx, 1, t.budgets.RecentPageSize)
	if err != nil {
		return 0, err
	}
	for _, doc := range docs {
		if strings.Contains(doc.OriginalFileName, token) || strings.Contains(doc.Title, token) {
			t.logger.Info("matched document by token",
				logging.Int64(logging.FieldDocumentID, doc.ID),
				logging.String("matching_token", token))
			return doc.ID, nil
		}
	}
	return 0, nil
}

// findByRecency tries progressively broader searches, accepting the first
// document created inside the recency window around the submission time.
// Per-term failures fall through to the next term.
func (t *Tracker) findByRecency(ctx context.Context, item *Item) (int64, error) {
	threshold := item.SubmittedAt.Add(-t.budgets.RecencyWindow)
	base := strings.TrimSuffix(item.DisplayName, filepath.Ext(item.DisplayName))

	terms := []string{base, item.DisplayName, ""}
	for _, term := range terms {
		docs, err := t.searchTerm(ctx, term)
		if err != nil {
			t.logger.Debug("document search failed",
				logging.String("term", term),
				logging.Error(err))
			continue
		}
		for _, doc := range docs {
			if doc.ID == 0 || doc.Created.IsZero() {
				continue
			}
			if !doc.Created.Before(threshold) {
				t.logger.Info("matched recent document",
					logging.Int64(logging.FieldDocumentID, doc.ID),
					logging.String("term", term),
					logging.Time("created", doc.Created))
				return doc.ID, nil
			}
		}
	}
	return 0, nil
}

func (t *Tracker) searchTerm(ctx context.Context, term string) ([]paperless.DocumentSummary, error) {
	if term == "" {
		return t.docs.ListRecent(ctx, 1, t.budgets.RecentPageSize)
	}
	return t.docs.Search(ctx, term)
}
