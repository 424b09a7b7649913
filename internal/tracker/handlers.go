package tracker

import (
	"context"
	"fmt"
	"strings"

	"docwatch/internal/logging"
	"docwatch/internal/services"
	"docwatch/internal/services/paperless"
)

const (
	enrichTagName  = "paperless-ai"
	enrichTagColor = "#FF0000"
)

// processItem runs the watchdog and the current-state handler for one item.
// It returns true when the item is finished and should leave the registry.
func (t *Tracker) processItem(ctx context.Context, item *Item) (bool, error) {
	if item.State == StateCompleted {
		return true, nil
	}

	// Watchdog: force-complete any item whose attempt budget for the current
	// state is already spent, regardless of which branch would otherwise run.
	// Exceptions count against the budget too, so this is the backstop that
	// guarantees no item polls forever.
	if done := t.checkBudget(ctx, item); done {
		return true, nil
	}

	switch item.State {
	case StateUploading:
		return t.handleUploading(ctx, item)
	case StateAwaitingVisibility:
		return t.handleAwaitingVisibility(ctx, item)
	case StateIndexing:
		return t.handleIndexing(ctx, item)
	case StateEnrichmentTrigger:
		return t.handleEnrichmentTrigger(ctx, item)
	case StateAwaitingEnrichment:
		return t.handleAwaitingEnrichment(ctx, item)
	default:
		return false, fmt.Errorf("unknown state %q", item.State)
	}
}

// checkBudget enforces the per-state attempt caps, emitting the documented
// terminal notification for the state that ran out.
func (t *Tracker) checkBudget(ctx context.Context, item *Item) bool {
	switch item.State {
	case StateUploading, StateIndexing:
		if item.Attempts >= item.MaxUploadAttempts {
			t.sendNotification(ctx, item, FormatTimeout(item))
			return true
		}
	case StateAwaitingVisibility:
		if item.Attempts >= t.budgets.VisibilityTimeout {
			t.sendNotification(ctx, item, FormatBasicSuccess(item))
			return true
		}
	case StateEnrichmentTrigger:
		if item.Attempts >= t.budgets.TriggerRetries {
			t.sendNotification(ctx, item, FormatBasicSuccess(item))
			return true
		}
	case StateAwaitingEnrichment:
		if item.Attempts >= t.budgets.EnrichmentTimeout {
			t.sendNotification(ctx, item, FormatBasicSuccess(item))
			return true
		}
	}
	return false
}

// handleUploading waits for the upstream consumption task to be reaped. A
// not-found lookup is the completion signal, not an error.
func (t *Tracker) handleUploading(ctx context.Context, item *Item) (bool, error) {
	status, err := t.docs.TaskStatus(ctx, item.SubmissionID)
	if err != nil {
		return false, err
	}
	switch status.State {
	case paperless.TaskNotFound:
		t.logger.Info("upload task finished, waiting for document visibility",
			logging.String(logging.FieldSubmissionID, item.SubmissionID))
		return false, item.transition(StateAwaitingVisibility)
	case paperless.TaskFailure:
		t.logger.Warn("upload task reported failure",
			logging.String(logging.FieldSubmissionID, item.SubmissionID))
		t.sendNotification(ctx, item, FormatFailure(item, "the document could not be consumed"))
		return true, nil
	case paperless.TaskSuccess:
		if status.DocumentID != 0 {
			item.setDocumentID(status.DocumentID)
			return false, item.transition(StateIndexing)
		}
		return false, item.transition(StateAwaitingVisibility)
	}
	// Still processing.
	item.Attempts++
	return false, nil
}

// handleAwaitingVisibility tries to locate the committed document in the
// upstream index.
func (t *Tracker) handleAwaitingVisibility(ctx context.Context, item *Item) (bool, error) {
	docID, err := t.resolveDocument(ctx, item)
	if err != nil {
		return false, err
	}
	if docID != 0 {
		item.setDocumentID(docID)
		t.logger.Info("document located in upstream index",
			logging.String(logging.FieldSubmissionID, item.SubmissionID),
			logging.Int64(logging.FieldDocumentID, docID))
		return false, item.transition(StateIndexing)
	}
	item.Attempts++
	if item.Attempts >= t.budgets.VisibilityTimeout {
		t.logger.Warn("document never became visible",
			logging.String(logging.FieldSubmissionID, item.SubmissionID),
			logging.Int("attempts", item.Attempts))
		t.sendNotification(ctx, item, FormatBasicSuccess(item))
		return true, nil
	}
	return false, nil
}

// handleIndexing waits until the document is fully committed and
// content-extracted. The watchdog caps this wait at the upload attempt
// ceiling, so a document that vanishes mid-commit (duplicate rejection) still
// resolves with a timeout notification instead of polling forever.
func (t *Tracker) handleIndexing(ctx context.Context, item *Item) (bool, error) {
	ready, err := t.documentReady(ctx, item)
	if err != nil {
		return false, err
	}
	if ready {
		t.logger.Info("document indexed and searchable",
			logging.String(logging.FieldSubmissionID, item.SubmissionID),
			logging.Int64(logging.FieldDocumentID, item.DocumentID))
		return false, item.transition(StateEnrichmentTrigger)
	}
	item.Attempts++
	return false, nil
}

// handleEnrichmentTrigger asks the enrichment service to process the
// document. An unconfigured service is a valid terminal branch.
func (t *Tracker) handleEnrichmentTrigger(ctx context.Context, item *Item) (bool, error) {
	if t.enrich == nil || !t.enrich.Enabled() {
		t.sendNotification(ctx, item, FormatSuccessNoEnrichment(item))
		return true, nil
	}

	err := t.enrich.TriggerScan(ctx)
	if err == nil {
		t.logger.Info("enrichment scan triggered",
			logging.String(logging.FieldSubmissionID, item.SubmissionID))
		return false, item.transition(StateAwaitingEnrichment)
	}
	if t.triggerViaTag(ctx, item) {
		t.logger.Info("enrichment triggered via tag fallback",
			logging.String(logging.FieldSubmissionID, item.SubmissionID))
		return false, item.transition(StateAwaitingEnrichment)
	}
	t.logger.Warn("enrichment trigger failed",
		logging.String(logging.FieldSubmissionID, item.SubmissionID),
		logging.Error(err))

	item.Attempts++
	if item.Attempts >= t.budgets.TriggerRetries {
		t.sendNotification(ctx, item, FormatBasicSuccess(item))
		return true, nil
	}
	return false, nil
}

// triggerViaTag falls back to the tagging mechanism some enrichment setups
// watch: ensure the processing tag exists and patch it onto the document.
func (t *Tracker) triggerViaTag(ctx context.Context, item *Item) bool {
	if item.DocumentID == 0 {
		return false
	}
	tagID, err := t.docs.EnsureTag(ctx, enrichTagName, enrichTagColor)
	if err != nil {
		return false
	}
	return t.docs.AddDocumentTag(ctx, item.DocumentID, tagID) == nil
}

// handleAwaitingEnrichment polls for AI metadata to appear on the document.
func (t *Tracker) handleAwaitingEnrichment(ctx context.Context, item *Item) (bool, error) {
	t.logEnrichmentProgress(ctx, item)

	result, err := t.checkEnrichment(ctx, item)
	if err != nil {
		return false, err
	}
	if result != nil {
		item.setEnrichment(result)
		t.logger.Info("enrichment metadata confirmed",
			logging.String(logging.FieldSubmissionID, item.SubmissionID),
			logging.Int64(logging.FieldDocumentID, item.DocumentID))
		t.sendNotification(ctx, item, FormatEnrichedSuccess(item))
		if err := item.transition(StateCompleted); err != nil {
			return true, err
		}
		return true, nil
	}
	item.Attempts++
	if item.Attempts >= t.budgets.EnrichmentTimeout {
		t.logger.Warn("enrichment never confirmed before timeout",
			logging.String(logging.FieldSubmissionID, item.SubmissionID),
			logging.Int("attempts", item.Attempts))
		t.sendNotification(ctx, item, FormatBasicSuccess(item))
		return true, nil
	}
	return false, nil
}

// logEnrichmentProgress is a best-effort peek at the enrichment service's own
// status endpoint for operator visibility; failures are ignored.
func (t *Tracker) logEnrichmentProgress(ctx context.Context, item *Item) {
	if t.enrich == nil || !t.enrich.Enabled() {
		return
	}
	status, err := t.enrich.ProcessingStatus(ctx)
	if err != nil {
		return
	}
	if status.CurrentlyProcessing != nil {
		t.logger.Debug("enrichment service busy",
			logging.String(logging.FieldSubmissionID, item.SubmissionID),
			logging.Int64("processing_document_id", status.CurrentlyProcessing.DocumentID))
	}
}

// checkEnrichment fetches the document and reports AI metadata if any of
// tags, correspondent, or document type is present. Upstream references are
// normalized to string labels before they reach the formatter.
func (t *Tracker) checkEnrichment(ctx context.Context, item *Item) (*EnrichmentResult, error) {
	if item.DocumentID == 0 {
		return nil, nil
	}
	doc, err := t.docs.FetchDocument(ctx, item.DocumentID)
	if services.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(doc.Tags) == 0 && doc.Correspondent == 0 && doc.DocumentType == 0 {
		return nil, nil
	}

	result := &EnrichmentResult{
		DocumentID: doc.ID,
		Title:      doc.Title,
	}
	if len(doc.Tags) > 0 {
		names, err := t.docs.TagNames(ctx, doc.Tags)
		if err != nil {
			return nil, err
		}
		result.Tags = names
	}
	if doc.Correspondent != 0 {
		if name, err := t.docs.CorrespondentName(ctx, doc.Correspondent); err == nil {
			result.Correspondent = name
		}
	}
	if doc.DocumentType != 0 {
		if name, err := t.docs.DocumentTypeName(ctx, doc.DocumentType); err == nil {
			result.DocumentType = name
		}
	}
	if content := strings.TrimSpace(doc.Content); content != "" {
		result.ContentPreview = truncate(content, contentPreviewLength)
	}
	return result, nil
}
