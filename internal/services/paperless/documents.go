package paperless

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"docwatch/internal/services"
)

type taskPayload struct {
	Status          string `json:"status"`
	RelatedDocument string `json:"related_document"`
	Result          struct {
		DocumentID int64 `json:"document_id"`
	} `json:"result"`
}

type documentPayload struct {
	ID               int64   `json:"id"`
	Title            string  `json:"title"`
	OriginalFileName string  `json:"original_file_name"`
	Content          string  `json:"content"`
	Created          string  `json:"created"`
	Checksum         string  `json:"checksum"`
	Tags             []int64 `json:"tags"`
	Correspondent    *int64  `json:"correspondent"`
	DocumentType     *int64  `json:"document_type"`
}

type listPayload struct {
	Results []documentPayload `json:"results"`
}

// TaskStatus polls a consumption task. Once the upstream reaps the task, the
// lookup returns TaskNotFound as a state rather than an error: a reaped task
// is the signal that consumption finished.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (TaskStatus, error) {
	var payload taskPayload
	err := c.getJSON(ctx, "/api/tasks/"+url.PathEscape(taskID)+"/", nil, &payload)
	if services.IsNotFound(err) {
		return TaskStatus{State: TaskNotFound}, nil
	}
	if err != nil {
		return TaskStatus{}, err
	}

	status := TaskStatus{State: TaskPending}
	switch strings.ToUpper(strings.TrimSpace(payload.Status)) {
	case "SUCCESS":
		status.State = TaskSuccess
	case "FAILURE":
		status.State = TaskFailure
	}
	if payload.Result.DocumentID != 0 {
		status.DocumentID = payload.Result.DocumentID
	} else if payload.RelatedDocument != "" {
		if id, parseErr := strconv.ParseInt(payload.RelatedDocument, 10, 64); parseErr == nil {
			status.DocumentID = id
		}
	}
	return status, nil
}

// FetchDocument retrieves a document by ID. A 404 surfaces as
// services.ErrNotFound; the document may have been rejected as a duplicate or
// simply not be committed yet, which are indistinguishable from outside.
func (c *Client) FetchDocument(ctx context.Context, id int64) (Document, error) {
	var payload documentPayload
	if err := c.getJSON(ctx, "/api/documents/"+strconv.FormatInt(id, 10)+"/", nil, &payload); err != nil {
		return Document{}, err
	}
	return payload.toDocument(), nil
}

// ListRecent returns a recency-ordered page of the document index, the same
// ordering the upstream's own UI uses.
func (c *Client) ListRecent(ctx context.Context, page, pageSize int) ([]DocumentSummary, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))
	query.Set("ordering", "-created")
	query.Set("truncate_content", "true")

	var payload listPayload
	if err := c.getJSON(ctx, "/api/documents/", query, &payload); err != nil {
		return nil, err
	}
	return payload.toSummaries(), nil
}

// Search runs a full-text query against the document index.
func (c *Client) Search(ctx context.Context, term string) ([]DocumentSummary, error) {
	query := url.Values{}
	query.Set("query", term)

	var payload listPayload
	if err := c.getJSON(ctx, "/api/documents/", query, &payload); err != nil {
		return nil, err
	}
	return payload.toSummaries(), nil
}

func (p documentPayload) toDocument() Document {
	doc := Document{
		ID:               p.ID,
		Title:            p.Title,
		OriginalFileName: p.OriginalFileName,
		Content:          p.Content,
		Created:          parseCreated(p.Created),
		Checksum:         p.Checksum,
		Tags:             p.Tags,
	}
	if p.Correspondent != nil {
		doc.Correspondent = *p.Correspondent
	}
	if p.DocumentType != nil {
		doc.DocumentType = *p.DocumentType
	}
	return doc
}

func (l listPayload) toSummaries() []DocumentSummary {
	summaries := make([]DocumentSummary, 0, len(l.Results))
	for _, result := range l.Results {
		summaries = append(summaries, DocumentSummary{
			ID:               result.ID,
			Title:            result.Title,
			OriginalFileName: result.OriginalFileName,
			Created:          parseCreated(result.Created),
		})
	}
	return summaries
}

// CorrespondentName resolves a correspondent ID to its display name.
func (c *Client) CorrespondentName(ctx context.Context, id int64) (string, error) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, "/api/correspondents/"+strconv.FormatInt(id, 10)+"/", nil, &payload); err != nil {
		return "", err
	}
	return payload.Name, nil
}

// DocumentTypeName resolves a document type ID to its display name.
func (c *Client) DocumentTypeName(ctx context.Context, id int64) (string, error) {
	var payload struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, "/api/document_types/"+strconv.FormatInt(id, 10)+"/", nil, &payload); err != nil {
		return "", err
	}
	return payload.Name, nil
}
