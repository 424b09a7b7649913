package paperless

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"docwatch/internal/services"
)

// UploadOptions carries the optional metadata fields accepted by the upload
// endpoint.
type UploadOptions struct {
	Title string
	Tags  []string
}

// Upload submits a document for consumption and returns the async task ID.
// The caller registers that ID with the tracker; the upload being accepted
// says nothing about when the document becomes visible.
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader, opts UploadOptions) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("document", filename)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "paperless", "upload", "build form", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", services.Wrap(services.ErrValidation, "paperless", "upload", "read document", err)
	}
	if opts.Title != "" {
		if err := writer.WriteField("title", opts.Title); err != nil {
			return "", services.Wrap(services.ErrValidation, "paperless", "upload", "write title field", err)
		}
	}
	for _, tag := range opts.Tags {
		if err := writer.WriteField("tags", tag); err != nil {
			return "", services.Wrap(services.ErrValidation, "paperless", "upload", "write tag field", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", services.Wrap(services.ErrValidation, "paperless", "upload", "finalize form", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/documents/post_document/", nil, &buf, writer.FormDataContentType())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", httpError("paperless", "upload", resp)
	}

	// The endpoint responds with the task UUID as a JSON-encoded string.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "paperless", "upload", "read response", err)
	}
	var taskID string
	if err := json.Unmarshal(body, &taskID); err != nil {
		taskID = strings.Trim(strings.TrimSpace(string(body)), `"`)
	}
	if taskID == "" {
		return "", services.Wrap(services.ErrTransient, "paperless", "upload", "empty task id in response", nil)
	}
	return taskID, nil
}
