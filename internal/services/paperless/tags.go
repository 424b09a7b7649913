package paperless

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"docwatch/internal/services"
)

type tagListPayload struct {
	Results []Tag `json:"results"`
}

// ListTags returns all known tags.
func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	var payload tagListPayload
	if err := c.getJSON(ctx, "/api/tags/", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// CreateTag creates a tag and returns its ID.
func (c *Client) CreateTag(ctx context.Context, name, color string) (int64, error) {
	body, err := json.Marshal(map[string]string{"name": name, "color": color})
	if err != nil {
		return 0, services.Wrap(services.ErrValidation, "paperless", "create tag", "encode request", err)
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/tags/", nil, bytes.NewReader(body), "application/json")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return 0, httpError("paperless", "create tag", resp)
	}

	var created Tag
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return 0, services.Wrap(services.ErrTransient, "paperless", "create tag", "decode response", err)
	}
	return created.ID, nil
}

// AddDocumentTag patches a tag onto a document, preserving existing tags.
// Adding a tag the document already carries is a no-op.
func (c *Client) AddDocumentTag(ctx context.Context, documentID, tagID int64) error {
	doc, err := c.FetchDocument(ctx, documentID)
	if err != nil {
		return err
	}
	for _, existing := range doc.Tags {
		if existing == tagID {
			return nil
		}
	}
	updated := append(append([]int64{}, doc.Tags...), tagID)

	body, err := json.Marshal(map[string][]int64{"tags": updated})
	if err != nil {
		return services.Wrap(services.ErrValidation, "paperless", "patch tags", "encode request", err)
	}
	path := "/api/documents/" + strconv.FormatInt(documentID, 10) + "/"
	resp, err := c.do(ctx, http.MethodPatch, path, nil, bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return httpError("paperless", "patch tags", resp)
	}
	return nil
}

// EnsureTag finds a tag by name or creates it.
func (c *Client) EnsureTag(ctx context.Context, name, color string) (int64, error) {
	tags, err := c.ListTags(ctx)
	if err != nil {
		return 0, err
	}
	for _, tag := range tags {
		if tag.Name == name {
			return tag.ID, nil
		}
	}
	return c.CreateTag(ctx, name, color)
}

// TagNames resolves tag IDs to display labels. Unknown IDs fall back to a
// synthetic label so notifications never render raw integers.
func (c *Client) TagNames(ctx context.Context, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tags, err := c.ListTags(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]string, len(tags))
	for _, tag := range tags {
		byID[tag.ID] = tag.Name
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		} else {
			names = append(names, "Tag_"+strconv.FormatInt(id, 10))
		}
	}
	return names, nil
}
