package aiscan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"docwatch/internal/services"
)

const defaultHTTPTimeout = 15 * time.Second

// HTTPDoer describes the HTTP client used by the enrichment client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to a Paperless-AI compatible enrichment service. A nil or
// unconfigured client reports Enabled() == false; absence of configuration is
// a valid branch, never an error.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPDoer
}

// Option customizes the enrichment client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an enrichment client. Empty baseURL or apiKey yields a
// disabled client.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Enabled reports whether the enrichment service is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != "" && c.apiKey != ""
}

// ProcessedDocument identifies the document the service reports working on or
// having finished.
type ProcessedDocument struct {
	DocumentID int64  `json:"documentId"`
	Title      string `json:"title"`
}

// Status is the typed processing-status payload.
type Status struct {
	LastProcessed       *ProcessedDocument `json:"lastProcessed"`
	CurrentlyProcessing *ProcessedDocument `json:"currentlyProcessing"`
}

// TriggerScan asks the service to scan for and process unenriched documents.
func (c *Client) TriggerScan(ctx context.Context) error {
	if !c.Enabled() {
		return services.Wrap(services.ErrConfiguration, "aiscan", "trigger", "enrichment service not configured", nil)
	}
	endpoint, err := url.JoinPath(c.baseURL, "/api/scan/now")
	if err != nil {
		return services.Wrap(services.ErrValidation, "aiscan", "trigger", "build url", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "aiscan", "trigger", "build request", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "aiscan", "trigger", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		detail := fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return services.Wrap(services.ErrTransient, "aiscan", "trigger", detail, nil)
	}
	return nil
}

// ProcessingStatus polls the service's current and last-processed documents.
func (c *Client) ProcessingStatus(ctx context.Context) (Status, error) {
	if !c.Enabled() {
		return Status{}, services.Wrap(services.ErrConfiguration, "aiscan", "status", "enrichment service not configured", nil)
	}
	endpoint, err := url.JoinPath(c.baseURL, "/api/processing-status")
	if err != nil {
		return Status{}, services.Wrap(services.ErrValidation, "aiscan", "status", "build url", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Status{}, services.Wrap(services.ErrValidation, "aiscan", "status", "build request", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{}, services.Wrap(services.ErrTransient, "aiscan", "status", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return Status{}, services.Wrap(services.ErrTransient, "aiscan", "status", fmt.Sprintf("http %d", resp.StatusCode), nil)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return Status{}, services.Wrap(services.ErrTransient, "aiscan", "status", "decode response", err)
	}
	return status, nil
}
