package paperless

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

const defaultHTTPTimeout = 30 * time.Second

// HTTPDoer describes the HTTP client used by the Paperless client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps the Paperless-NGX REST API with typed request/response shapes.
// Dynamic upstream payloads never escape this boundary.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPDoer
}

// Option customizes the Paperless client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient constructs a Paperless API client.
func NewClient(baseURL, token string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      strings.TrimSpace(token),
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

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) endpoint(path string, query url.Values) (string, error) {
	joined, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return "", fmt.Errorf("build url: %w", err)
	}
	if len(query) > 0 {
		joined += "?" + query.Encode()
	}
	return joined, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Response, error) {
	endpoint, err := c.endpoint(path, query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "paperless", method+" "+path, "request failed", err)
	}
	return resp, nil
}

// getJSON performs a GET and decodes the response body into out. A 404 is
// tagged with services.ErrNotFound so callers can branch without matching on
// error text.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "paperless", "GET "+path, "resource not found", nil)
	case resp.StatusCode >= http.StatusMultipleChoices:
		return httpError("paperless", "GET "+path, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrTransient, "paperless", "GET "+path, "decode response", err)
	}
	return nil
}

func httpError(component, operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	detail := fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	return services.Wrap(services.ErrTransient, component, operation, detail, nil)
}
