// Package crm implements the read-only Attio CRM integration: an HTTP client
// for the records-query endpoint, and the tool catalog the conversation loop
// offers to the LLM.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// defaultBaseURL is the public Attio API endpoint.
	defaultBaseURL = "https://api.attio.com/v2"

	// requestTimeout bounds every CRM call.
	requestTimeout = 15 * time.Second

	// queryPath is the single records-query endpoint all tools go through.
	queryPath = "/objects/deals/records/query"
)

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithBaseURL overrides the Attio API base URL. Used in tests against
// httptest servers.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client is an authenticated Attio API client. Safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client. apiKey must be non-empty.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("crm: apiKey must not be empty")
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// recordsQuery is the JSON body of a records-query request. Filter shapes
// used: exact field match, {"$contains": ...} substring match, record-id
// match.
type recordsQuery struct {
	Limit  int            `json:"limit,omitempty"`
	Filter map[string]any `json:"filter,omitempty"`
}

// recordsResponse is the JSON body of a records-query response.
type recordsResponse struct {
	Data []Record `json:"data"`
}

// Query posts q to the records-query endpoint and returns the matching
// records. Non-2xx responses and transport failures are returned as errors;
// callers decide whether to surface them to the model or the operator.
func (c *Client) Query(ctx context.Context, q recordsQuery) ([]Record, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("crm: encode query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+queryPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crm: query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for the log line without trusting its size.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("crm: query returned status %d: %s", resp.StatusCode, snippet)
	}

	var out recordsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("crm: decode response: %w", err)
	}
	return out.Data, nil
}

// ListDeals fetches up to limit deals, optionally filtered by stage.
// limit is clamped to [1, 100]; zero means the default of 20.
func (c *Client) ListDeals(ctx context.Context, stage string, limit int) ([]Record, error) {
	if limit == 0 {
		limit = 20
	}
	limit = min(max(limit, 1), 100)

	q := recordsQuery{Limit: limit}
	if stage != "" {
		q.Filter = map[string]any{"stage": stage}
	}
	return c.Query(ctx, q)
}

// GetDeal fetches a single deal by record ID.
func (c *Client) GetDeal(ctx context.Context, dealID string) ([]Record, error) {
	return c.Query(ctx, recordsQuery{
		Filter: map[string]any{"record_id": dealID},
	})
}

// SearchDeals finds deals whose name contains query.
func (c *Client) SearchDeals(ctx context.Context, query string) ([]Record, error) {
	return c.Query(ctx, recordsQuery{
		Filter: map[string]any{"name": map[string]any{"$contains": query}},
	})
}

// fetchPage fetches the 100-deal page the aggregation tools work over.
func (c *Client) fetchPage(ctx context.Context) ([]Record, error) {
	return c.Query(ctx, recordsQuery{Limit: 100})
}
