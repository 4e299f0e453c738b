package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/searchqa/eval-engine/internal/models"
)

// Client is a Go SDK for the eval-engine API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new eval-engine client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a structured error returned by the service
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s - %s", e.Code, e.Message)
}

// envelope is the uniform response wrapper used by every endpoint
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

// EvaluateRequest submits a claimed item by id, or an inline entry when
// ItemID is empty
type EvaluateRequest struct {
	ItemID string `json:"item_id,omitempty"`

	Query           string                 `json:"query,omitempty"`
	ItemTitle       string                 `json:"item_title,omitempty"`
	ItemDescription string                 `json:"item_description,omitempty"`
	ItemCategory    string                 `json:"item_category,omitempty"`
	ItemAttributes  map[string]interface{} `json:"item_attributes,omitempty"`
}

// ClaimOptions controls the switch decision when another item is active
type ClaimOptions struct {
	ConfirmSwitch bool `json:"confirm_switch"`
}

// ItemList is the payload of list and reset responses
type ItemList struct {
	Items []models.Item `json:"items"`
	Total int           `json:"total"`
}

// BatchResults is the payload of a batch evaluation response
type BatchResults struct {
	Results []models.EvaluationResult `json:"results"`
	Total   int                       `json:"total"`
}

// HistoryPage is the payload of a history listing
type HistoryPage struct {
	Entries []models.HistoryEntry `json:"entries"`
	Total   int                   `json:"total"`
}

// BatchPage is the payload of a batch log listing
type BatchPage struct {
	Batches []models.BatchRecord `json:"batches"`
	Total   int                  `json:"total"`
}

// ListItems retrieves catalog items, optionally filtered by free text and category
func (c *Client) ListItems(ctx context.Context, query, category string) (*ItemList, error) {
	path := "/api/v1/items"
	sep := "?"
	if query != "" {
		path += sep + "q=" + query
		sep = "&"
	}
	if category != "" {
		path += sep + "category=" + category
	}

	var list ItemList
	if err := c.get(ctx, path, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetItem retrieves an item by ID
func (c *Client) GetItem(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	if err := c.get(ctx, fmt.Sprintf("/api/v1/items/%s", id), &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// NextItem retrieves the earliest available item in catalog order
func (c *Client) NextItem(ctx context.Context) (*models.Item, error) {
	var item models.Item
	if err := c.get(ctx, "/api/v1/items/next", &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ActiveItem retrieves the currently active claimed item, nil if none
func (c *Client) ActiveItem(ctx context.Context) (*models.Item, error) {
	var item *models.Item
	if err := c.get(ctx, "/api/v1/items/active", &item); err != nil {
		return nil, err
	}
	return item, nil
}

// ClaimItem claims an item and selects it as the active item
func (c *Client) ClaimItem(ctx context.Context, id string, opts ClaimOptions) (*models.Item, error) {
	var item models.Item
	if err := c.post(ctx, fmt.Sprintf("/api/v1/items/%s/claim", id), opts, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UnclaimItem returns an item to the available pool
func (c *Client) UnclaimItem(ctx context.Context, id string) (*models.Item, error) {
	var item models.Item
	if err := c.post(ctx, fmt.Sprintf("/api/v1/items/%s/unclaim", id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ResetItems restores every item to its pristine available state
func (c *Client) ResetItems(ctx context.Context) (*ItemList, error) {
	var list ItemList
	if err := c.post(ctx, "/api/v1/items/reset", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Evaluate scores one item
func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) (*models.EvaluationResult, error) {
	var result models.EvaluationResult
	if err := c.post(ctx, "/api/v1/evaluations", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EvaluateBatch scores multiple items in one call, preserving input order
func (c *Client) EvaluateBatch(ctx context.Context, reqs []EvaluateRequest) (*BatchResults, error) {
	payload := struct {
		Evaluations []EvaluateRequest `json:"evaluations"`
	}{Evaluations: reqs}

	var results BatchResults
	if err := c.post(ctx, "/api/v1/evaluations/batch", payload, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

// GetHistory retrieves the evaluation history, newest first
func (c *Client) GetHistory(ctx context.Context) (*HistoryPage, error) {
	var page HistoryPage
	if err := c.get(ctx, "/api/v1/history", &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ClearHistory empties the evaluation history and returns the reset statistics
func (c *Client) ClearHistory(ctx context.Context) (*models.Statistics, error) {
	var stats models.Statistics
	if err := c.do(ctx, "DELETE", "/api/v1/history", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetBatches retrieves the batch log, newest first
func (c *Client) GetBatches(ctx context.Context) (*BatchPage, error) {
	var page BatchPage
	if err := c.get(ctx, "/api/v1/batches", &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetStats retrieves aggregate statistics over the current history
func (c *Client) GetStats(ctx context.Context) (*models.Statistics, error) {
	var stats models.Statistics
	if err := c.get(ctx, "/api/v1/history/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, "GET", path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	return c.do(ctx, "POST", path, payload, out)
}

// do performs a request and unwraps the response envelope into out
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !env.Success {
		if env.Error != nil {
			return env.Error
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response data: %w", err)
		}
	}
	return nil
}
