// Package oracle is the HTTP client for the external scoring service that
// maps a query/item pair to a relevance verdict. The service is opaque to
// this system beyond its request/response contract.
package oracle

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

const defaultTimeout = 30 * time.Second

// Request is the wire form of one query/item pair
type Request struct {
	Query           string            `json:"query"`
	ItemTitle       string            `json:"item_title"`
	ItemDescription string            `json:"item_description"`
	ItemCategory    string            `json:"item_category"`
	ItemAttributes  map[string]string `json:"item_attributes,omitempty"`
}

// Result is the raw scoring service verdict. The score may arrive as a JSON
// number or a numeric string; models.Score absorbs both.
type Result struct {
	RelevanceScore models.Score `json:"relevance_score"`
	Confidence     float64      `json:"confidence"`
	ReasonCode     *string      `json:"reason_code"`
	AIReasoning    string       `json:"ai_reasoning"`
}

type batchRequest struct {
	Evaluations []Request `json:"evaluations"`
}

type batchResponse struct {
	Results []Result `json:"results"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// Client talks to the scoring oracle over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *Metrics
}

// NewClient creates an oracle client. metrics may be nil.
func NewClient(baseURL string, timeout time.Duration, metrics *Metrics) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
	}
}

// Evaluate scores one query/item pair
func (c *Client) Evaluate(ctx context.Context, req Request) (Result, error) {
	var result Result
	if err := c.post(ctx, "/evaluate", req, &result); err != nil {
		return Result{}, err
	}
	return result, nil
}

// EvaluateBatch scores multiple pairs in one call. Results are positionally
// aligned to the request array by the service contract.
func (c *Client) EvaluateBatch(ctx context.Context, reqs []Request) ([]Result, error) {
	var resp batchResponse
	if err := c.post(ctx, "/evaluate/batch", batchRequest{Evaluations: reqs}, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Health probes the scoring service and returns its reported status
func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling oracle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &RemoteError{StatusCode: resp.StatusCode, Body: readBody(resp.Body)}
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return "", fmt.Errorf("decoding health response: %w", err)
	}
	return health.Status, nil
}

// Name identifies this client to the health poller
func (c *Client) Name() string {
	return "oracle"
}

// HealthCheck reports an error unless the service says it is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	status, err := c.Health(ctx)
	if err != nil {
		return err
	}
	if status != "healthy" {
		return fmt.Errorf("oracle reports status %q", status)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.metrics.IncRequest(path)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		c.metrics.IncError(path)
		return fmt.Errorf("calling oracle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.IncError(path)
		return &RemoteError{StatusCode: resp.StatusCode, Body: readBody(resp.Body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.IncError(path)
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// readBody returns up to 2KB of a response body for error reporting
func readBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 2048))
	if err != nil {
		return ""
	}
	return string(bytes.TrimSpace(data))
}
