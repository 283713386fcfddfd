// Package client talks to a FHIR R4 REST endpoint: transaction bundle
// submission, individual resource upserts, and resource counting for the
// end-of-run summary.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	fl "github.com/gofhir/loader"
)

// DefaultTimeout for HTTP requests.
const DefaultTimeout = 60 * time.Second

// Client is a FHIR REST client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	log        zerolog.Logger
	version    fl.FHIRVersion

	entryCeiling int
	retry        RetryPolicy
	metrics      *fl.Metrics
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithTokenSource sets the bearer token source. Without one, requests are
// sent unauthenticated.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// WithClientEntryCeiling sets the per-transaction entry limit enforced
// before submission.
func WithClientEntryCeiling(ceiling int) ClientOption {
	return func(c *Client) {
		if ceiling > 0 {
			c.entryCeiling = ceiling
		}
	}
}

// WithRetryPolicy sets the transient-failure retry policy.
func WithRetryPolicy(policy RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = policy
	}
}

// WithFHIRVersion sets the FHIR release the service speaks. The content
// type of every exchange is derived from it. Unsupported versions are
// ignored, keeping the R4 default.
func WithFHIRVersion(v fl.FHIRVersion) ClientOption {
	return func(c *Client) {
		if v.IsValid() {
			c.version = v
		}
	}
}

// WithMetrics records retries into the given metrics.
func WithMetrics(m *fl.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client for the FHIR service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		baseURL:      baseURL,
		log:          zerolog.Nop(),
		version:      fl.R4,
		entryCeiling: fl.HardEntryLimit,
		retry:        DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitBundle POSTs a transaction bundle to the service root. Bundles
// whose entry count exceeds the configured ceiling are rejected before any
// bytes go on the wire.
func (c *Client) SubmitBundle(ctx context.Context, bundle map[string]any) error {
	entries, _ := bundle["entry"].([]any)
	if len(entries) > c.entryCeiling {
		return fmt.Errorf("bundle has %d entries, exceeds the %d entry limit", len(entries), c.entryCeiling)
	}

	body, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encoding bundle: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL, body)
	if err != nil {
		return fmt.Errorf("submitting bundle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError("bundle submission", resp)
	}
	return nil
}

// PutResource inserts or replaces a single resource by type and id.
func (c *Client) PutResource(ctx context.Context, resourceType, id string, resource map[string]any) error {
	body, err := json.Marshal(resource)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", resourceType, id, err)
	}

	resp, err := c.do(ctx, http.MethodPut, fmt.Sprintf("%s/%s/%s", c.baseURL, resourceType, id), body)
	if err != nil {
		return fmt.Errorf("putting %s/%s: %w", resourceType, id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(fmt.Sprintf("put %s/%s", resourceType, id), resp)
	}
	return nil
}

// Count returns the server's total for a resource type via a
// _summary=count search.
func (c *Client) Count(ctx context.Context, resourceType string) (int, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%s?_summary=count", c.baseURL, resourceType), nil)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", resourceType, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, responseError(fmt.Sprintf("count %s", resourceType), resp)
	}

	var result struct {
		Total int `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decoding %s count: %w", resourceType, err)
	}
	return result.Total, nil
}

// Search performs a GET search and returns the decoded response bundle.
// Parameters are encoded from the given values.
func (c *Client) Search(ctx context.Context, resourceType string, params url.Values) (map[string]any, error) {
	target := fmt.Sprintf("%s/%s", c.baseURL, resourceType)
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", resourceType, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(fmt.Sprintf("search %s", resourceType), resp)
	}

	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding %s search response: %w", resourceType, err)
	}
	return doc, nil
}

// do sends one request with retry on transient statuses. The request body
// is rebuilt for every attempt.
func (c *Client) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	var resp *http.Response

	err := c.retry.Do(ctx, c.log, func() (int, error) {
		if resp != nil {
			// Drain the failed attempt so the connection can be reused.
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck
			resp.Body.Close()
			resp = nil
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		} else {
			reader = http.NoBody
		}

		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", c.version.MIMEType())
		req.Header.Set("Accept", c.version.MIMEType())

		if c.tokens != nil {
			token, err := c.tokens.Token(ctx)
			if err != nil {
				return 0, fmt.Errorf("acquiring token: %w", err)
			}
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			return 0, err
		}
		return resp.StatusCode, nil
	}, c.metrics)

	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return resp, nil
}

// responseError builds an error from a non-success response, including a
// truncated body excerpt for diagnosis.
func responseError(op string, resp *http.Response) error {
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if len(excerpt) > 0 {
		return fmt.Errorf("%s failed: status %d: %s", op, resp.StatusCode, excerpt)
	}
	return fmt.Errorf("%s failed: status %d", op, resp.StatusCode)
}
