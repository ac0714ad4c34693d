// Package buildbench is a client for the build-bench HTTP protocol:
// submitting multi-tab builds and fetching stored results by identity.
package buildbench

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public build service
const DefaultBaseURL = "https://build-bench.com"

// ErrNotFound is returned when the service has no build for an identity
var ErrNotFound = errors.New("build not found")

// TransportError means no usable response came back
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client talks to a build service
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for the service at baseURL
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: "qbench",
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service root this client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Build submits tabs for compilation and timing. A response carrying only
// diagnostics is not an error; the caller inspects Result and Messages.
func (c *Client) Build(ctx context.Context, req BuildRequest) (*Response, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal build request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/build/", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	status, body, err := c.do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "build", Err: err}
	}

	resp, err := decodeResponse(body)
	if err != nil {
		return nil, &TransportError{Op: "build", Status: status, Err: err}
	}
	if !success(status) && !resp.HasResult() && len(resp.Messages) == 0 {
		return nil, &TransportError{Op: "build", Status: status, Err: errors.New("no results or messages")}
	}

	return resp, nil
}

// Fetch retrieves a previously computed build by identity
func (c *Client) Fetch(ctx context.Context, id string) (*Response, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/build/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("create fetch request: %w", err)
	}

	status, body, err := c.do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "fetch", Err: err}
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	resp, err := decodeResponse(body)
	if errors.Is(err, errEmptyBody) || (err == nil && resp.Empty()) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, &TransportError{Op: "fetch", Status: status, Err: err}
	}
	if !success(status) && !resp.HasResult() && len(resp.Messages) == 0 {
		return nil, &TransportError{Op: "fetch", Status: status, Err: errors.New("no results or messages")}
	}

	return resp, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("build service request",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return resp.StatusCode, body, nil
}

var errEmptyBody = errors.New("empty response body")

func decodeResponse(body []byte) (*Response, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errEmptyBody
	}
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &resp, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}
