// Package transport talks to the chat backend over HTTP: chat turns, auth,
// remote conversation history and checkout.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iksnae/synapse-chat/internal"
)

// HTTPClient is the subset of *http.Client the client needs
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

var _ HTTPClient = (*http.Client)(nil)

// TokenSource supplies the bearer token for a request; an empty token sends none
type TokenSource func() string

// Client is the backend API client
type Client struct {
	baseURL string
	http    HTTPClient
	token   TokenSource
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(c HTTPClient) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout sets the timeout of the default HTTP client
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http = &http.Client{Timeout: d} }
}

// WithTokenSource attaches credentials to chat and account requests
func WithTokenSource(ts TokenSource) Option {
	return func(cl *Client) { cl.token = ts }
}

// New creates a client for the backend at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: internal.DefaultHTTPTimeout},
		token:   func() string { return "" },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root
func (c *Client) BaseURL() string {
	return c.baseURL
}

type errorBody struct {
	Error    string `json:"error"`
	Response string `json:"response"`
}

// do sends body as JSON and decodes a 2xx answer into out. Every failure is a
// *internal.TransportError; 401 answers wrap internal.ErrUnauthorized.
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &internal.TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &internal.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &internal.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	internal.LogDebug("%s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &internal.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(op, resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &internal.TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func statusError(op string, status int, data []byte) error {
	var eb errorBody
	_ = json.Unmarshal(data, &eb)
	msg := strings.TrimSpace(eb.Error)

	var cause error
	switch {
	case status == http.StatusUnauthorized:
		cause = internal.ErrUnauthorized
	case msg == "":
		cause = errors.New(http.StatusText(status))
	}
	return &internal.TransportError{Op: op, Status: status, Message: msg, Err: cause}
}

// HealthStatus is the backend's health report
type HealthStatus struct {
	Status string `json:"status"`
	Model  string `json:"model,omitempty"`
}

// Health checks the backend health endpoint
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.do(ctx, "health", http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
