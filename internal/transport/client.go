// Package transport sends chat messages to the remote endpoint and hands
// back the streamed response body.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/inercia/chatterm/internal/logging"
)

// ChatRequest is the JSON payload of a message.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// StatusError is returned when the endpoint answers with a non-success status.
// Body holds the full response text.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// Client posts messages to a fixed chat endpoint.
// It is safe for concurrent use.
type Client struct {
	endpoint   string
	httpClient *http.Client
	header     http.Header
	logger     *slog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout bounds the whole exchange, body included. Zero means no limit,
// which is the default: a stalled stream is waited on indefinitely.
func WithTimeout(d time.Duration) Option {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(client *Client) {
		client.header.Add(key, value)
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(client *Client) {
		client.logger = l
	}
}

// New creates a client for endpoint, e.g. "http://127.0.0.1:8000/chat".
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		header:     make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.Transport()
	}
	return c
}

// Endpoint returns the URL messages are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Send posts message on behalf of userID. On a 2xx answer it returns the open
// response body, which the caller must close. Any other status is returned
// as a *StatusError after the body has been read completely.
func (c *Client) Send(ctx context.Context, userID, message string) (io.ReadCloser, error) {
	body, err := json.Marshal(ChatRequest{UserID: userID, Message: message})
	if err != nil {
		return nil, fmt.Errorf("send message: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	for key, values := range c.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	c.logger.Debug("response headers received",
		"endpoint", c.endpoint,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("send message: status %d: reading body: %w", resp.StatusCode, readErr)
		}
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(respBody),
		}
	}
	return resp.Body, nil
}
