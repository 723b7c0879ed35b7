// Package gateway is the HTTP client for the remote task API. Every call
// returns either a decoded record or a classified *Failure.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/nhle/sprintsync/internal/model"
)

// SessionSource supplies the bearer credential and is told when the
// server rejects it.
type SessionSource interface {
	Current() (model.Session, bool)
	Clear()
}

// Client is a thin HTTP client for the task API. It attaches the bearer
// credential from the session source, clears the session on 401 and
// retries with backoff on HTTP 429.
type Client struct {
	baseURL    string
	sessions   SessionSource
	httpClient *http.Client
	anonClient *http.Client
	maxRetries int
}

// Option customizes a Client.
type Option func(*clientOptions)

type clientOptions struct {
	timeout    time.Duration
	transport  http.RoundTripper
	maxRetries int
}

// WithTimeout bounds each HTTP request. Defaults to 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithTransport sets the base round tripper (used by tests).
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

// WithMaxRetries sets how many times a rate-limited request is retried.
func WithMaxRetries(n int) Option {
	return func(o *clientOptions) { o.maxRetries = n }
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, sessions SessionSource, opts ...Option) *Client {
	o := clientOptions{
		timeout:    10 * time.Second,
		transport:  http.DefaultTransport,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		sessions: sessions,
		httpClient: &http.Client{
			Timeout: o.timeout,
			Transport: &oauth2.Transport{
				Source: sessionTokenSource{sessions: sessions},
				Base:   o.transport,
			},
		},
		anonClient: &http.Client{
			Timeout:   o.timeout,
			Transport: o.transport,
		},
		maxRetries: o.maxRetries,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// sessionTokenSource adapts the session store to oauth2.TokenSource so the
// bearer header always reflects the current session.
type sessionTokenSource struct {
	sessions SessionSource
}

func (s sessionTokenSource) Token() (*oauth2.Token, error) {
	sess, ok := s.sessions.Current()
	if !ok {
		return nil, SessionExpired()
	}
	return &oauth2.Token{AccessToken: sess.Token, TokenType: "Bearer"}, nil
}

// request describes a single API call.
type request struct {
	method        string
	path          string
	query         url.Values
	body          interface{}
	result        interface{}
	authenticated bool
}

// do is the core HTTP method that builds the request, handles auth,
// rate limiting with exponential backoff, and JSON (de)serialization.
func (c *Client) do(ctx context.Context, r request) error {
	if r.authenticated {
		if _, ok := c.sessions.Current(); !ok {
			return SessionExpired()
		}
	}

	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var payload []byte
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	client := c.anonClient
	if r.authenticated {
		client = c.httpClient
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, r.method, target, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := client.Do(req)
		if err != nil {
			return classifyTransport(err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return classifyTransport(fmt.Errorf("reading response body: %w", readErr))
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429) on %s %s", r.method, r.path)
			select {
			case <-ctx.Done():
				return classifyTransport(ctx.Err())
			case <-time.After(retryAfterDuration(resp, attempt)):
				continue
			}
		}

		if resp.StatusCode == http.StatusUnauthorized && r.authenticated {
			log.Printf("gateway: %s %s rejected the session (401)", r.method, r.path)
			c.sessions.Clear()
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return classifyStatus(resp.StatusCode, detailMessage(respBody))
		}

		// No content to parse (e.g. 204).
		if r.result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}

		if err := json.Unmarshal(respBody, r.result); err != nil {
			return &Failure{
				Kind:    KindServer,
				Status:  resp.StatusCode,
				Message: "Unexpected response from server",
				Err:     fmt.Errorf("unmarshaling response from %s %s: %w", r.method, r.path, err),
			}
		}
		return nil
	}

	return &Failure{
		Kind:    KindTransient,
		Status:  http.StatusTooManyRequests,
		Message: "Too many requests. Please try again.",
		Err:     fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr),
	}
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
