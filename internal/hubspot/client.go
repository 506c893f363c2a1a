// Package hubspot talks to the marketing API: listing forms and paging
// through each form's submissions.
//
// Requests are issued one at a time and never retried. Any failure is
// returned as a *RemoteRequestError and is expected to abort the run.
package hubspot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds every request, connection to last body byte.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of a failed response is kept on the error.
const maxErrorBody = 2048

// RemoteRequestError wraps any failed call: transport errors, timeouts,
// non-2xx responses and undecodable bodies.
type RemoteRequestError struct {
	Method     string
	URL        string
	StatusCode int    // 0 when no response was received
	Body       string // truncated response body for non-2xx replies
	Err        error
}

func (e *RemoteRequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *RemoteRequestError) Unwrap() error { return e.Err }

// Client is an authenticated client bound to one API base URL.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	logger  *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger used for per-page debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient constructs a client that sends token as a bearer credential on
// every request.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	c.http = oauth2.NewClient(context.Background(), src)
	c.http.Timeout = c.timeout
	return c
}

// getJSON issues a GET against path and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	fail := func(status int, body string, err error) error {
		return &RemoteRequestError{
			Method:     http.MethodGet,
			URL:        reqURL,
			StatusCode: status,
			Body:       body,
			Err:        err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fail(0, "", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fail(0, "", fmt.Errorf("http GET: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(0, "", fmt.Errorf("read body: %w", err))
	}

	c.logger.Debug("request done",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return fail(resp.StatusCode, string(body), fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fail(0, "", fmt.Errorf("json unmarshal: %w", err))
	}
	return nil
}
