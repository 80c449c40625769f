// Package transport is the JSON-over-HTTP client every remote component
// talks through: the metadata client, the table clients and the JSON sample
// collector.
//
// It owns base URL resolution, default headers, request IDs, per-request
// timeouts, retries of idempotent calls and the mapping of failures onto
// errs kinds. Error responses shaped like
//
//	{"error": {"kind": "not_found", "message": "..."}}
//
// keep their kind across the wire; any other failure is classified by its
// HTTP status.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/koustreak/datrigen/internal/errs"
	"github.com/koustreak/datrigen/internal/logger"
)

// RequestIDHeader carries the per-call request ID. Retries reuse it.
const RequestIDHeader = "X-Request-ID"

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 1 << 20

// Config holds the client settings.
type Config struct {
	// BaseURL is prepended to every request path, e.g. "http://localhost:8080/".
	BaseURL string `yaml:"url"`

	// Timeout bounds each attempt. Zero means no per-attempt timeout.
	Timeout time.Duration `yaml:"timeout"`

	// Retries is how many times an idempotent call is retried after a
	// network error, a 5xx or a 429.
	Retries int `yaml:"retries"`

	// RetryBackoff is multiplied by the attempt number between retries.
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// Headers are sent with every request.
	Headers map[string]string `yaml:"headers"`
}

// DefaultConfig returns settings suited to a metadata service on a LAN.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		Timeout:      30 * time.Second,
		Retries:      2,
		RetryBackoff: 200 * time.Millisecond,
	}
}

// Client issues JSON requests against one base URL.
// It is safe for concurrent use by multiple goroutines.
type Client struct {
	cfg  Config
	base *url.URL
	http *http.Client
	log  *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger requests are traced to.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New validates cfg and returns a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errs.New(errs.ErrKindInvalidInput, "base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid base URL: "+cfg.BaseURL, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
		if base.RawPath != "" {
			base.RawPath += "/"
		}
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}

	c := &Client{
		cfg:  cfg,
		base: base,
		http: &http.Client{},
		log:  logger.L().Component("transport"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// Get fetches path with query and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post sends body as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Put sends body as JSON and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

// Delete removes the resource at path. out may be nil.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// Do performs one logical call, retrying idempotent methods. A nil out
// discards the response body.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target, err := c.resolve(path, query)
	if err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, "failed to encode request body", err)
		}
	}

	requestID := uuid.NewString()
	attempts := 1
	if idempotent(method) {
		attempts += c.cfg.Retries
	}

	for attempt := 1; ; attempt++ {
		start := time.Now()
		status, err := c.attempt(ctx, method, target, requestID, payload, out)

		c.log.With().
			Str("method", method).
			Str("url", target).
			Str("request_id", requestID).
			Int("status", status).
			Int("attempt", attempt).
			Int("duration_ms", int(time.Since(start).Milliseconds())).
			Logger().
			Debug("http request")

		if err == nil {
			return nil
		}
		if attempt >= attempts || !retryable(ctx, status, err) {
			return err
		}

		if werr := c.wait(ctx, attempt); werr != nil {
			return err
		}
		c.log.WarnWith("retrying request", err, map[string]interface{}{
			"method":     method,
			"url":        target,
			"request_id": requestID,
			"attempt":    attempt + 1,
		})
	}
}

func (c *Client) attempt(ctx context.Context, method, target, requestID string, payload []byte, out any) (int, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, errs.Wrap(errs.ErrKindInvalidInput, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set(RequestIDHeader, requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, networkError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, statusError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return resp.StatusCode, nil
		}
		if ctx.Err() != nil {
			return resp.StatusCode, networkError(ctx, err)
		}
		return resp.StatusCode, errs.Wrap(errs.ErrKindQueryFailed, "failed to decode response body", err)
	}
	return resp.StatusCode, nil
}

// resolve joins path onto the base URL. Path segments must already be
// escaped; use Path to build them.
func (c *Client) resolve(path string, query url.Values) (string, error) {
	ref, err := url.Parse("./" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", errs.Wrap(errs.ErrKindInvalidInput, "invalid request path: "+path, err)
	}
	u := c.base.ResolveReference(ref)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

func (c *Client) wait(ctx context.Context, attempt int) error {
	d := c.cfg.RetryBackoff * time.Duration(attempt)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Path escapes each segment and joins them with "/".
func Path(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, "/")
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

func retryable(ctx context.Context, status int, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if status == 0 {
		// no response: network failure, or an attempt that hit its own timeout
		return errs.IsConnectionFailed(err) || errs.IsTimeout(err)
	}
	return status == http.StatusTooManyRequests || status >= 500
}

func networkError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, "request timed out", err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return errs.Wrap(errs.ErrKindTimeout, "request timed out", err)
	}
	return errs.Wrap(errs.ErrKindConnectionFailed, "request failed", err)
}
