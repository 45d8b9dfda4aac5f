package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sysattr/sysattr-go/pkg/namespace"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the server address, e.g. "http://device.local:8377".
	BaseURL string

	// Timeout bounds each request when the context has no deadline
	// (default: 10s).
	Timeout time.Duration

	// HTTPClient overrides the underlying client (optional).
	HTTPClient *http.Client

	// Retries is how often a failed read is retried. Only GET requests
	// that failed to connect or got a 502, 503 or 504 are retried; writes
	// never are.
	Retries int

	// RetryBackoff spaces the retries (default: 100ms doubling to 2s).
	RetryBackoff BackoffConfig
}

// Client talks to a Server.
type Client struct {
	config ClientConfig
	base   *url.URL
	http   *http.Client
}

// NewClient creates a new Client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", config.BaseURL)
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		config: config,
		base:   base,
		http:   httpClient,
	}, nil
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Health queries /healthz.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.doJSON(ctx, http.MethodGet, "/healthz", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Read returns the text of the entry at p.
func (c *Client) Read(ctx context.Context, p string) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, nodeURL(p), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if isJSON(resp) {
		return "", fmt.Errorf("%w: %s", namespace.ErrIsDir, p)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(body), nil
}

// Write sends data to the entry at p and returns the count it consumed.
func (c *Client) Write(ctx context.Context, p string, data []byte) (int, error) {
	var res WriteResult
	if err := c.doJSON(ctx, http.MethodPut, nodeURL(p), data, &res); err != nil {
		return 0, err
	}
	return res.Consumed, nil
}

// List returns the children of the directory at p. An empty p lists the root.
func (c *Client) List(ctx context.Context, p string) ([]namespace.Info, error) {
	resp, err := c.do(ctx, http.MethodGet, nodeURL(p), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isJSON(resp) {
		return nil, fmt.Errorf("%w: %s", namespace.ErrNotDir, p)
	}
	var infos []namespace.Info
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	return infos, nil
}

func (c *Client) doJSON(ctx context.Context, method, ref string, body []byte, out any) error {
	resp, err := c.do(ctx, method, ref, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do sends a request and converts error statuses into *StatusError.
// On success the caller owns the response body.
func (c *Client) do(ctx context.Context, method, ref string, body []byte) (*http.Response, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		// The body may be read after do returns.
		resp, err := c.sendWithRetry(ctx, method, ref, body)
		if err != nil {
			cancel()
			return nil, err
		}
		resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}
	return c.sendWithRetry(ctx, method, ref, body)
}

func (c *Client) sendWithRetry(ctx context.Context, method, ref string, body []byte) (*http.Response, error) {
	resp, err := c.send(ctx, method, ref, body)
	if err == nil || method != http.MethodGet || c.config.Retries <= 0 {
		return resp, err
	}

	backoff := NewBackoff(c.config.RetryBackoff)
	for backoff.Attempts() < c.config.Retries && retryable(err) {
		timer := time.NewTimer(backoff.Next())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, err
		case <-timer.C:
		}
		if resp, err = c.send(ctx, method, ref, body); err == nil {
			return resp, nil
		}
	}
	return nil, err
}

// retryable reports whether a failed read may succeed when repeated.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var serr *StatusError
	if errors.As(err, &serr) {
		switch serr.Code {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	return true
}

func (c *Client) send(ctx context.Context, method, ref string, body []byte) (*http.Response, error) {
	u := c.base.JoinPath(ref)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, ref, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	serr := &StatusError{
		Code:      resp.StatusCode,
		RequestID: resp.Header.Get(RequestIDHeader),
	}
	var er errorResponse
	if isJSON(resp) && json.NewDecoder(resp.Body).Decode(&er) == nil {
		serr.Message = er.Error
	} else {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		serr.Message = strings.TrimSpace(string(msg))
	}
	return nil, serr
}

// nodeURL builds the URL path for a tree path, escaping each component.
func nodeURL(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nsPrefix + "/"
	}
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return nsPrefix + "/" + strings.Join(parts, "/")
}

func isJSON(resp *http.Response) bool {
	mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// cancelBody releases the request context once the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
