// Package webclient provides the outbound HTTP capabilities used by the
// validation and notification layers: bounded-timeout GET and JSON POST.
package webclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// userAgent identifies PageFoundry probes in upstream access logs.
const userAgent = "PageFoundry/1.0 (validation bot)"

// maxBodyBytes caps fetched page bodies. Generated artifacts are small static
// pages; anything larger is truncated rather than buffered unbounded.
const maxBodyBytes = 4 << 20

// Response is the outcome of one HTTP exchange.
type Response struct {
	StatusCode int
	Body       string
	ElapsedMS  int
}

// Client performs outbound HTTP with per-call bounded timeouts.
type Client struct {
	httpClient *http.Client
}

// New creates a Client. The zero timeout on the inner http.Client is
// intentional: every call carries its own context deadline.
func New() *Client {
	return &Client{
		httpClient: &http.Client{},
	}
}

// NewWithHTTPClient creates a Client around an existing http.Client (tests).
func NewWithHTTPClient(hc *http.Client) *Client {
	return &Client{httpClient: hc}
}

// Get fetches url, following redirects, with the given timeout.
func (c *Client) Get(ctx context.Context, url string, timeout time.Duration) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build GET %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := int(time.Since(start).Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		ElapsedMS:  elapsed,
	}, nil
}

// PostJSON marshals payload and POSTs it to url with the given timeout.
func (c *Client) PostJSON(ctx context.Context, url string, payload interface{}, timeout time.Duration) (*Response, error) {
	return c.DoJSON(ctx, http.MethodPost, url, payload, nil, timeout)
}

// DoJSON performs a JSON exchange with an arbitrary method and extra headers.
// A nil payload sends no body. Upstream API clients (LLM provider, GitHub)
// build on this.
func (c *Client) DoJSON(ctx context.Context, method, url string, payload interface{}, headers map[string]string, timeout time.Duration) (*Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload for %s: %w", url, err)
		}
		body = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := int(time.Since(start).Milliseconds())
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
		ElapsedMS:  elapsed,
	}, nil
}
