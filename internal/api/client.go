// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Configuration constants for the backend client.
const (
	// DefaultTimeout bounds ordinary requests.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps non-streaming response bodies.
	MaxResponseSize = 10 * 1024 * 1024

	// DefaultUserAgent identifies the client.
	DefaultUserAgent = "dixel/0.1.0"

	// RequestIDHeader carries a per-request id for backend log correlation.
	RequestIDHeader = "X-Request-ID"
)

var (
	// Shared transport so all clients reuse connections.
	sharedTransport = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	// sharedStreamingClient has no timeout; the request context bounds it.
	sharedStreamingClient = &http.Client{Transport: sharedTransport}
)

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one backend. The zero value is not usable; call NewClient.
type Client struct {
	baseURL      string
	token        string
	userAgent    string
	httpClient   *http.Client
	streamClient *http.Client
	verbose      bool
}

// NewClient creates a client for baseURL with the default timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		userAgent:    DefaultUserAgent,
		httpClient:   &http.Client{Transport: sharedTransport, Timeout: DefaultTimeout},
		streamClient: sharedStreamingClient,
	}
}

// WithTimeout sets the timeout for non-streaming requests.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	hc := *c.httpClient
	hc.Timeout = timeout
	c.httpClient = &hc
	return c
}

// WithHTTPClient replaces both underlying HTTP clients. Used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	stream := *hc
	stream.Timeout = 0
	c.streamClient = &stream
	return c
}

// WithUserAgent overrides the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	c.userAgent = ua
	return c
}

// WithVerbose enables request logging.
func (c *Client) WithVerbose(v bool) *Client {
	c.verbose = v
	return c
}

// WithToken returns a copy of c that authenticates with token. The
// receiver is not modified, so a shared client stays anonymous.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// BaseURL returns the backend URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HasToken reports whether the client carries a bearer token.
func (c *Client) HasToken() bool {
	return c.token != ""
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// call describes one JSON request.
type call struct {
	method string
	path   string
	query  url.Values
	body   any
	out    any
	// auth requires a bearer token.
	auth bool
	// authEndpoint classifies {detail} errors as AuthError.
	authEndpoint bool
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req, body != nil)
	return req, nil
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, uuid.NewString())
}

// do executes a JSON call and decodes the response into call.out.
func (c *Client) do(ctx context.Context, cl call) error {
	if cl.auth && c.token == "" {
		return ErrNoToken
	}

	rawURL := c.endpoint(cl.path, cl.query)
	req, err := c.newRequest(ctx, cl.method, rawURL, cl.body)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: cl.method, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()
	c.logResponse(req, resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return &TransportError{Op: cl.method, URL: rawURL, Err: err}
	}

	statusText := http.StatusText(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp.StatusCode, statusText, body, cl.authEndpoint)
	}

	if cl.out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	return decodeJSON(body, resp.StatusCode, statusText, cl.out)
}

// readResponse reads a size-limited body.
func readResponse(resp *http.Response) ([]byte, error) {
	limited := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeds %d bytes", MaxResponseSize)
	}
	return body, nil
}

// logResponse never logs bodies or headers; they carry tokens and answers.
func (c *Client) logResponse(req *http.Request, resp *http.Response, d time.Duration) {
	if !c.verbose {
		return
	}
	log.Printf("[api] %s %s -> %d (%s) id=%s",
		req.Method, req.URL.Path, resp.StatusCode, d.Round(time.Millisecond), req.Header.Get(RequestIDHeader))
}
