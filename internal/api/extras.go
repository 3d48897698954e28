// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Health probes /health. It does not require a token.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, call{method: http.MethodGet, path: "/health", out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// HealthDetailed probes /health/detailed.
func (c *Client) HealthDetailed(ctx context.Context) (Document, error) {
	var out Document
	if err := c.do(ctx, call{method: http.MethodGet, path: "/health/detailed", out: &out}); err != nil {
		return nil, err
	}
	return out, nil
}

// Statistics returns per-conversation statistics.
func (c *Client) Statistics(ctx context.Context, id int64) (Document, error) {
	var out Document
	if err := c.do(ctx, call{method: http.MethodGet, path: conversationPath(id, "/statistics"), out: &out, auth: true}); err != nil {
		return nil, err
	}
	return out, nil
}

// SearchMessages runs a full-text search over the account's messages.
func (c *Client) SearchMessages(ctx context.Context, query string, limit int) ([]Document, error) {
	return c.search(ctx, "/search/messages", query, limit)
}

// SearchConversations searches conversation titles.
func (c *Client) SearchConversations(ctx context.Context, query string, limit int) ([]Document, error) {
	return c.search(ctx, "/search/conversations", query, limit)
}

func (c *Client) search(ctx context.Context, path, query string, limit int) ([]Document, error) {
	q := url.Values{"q": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []Document
	if err := c.do(ctx, call{method: http.MethodGet, path: path, query: q, out: &out, auth: true}); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportConversation downloads a server-rendered export. format is passed
// through ("json", "markdown", ...); an empty format means json.
func (c *Client) ExportConversation(ctx context.Context, id int64, format string) (*Export, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}
	if format == "" {
		format = "json"
	}

	rawURL := c.endpoint(conversationPath(id, "/export"), url.Values{"format": {format}})
	req, err := c.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "*/*")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: http.MethodGet, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()
	c.logResponse(req, resp, time.Since(start))

	body, err := readResponse(resp)
	if err != nil {
		return nil, &TransportError{Op: http.MethodGet, URL: rawURL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errorFromResponse(resp.StatusCode, http.StatusText(resp.StatusCode), body, false)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("export of conversation %d is empty", id)
	}

	return &Export{
		Format:      format,
		ContentType: resp.Header.Get("Content-Type"),
		Data:        body,
	}, nil
}
