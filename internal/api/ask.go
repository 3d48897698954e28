// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"io"
	"net/http"
)

// AskStream posts a question and returns the streamed answer body. The
// caller must close it. The request has no timeout; cancel ctx to abort.
// A non-2xx status is returned as an error and the body is closed.
func (c *Client) AskStream(ctx context.Context, conversationID int64, question string) (io.ReadCloser, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}

	rawURL := c.endpoint("/ask/stream", nil)
	req, err := c.newRequest(ctx, http.MethodPost, rawURL, AskRequest{
		ConversationID: conversationID,
		Question:       question,
		ForceRebuild:   false,
	})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: http.MethodPost, URL: rawURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, readErr := readResponse(resp)
		if readErr != nil {
			body = nil
		}
		return nil, errorFromResponse(resp.StatusCode, http.StatusText(resp.StatusCode), body, false)
	}

	return resp.Body, nil
}
