// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"
)

func conversationPath(id int64, suffix string) string {
	return fmt.Sprintf("/conversations/%d%s", id, suffix)
}

// ListConversations returns the account's conversations in backend order.
func (c *Client) ListConversations(ctx context.Context) ([]ConversationRecord, error) {
	var out []ConversationRecord
	if err := c.do(ctx, call{method: http.MethodGet, path: "/conversations", out: &out, auth: true}); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateConversation creates an empty conversation.
func (c *Client) CreateConversation(ctx context.Context) (*ConversationRecord, error) {
	var out ConversationRecord
	if err := c.do(ctx, call{method: http.MethodPost, path: "/conversations", out: &out, auth: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetConversation returns one conversation record.
func (c *Client) GetConversation(ctx context.Context, id int64) (*ConversationRecord, error) {
	var out ConversationRecord
	if err := c.do(ctx, call{method: http.MethodGet, path: conversationPath(id, ""), out: &out, auth: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteConversation deletes a conversation and its messages.
func (c *Client) DeleteConversation(ctx context.Context, id int64) error {
	return c.do(ctx, call{method: http.MethodDelete, path: conversationPath(id, ""), auth: true})
}

// ListMessages returns the canonical message list of a conversation.
func (c *Client) ListMessages(ctx context.Context, id int64) ([]MessageRecord, error) {
	var out []MessageRecord
	if err := c.do(ctx, call{method: http.MethodGet, path: conversationPath(id, "/messages"), out: &out, auth: true}); err != nil {
		return nil, err
	}
	return out, nil
}
