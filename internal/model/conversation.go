// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/jeranaias/dixel/internal/util"
)

// DefaultTitle is used when a conversation has no title yet.
const DefaultTitle = "New Conversation"

// WelcomeTitle is the title of the local welcome conversation.
const WelcomeTitle = "Welcome to Dixel Bot"

// WelcomeKey is the local key of the welcome conversation.
const WelcomeKey = "1"

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds an ordered transcript. Messages are in display order,
// which is not necessarily server insertion order until reconciled.
type Conversation struct {
	ID        ConversationID `json:"id"`
	Title     string         `json:"title"`
	Messages  []Message      `json:"messages"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewConversation creates an empty conversation.
func NewConversation(id ConversationID, title string, createdAt time.Time) Conversation {
	return Conversation{
		ID:        id,
		Title:     title,
		Messages:  []Message{},
		CreatedAt: createdAt,
	}
}

// WelcomeConversation returns the local conversation shown before any
// backend data is loaded and after logout.
func WelcomeConversation(now time.Time) Conversation {
	return Conversation{
		ID:        LocalID(WelcomeKey),
		Title:     WelcomeTitle,
		Messages:  []Message{WelcomeMessage(now)},
		CreatedAt: now,
	}
}

// WithMessages returns a copy of c holding msgs.
func (c Conversation) WithMessages(msgs []Message) Conversation {
	c.Messages = msgs
	return c
}

// Clone returns a copy whose message slice does not alias c's.
func (c Conversation) Clone() Conversation {
	msgs := make([]Message, len(c.Messages))
	copy(msgs, c.Messages)
	c.Messages = msgs
	return c
}

// LastMessage returns the final message, if any.
func (c Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Thinking reports whether the conversation ends with the pending placeholder.
func (c Conversation) Thinking() bool {
	last, ok := c.LastMessage()
	return ok && last.IsThinking()
}

// Streaming reports whether the conversation ends with a streaming message.
func (c Conversation) Streaming() bool {
	last, ok := c.LastMessage()
	return ok && last.Role == RoleAssistant && last.IsStreaming()
}

// MessageIndex returns the position of the message with the given id or -1.
func (c Conversation) MessageIndex(id string) int {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// GetTitle returns the title, or DefaultTitle when blank.
func (c Conversation) GetTitle() string {
	if c.Title == "" {
		return DefaultTitle
	}
	return c.Title
}

// DisplayTitle returns the title truncated to maxWidth terminal cells.
func (c Conversation) DisplayTitle(maxWidth int) string {
	return util.TruncateWidth(c.GetTitle(), maxWidth)
}

// Preview returns the first user message, for list views.
func (c Conversation) Preview(maxWidth int) string {
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			return m.Preview(maxWidth)
		}
	}
	return ""
}
