// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jeranaias/dixel/internal/model"
)

// =============================================================================
// TIMESTAMPS
// =============================================================================

// timestampLayouts are tried in order. The backend emits naive ISO
// timestamps without a zone, which are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp decodes the backend's date formats.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON accepts RFC3339, naive ISO timestamps, and null.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}

// MarshalJSON writes RFC3339.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339Nano))
}

// =============================================================================
// AUTH
// =============================================================================

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the signup request body.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the authenticated account.
type User struct {
	ID    int64  `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// LoginResponse is returned by /auth/login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	User        User   `json:"user"`
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// ConversationRecord is a conversation as stored by the backend.
type ConversationRecord struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt Timestamp `json:"created_at"`
}

// ToModel converts the record to an empty conversation.
func (r ConversationRecord) ToModel() model.Conversation {
	return model.NewConversation(model.PersistedID(r.ID), r.Title, r.CreatedAt.Time)
}

// MessageRecord is a message as stored by the backend.
type MessageRecord struct {
	ID        int64     `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image_url,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
}

// ToModel converts the record to a canonical, complete message.
func (r MessageRecord) ToModel() model.Message {
	return model.Message{
		ID:        strconv.FormatInt(r.ID, 10),
		Role:      model.Role(r.Role),
		Content:   r.Content,
		Image:     r.ImageURL,
		Timestamp: r.CreatedAt.Time,
		Status:    model.StatusComplete,
	}
}

// MessagesToModel converts a canonical list, preserving order.
func MessagesToModel(records []MessageRecord) []model.Message {
	out := make([]model.Message, 0, len(records))
	for _, r := range records {
		out = append(out, r.ToModel())
	}
	return out
}

// AskRequest is the /ask/stream request body.
type AskRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Question       string `json:"question"`
	ForceRebuild   bool   `json:"force_rebuild"`
}

// =============================================================================
// HEALTH AND EXTRAS
// =============================================================================

// HealthResponse is the /health body. Fields beyond status are kept raw.
type HealthResponse struct {
	Status string                     `json:"status"`
	Extra  map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps unknown fields in Extra.
func (h *HealthResponse) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if s, ok := raw["status"]; ok {
		if err := json.Unmarshal(s, &h.Status); err != nil {
			return fmt.Errorf("health status: %w", err)
		}
		delete(raw, "status")
	}
	h.Extra = raw
	return nil
}

// Document is a loosely-typed JSON object used for endpoints whose shape
// the client only displays (statistics, detailed health, search hits).
type Document map[string]any

// Export is a server-rendered conversation export.
type Export struct {
	Format      string
	ContentType string
	Data        []byte
}
