// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/jeranaias/dixel/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Dixel"
	default:
		return string(r)
	}
}

// =============================================================================
// STATUS TYPE
// =============================================================================

// Status is the lifecycle state of a message. The zero value is
// StatusComplete so that messages decoded from the backend need no fixup.
type Status int

const (
	// StatusComplete marks a settled message (user input or canonical record).
	StatusComplete Status = iota
	// StatusPending marks the assistant placeholder shown before the first byte
	// of the answer arrives.
	StatusPending
	// StatusStreaming marks the assistant message receiving chunks.
	StatusStreaming
	// StatusError marks the static failure notice appended after a failed request.
	StatusError
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusPending:
		return "pending"
	case StatusStreaming:
		return "streaming"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode
// to StatusComplete.
func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pending":
		*s = StatusPending
	case "streaming":
		*s = StatusStreaming
	case "error":
		*s = StatusError
	default:
		*s = StatusComplete
	}
	return nil
}

// =============================================================================
// FIXED CONTENT
// =============================================================================

const (
	// ThinkingMarker is the label carried by the pending placeholder.
	// Rendering keys off Status, never off this text.
	ThinkingMarker = "Recherche dans tes documents..."

	// ErrorNotice replaces the in-flight assistant message when a request fails.
	ErrorNotice = "Erreur lors de la récupération de la réponse. Assure-toi que l'API est démarrée (python run_api.py)"

	// WelcomeText is shown in a fresh conversation.
	WelcomeText = "Hello! I'm Dixel Bot, your AI photography assistant. I can help you with:\n\n" +
		"• Camera settings and techniques\n" +
		"• Photo composition and lighting advice\n" +
		"• Equipment recommendations\n" +
		"• Post-processing tips\n" +
		"• Image analysis and feedback\n\n" +
		"Feel free to ask me anything or upload a photo for detailed analysis!"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Image     string    `json:"image,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Status    Status    `json:"status"`
}

// localSeq disambiguates ids minted within the same millisecond.
var localSeq atomic.Uint64

// NewLocalMessageID returns a process-unique id derived from the submission
// time. It is replaced by the server id on reconciliation.
func NewLocalMessageID(at time.Time) string {
	return strconv.FormatInt(at.UnixMilli(), 10) + "-" + strconv.FormatUint(localSeq.Add(1), 10)
}

// NewUserMessage creates a complete user message.
func NewUserMessage(content, image string, at time.Time) Message {
	return Message{
		ID:        NewLocalMessageID(at),
		Role:      RoleUser,
		Content:   content,
		Image:     image,
		Timestamp: at,
		Status:    StatusComplete,
	}
}

// NewPlaceholder creates the pending assistant message shown while the
// backend searches.
func NewPlaceholder(at time.Time) Message {
	return Message{
		ID:        NewLocalMessageID(at),
		Role:      RoleAssistant,
		Content:   ThinkingMarker,
		Timestamp: at,
		Status:    StatusPending,
	}
}

// NewStreamingMessage creates the empty assistant message that chunks are
// accumulated into.
func NewStreamingMessage(at time.Time) Message {
	return Message{
		ID:        NewLocalMessageID(at),
		Role:      RoleAssistant,
		Timestamp: at,
		Status:    StatusStreaming,
	}
}

// NewErrorMessage creates the static failure notice.
func NewErrorMessage(at time.Time) Message {
	return Message{
		ID:        NewLocalMessageID(at),
		Role:      RoleAssistant,
		Content:   ErrorNotice,
		Timestamp: at,
		Status:    StatusError,
	}
}

// WelcomeMessage returns the greeting shown in a fresh conversation.
func WelcomeMessage(at time.Time) Message {
	return Message{
		ID:        "1",
		Role:      RoleAssistant,
		Content:   WelcomeText,
		Timestamp: at,
		Status:    StatusComplete,
	}
}

// IsThinking reports whether the message is the pending placeholder.
func (m Message) IsThinking() bool {
	return m.Role == RoleAssistant && m.Status == StatusPending
}

// IsStreaming reports whether the message is receiving chunks.
func (m Message) IsStreaming() bool {
	return m.Status == StatusStreaming
}

// IsInFlight reports whether the message belongs to an unfinished request.
func (m Message) IsInFlight() bool {
	return m.Status == StatusPending || m.Status == StatusStreaming
}

// Preview returns a truncated single-line preview of the content.
func (m Message) Preview(maxLen int) string {
	return util.TruncateWidth(util.SingleLine(m.Content), maxLen)
}
