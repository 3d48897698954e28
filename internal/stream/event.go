// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DataPrefix introduces every event line.
const DataPrefix = "data: "

// Kind is the event type carried in the "type" field of a frame.
type Kind string

const (
	KindChunk   Kind = "chunk"
	KindSources Kind = "sources"
	KindDone    Kind = "done"
	KindError   Kind = "error"
)

// Event is one decoded frame. Only the fields of the active Kind are set.
type Event struct {
	Kind    Kind            `json:"type"`
	Content string          `json:"content,omitempty"`
	Message string          `json:"message,omitempty"`
	Sources json.RawMessage `json:"sources,omitempty"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ProtocolError describes a frame that could not be decoded. It is
// reported per line and never aborts a stream.
type ProtocolError struct {
	Line string
	Err  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("malformed stream frame %q: %v", truncateLine(e.Line), e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// StreamError is raised by an explicit error frame from the backend.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	if e.Message == "" {
		return "stream error"
	}
	return "stream error: " + e.Message
}

// =============================================================================
// PARSING
// =============================================================================

// Parse interprets one line. ok is false for lines that are not frames
// (blank lines, comments, keepalives). A frame with undecodable JSON
// returns a *ProtocolError.
func Parse(line string) (ev Event, ok bool, err error) {
	payload, found := strings.CutPrefix(line, DataPrefix)
	if !found {
		return Event{}, false, nil
	}
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, false, &ProtocolError{Line: line, Err: err}
	}
	return ev, true, nil
}

// truncateLine keeps log output bounded when a frame is huge.
func truncateLine(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
