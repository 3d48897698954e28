// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
)

// Handler receives events in delivery order. Nil callbacks are skipped.
type Handler struct {
	OnChunk   func(content string)
	OnSources func(sources json.RawMessage)
}

// Outcome summarises a consumed stream.
type Outcome struct {
	// Done is true when a done frame was received. False means the body
	// ended without one.
	Done bool
	// Chunks counts chunk frames delivered to the handler.
	Chunks int
	// Skipped counts malformed frames that were logged and dropped.
	Skipped int
}

// Consume reads body until a done frame, an error frame, end of input, or
// cancellation. Chunks are delivered synchronously so the handler observes
// them in the order the transport produced them.
func Consume(ctx context.Context, body io.Reader, h Handler) (Outcome, error) {
	var out Outcome

	reader, err := NewLineReader(body)
	if err != nil {
		return out, err
	}

	for {
		line, err := reader.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}

		ev, ok, err := Parse(line)
		if err != nil {
			out.Skipped++
			log.Printf("[stream] skipping frame: %v", err)
			continue
		}
		if !ok {
			continue
		}

		switch ev.Kind {
		case KindChunk:
			out.Chunks++
			if h.OnChunk != nil {
				h.OnChunk(ev.Content)
			}
		case KindSources:
			if h.OnSources != nil {
				h.OnSources(ev.Sources)
			}
		case KindDone:
			out.Done = true
			return out, nil
		case KindError:
			return out, &StreamError{Message: ev.Message}
		default:
			log.Printf("[stream] ignoring unknown frame type %q", ev.Kind)
		}
	}
}
