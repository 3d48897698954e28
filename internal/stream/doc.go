// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream consumes the answer stream of the /ask/stream endpoint.
//
// The body is a sequence of newline-delimited frames of the form
//
//	data: {"type":"chunk","content":"..."}
//
// LineReader turns the raw body into decoded text lines, carrying partial
// UTF-8 sequences across reads. Parse classifies a single line into an
// Event. Consume drives both and hands chunks to a Handler in delivery
// order.
//
// Failure policy:
//   - lines without the "data: " prefix are ignored
//   - a frame whose JSON does not parse is logged and skipped
//   - an "error" frame aborts consumption with a *StreamError
//   - frames after "done" are never read
package stream
