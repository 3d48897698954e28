// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrStreamUnavailable is returned when a response carries no readable body.
var ErrStreamUnavailable = errors.New("stream: response body is not readable")

// readBufferSize is the initial line buffer. Lines longer than this still
// work; bufio grows the returned string.
const readBufferSize = 32 * 1024

// =============================================================================
// LINE READER
// =============================================================================

// LineReader yields decoded text lines from a byte stream. It is consumed
// once; there is no rewind.
type LineReader struct {
	src *bufio.Reader
}

// NewLineReader wraps body with a stateful UTF-8 decoder. A leading BOM is
// dropped and invalid sequences become U+FFFD. A rune split across two
// reads of body is held back until its remaining bytes arrive.
func NewLineReader(body io.Reader) (*LineReader, error) {
	if body == nil {
		return nil, ErrStreamUnavailable
	}
	decoded := transform.NewReader(body, unicode.UTF8BOM.NewDecoder())
	return &LineReader{src: bufio.NewReaderSize(decoded, readBufferSize)}, nil
}

// Next returns the next line without its terminator. The final line is
// returned even if the body ends without a newline; after that Next
// returns io.EOF. Cancellation is checked before each read.
func (r *LineReader) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	line, err := r.src.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if line != "" {
				return trimEOL(line), nil
			}
			return "", io.EOF
		}
		// A cancelled request surfaces as a body read error; report the cause.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", err
	}
	return trimEOL(line), nil
}

func trimEOL(line string) string {
	return strings.TrimRight(line, "\r\n")
}
