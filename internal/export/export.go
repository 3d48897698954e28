// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/dixel/internal/api"
	"github.com/jeranaias/dixel/internal/model"
	"github.com/jeranaias/dixel/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a conversation in one format.
type Exporter interface {
	Export(conv model.Conversation) ([]byte, error)
	FileExtension() string
	MimeType() string
}

// Supported format names.
const (
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

var (
	// ErrUnknownFormat is returned by ForFormat.
	ErrUnknownFormat = errors.New("unknown export format")
	// ErrEmptyConversation is returned when there is nothing to export.
	ErrEmptyConversation = errors.New("conversation has no messages")
)

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where files are written. Default: current directory.
	OutputDir string

	// IncludeMetadata adds a frontmatter block and a summary section.
	IncludeMetadata bool

	// IncludeTimestamps adds per-message times.
	IncludeTimestamps bool

	// Now replaces time.Now for generated timestamps.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// ForFormat returns the exporter for a format name. "md" is accepted for
// markdown.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatMarkdown, "md", "":
		return NewMarkdownExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile renders conv with exporter and writes it atomically under
// opts.OutputDir. It returns the path written.
func ExportToFile(conv model.Conversation, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(conv)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	return write(opts, conv.GetTitle(), exporter.FileExtension(), content)
}

// SaveServerExport writes a backend-rendered export next to local ones.
func SaveServerExport(exp *api.Export, title string, opts *Options) (string, error) {
	if exp == nil || len(exp.Data) == 0 {
		return "", errors.New("empty server export")
	}
	if opts == nil {
		opts = DefaultOptions()
	}
	return write(opts, title, extensionFor(exp.Format, exp.ContentType), exp.Data)
}

func write(opts *Options, title, ext string, content []byte) (string, error) {
	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	filename := fmt.Sprintf("dixel_%s_%s_%s%s",
		sanitizeFilename(title),
		opts.now().Format("20060102_150405"),
		uuid.NewString()[:8],
		ext,
	)
	outputPath := filepath.Join(dir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

func extensionFor(format, contentType string) string {
	switch {
	case strings.EqualFold(format, FormatJSON), strings.Contains(contentType, "json"):
		return ".json"
	case strings.EqualFold(format, FormatMarkdown), strings.Contains(contentType, "markdown"):
		return ".md"
	case strings.Contains(contentType, "html"):
		return ".html"
	case strings.Contains(contentType, "pdf"):
		return ".pdf"
	default:
		return ".txt"
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	const maxLen = 50
	runes := []rune(strings.TrimSpace(s))
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}

	result := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			result = append(result, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			result = append(result, '_')
		case r < 32 || r == 127:
			result = append(result, '-')
		default:
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "conversation"
	}
	return string(result)
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
