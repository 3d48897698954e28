// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/dixel/internal/model"
)

// JSONExporter exports conversations to JSON. Every settled message is
// included regardless of options.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Document is the JSON export envelope.
type Document struct {
	ExportID     string             `json:"export_id"`
	ExportedAt   time.Time          `json:"exported_at"`
	Generator    string             `json:"generator"`
	Conversation model.Conversation `json:"conversation"`
}

// Export converts a conversation to indented JSON.
func (e *JSONExporter) Export(conv model.Conversation) ([]byte, error) {
	msgs := settled(conv.Messages)
	if len(msgs) == 0 {
		return nil, ErrEmptyConversation
	}
	doc := Document{
		ExportID:     uuid.NewString(),
		ExportedAt:   e.options.now().UTC(),
		Generator:    "dixel",
		Conversation: conv.WithMessages(msgs),
	}
	return json.MarshalIndent(doc, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
