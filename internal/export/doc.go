// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes conversation transcripts to disk.
//
// # Formats
//
//   - Markdown: human-readable, with optional YAML frontmatter
//   - JSON: the conversation as held in the store, wrapped with export
//     metadata
//
// A backend-rendered export (api.Export) can be saved the same way with
// SaveServerExport.
//
// # Usage
//
//	exp, err := export.ForFormat("markdown", export.DefaultOptions())
//	path, err := export.ExportToFile(conv, exp, opts)
package export
