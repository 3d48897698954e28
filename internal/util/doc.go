// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across dixel packages.
//
//   - AtomicWriteFile: crash-safe file writing (config, exports)
//   - TruncateWidth, StringWidth: terminal-width aware truncation
//   - SingleLine: collapse whitespace for list previews
package util
