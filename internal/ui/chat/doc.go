// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the full-screen chat view.
//
// The Model renders the app's conversation store and never mutates it
// directly: every change goes through the chat.Reconciler from a tea.Cmd,
// and the view redraws when the store signals a change.
//
// Layout:
//
//	┌ header: title · user · backend status ─────────────┐
//	│ conversations │ messages (viewport)                │
//	│               │                                    │
//	├───────────────┴────────────────────────────────────┤
//	│ > input                                            │
//	└ status bar ────────────────────────────────────────┘
//
// Signed-out users see the login form instead of the message pane.
package chat
