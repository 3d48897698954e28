// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the dixel color palette and the lipgloss styles
// built from it.
//
// Colors are lipgloss.AdaptiveColor values. NewTheme resolves the
// light/dark choice once ("auto" asks the terminal through termenv) and
// pins lipgloss to it, so every adaptive color follows the configured
// theme.
package styles
