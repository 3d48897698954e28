// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Gold is the brand accent: header, prompt, selection.
var Gold = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}

// Teal marks the user's side of the conversation.
var Teal = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}

// Violet marks the assistant's side.
var Violet = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#C4B5FD"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Rose is used for errors.
var Rose = lipgloss.AdaptiveColor{Light: "#BE123C", Dark: "#FB7185"}

// Amber is used for warnings and the thinking indicator.
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FCD34D"}

// Emerald is used for success and a healthy backend.
var Emerald = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}

// =============================================================================
// SURFACES AND TEXT
// =============================================================================

var (
	Surface    = lipgloss.AdaptiveColor{Light: "#FFFBF5", Dark: "#1C1917"}
	SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5EFE6", Dark: "#141210"}
	Overlay    = lipgloss.AdaptiveColor{Light: "#E7DED2", Dark: "#3A3532"}

	TextPrimary   = lipgloss.AdaptiveColor{Light: "#1C1917", Dark: "#F5F5F4"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#57534E", Dark: "#D6D3D1"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#A8A29E", Dark: "#78716C"}
	TextInverse   = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1C1917"}
)

// Message error block.
var (
	ErrorBg = lipgloss.AdaptiveColor{Light: "#FFE4E6", Dark: "#4C0519"}
	ErrorFg = lipgloss.AdaptiveColor{Light: "#9F1239", Dark: "#FECDD3"}
)

// =============================================================================
// INDICATORS
// =============================================================================

// Indicators are ASCII markers shown next to colors so state is readable
// without them.
var Indicators = struct {
	OK, Error, Warning, Pending, Active string
}{
	OK:      "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Pending: "[…]",
	Active:  "[*]",
}
