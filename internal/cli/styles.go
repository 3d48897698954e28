// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/dixel/internal/ui/styles"
)

func init() {
	lipgloss.SetColorProfile(colorProfile())
}

// =============================================================================
// TEXT STYLES
// =============================================================================

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Gold)

	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.TextPrimary)

	labelStyle = lipgloss.NewStyle().Foreground(styles.TextSecondary)

	valueStyle = lipgloss.NewStyle().Foreground(styles.TextPrimary)

	successStyle = lipgloss.NewStyle().Foreground(styles.Emerald)

	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Rose)

	warningStyle = lipgloss.NewStyle().Foreground(styles.Amber)

	dimStyle = lipgloss.NewStyle().Foreground(styles.TextMuted)

	userStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Teal)

	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Violet)

	highlightStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Gold)
)

// =============================================================================
// HELPERS
// =============================================================================

func renderSeparator(width int) string {
	if width <= 0 {
		width = 40
	}
	return dimStyle.Render(strings.Repeat("─", width))
}

func renderLabel(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-14s", label+":")) + " " + valueStyle.Render(value)
}

func renderStatus(ok bool, msg string) string {
	if ok {
		return successStyle.Render(styles.Indicators.OK) + " " + msg
	}
	return errorStyle.Render(styles.Indicators.Error) + " " + msg
}
