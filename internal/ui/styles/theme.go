// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds the styles used by the chat view and the CLI.
type Theme struct {
	Mode    string
	IsDark  bool
	Profile termenv.Profile

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderUser  lipgloss.Style

	// Conversation list
	Sidebar         lipgloss.Style
	SidebarTitle    lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style

	// Messages
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	MessageBody    lipgloss.Style
	ErrorMessage   lipgloss.Style
	Thinking       lipgloss.Style
	Timestamp      lipgloss.Style
	ImageTag       lipgloss.Style

	// Input and status
	Input      lipgloss.Style
	Prompt     lipgloss.Style
	StatusBar  lipgloss.Style
	StatusErr  lipgloss.Style
	StatusOK   lipgloss.Style
	Hint       lipgloss.Style
	Overlay    lipgloss.Style
	FieldLabel lipgloss.Style
}

// NewTheme resolves mode ("auto", "dark" or "light") and builds the
// styles. Unknown modes behave like "auto".
func NewTheme(mode string) *Theme {
	mode = strings.ToLower(strings.TrimSpace(mode))
	var isDark bool
	switch mode {
	case ModeDark:
		isDark = true
	case ModeLight:
		isDark = false
	default:
		mode = ModeAuto
		isDark = termenv.HasDarkBackground()
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		Mode:    mode,
		IsDark:  isDark,
		Profile: termenv.ColorProfile(),
	}
	t.build()
	return t
}

// GlamourStyle names the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) build() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Gold)
	t.HeaderUser = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.SidebarTitle = lipgloss.NewStyle().Bold(true).Foreground(TextSecondary).MarginBottom(1)
	t.SidebarItem = lipgloss.NewStyle().Foreground(TextSecondary)
	t.SidebarSelected = lipgloss.NewStyle().Bold(true).Foreground(Gold)

	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Teal)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Violet)
	t.MessageBody = lipgloss.NewStyle().Foreground(TextPrimary)
	t.ErrorMessage = lipgloss.NewStyle().
		Foreground(ErrorFg).
		Background(ErrorBg).
		Padding(0, 1)
	t.Thinking = lipgloss.NewStyle().Foreground(Amber).Italic(true)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.ImageTag = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	t.Input = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Gold).
		Padding(0, 1)
	t.Prompt = lipgloss.NewStyle().Bold(true).Foreground(Gold)
	t.StatusBar = lipgloss.NewStyle().Foreground(TextMuted).Padding(0, 1)
	t.StatusErr = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.StatusOK = lipgloss.NewStyle().Foreground(Emerald)
	t.Hint = lipgloss.NewStyle().Foreground(TextMuted)
	t.Overlay = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Violet).
		Padding(1, 2)
	t.FieldLabel = lipgloss.NewStyle().Foreground(TextSecondary).Width(12)
}
