// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// isTerminal reports whether v is an *os.File attached to a terminal.
// Buffers used by tests are never terminals.
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// =============================================================================
// TERMINAL WIDTH
// =============================================================================

const (
	defaultTerminalWidth = 80
	minTerminalWidth     = 40
	maxRenderWidth       = 120
)

// terminalWidth returns the width of w, or the default when w is not a
// terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return defaultTerminalWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultTerminalWidth
	}
	return max(width, minTerminalWidth)
}

// =============================================================================
// COLOR SUPPORT
// =============================================================================

// colorsEnabled honours NO_COLOR (https://no-color.org) and FORCE_COLOR,
// then falls back to TTY detection of stdout.
func colorsEnabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	if v := os.Getenv("FORCE_COLOR"); v != "" && v != "0" {
		return true
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal(os.Stdout)
}

// colorProfile returns the termenv profile lipgloss should render with.
func colorProfile() termenv.Profile {
	if !colorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}
