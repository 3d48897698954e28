// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/dixel/internal/config"
	"github.com/jeranaias/dixel/internal/model"
	"github.com/jeranaias/dixel/internal/ui/styles"
)

// messageRenderer prints messages. Assistant answers go through glamour
// when w is a color terminal and markdown rendering is enabled.
type messageRenderer struct {
	md    *glamour.TermRenderer
	width int
}

func newMessageRenderer(w io.Writer, cfg *config.Config) *messageRenderer {
	r := &messageRenderer{width: min(terminalWidth(w), maxRenderWidth)}
	if !cfg.UI.RenderMarkdown || !isTerminal(w) || !colorsEnabled() {
		return r
	}
	theme := styles.NewTheme(cfg.UI.Theme)
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme.GlamourStyle()),
		glamour.WithWordWrap(r.width-4),
	)
	if err != nil {
		log.Printf("[cli] markdown rendering disabled: %v", err)
		return r
	}
	r.md = md
	return r
}

func (r *messageRenderer) header(m model.Message) string {
	style := userStyle
	if m.Role == model.RoleAssistant {
		style = assistantStyle
	}
	h := style.Render(m.Role.DisplayName())
	if !m.Timestamp.IsZero() {
		h += " " + dimStyle.Render(m.Timestamp.Local().Format("2006-01-02 15:04"))
	}
	return h
}

func (r *messageRenderer) body(m model.Message, thinking bool) string {
	switch {
	case m.Status == model.StatusError:
		return errorStyle.Render(m.Content)
	case thinking:
		return dimStyle.Render(model.ThinkingMarker)
	}
	if r.md != nil && m.Role == model.RoleAssistant {
		out, err := r.md.Render(m.Content)
		if err == nil {
			return strings.TrimRight(out, "\n")
		}
		log.Printf("[cli] render message %s: %v", m.ID, err)
	}
	return m.Content
}

// write prints one message followed by a blank line.
func (r *messageRenderer) write(w io.Writer, m model.Message, thinking bool) {
	fmt.Fprintln(w, r.header(m))
	if m.Image != "" {
		fmt.Fprintln(w, dimStyle.Render("[image attached]"))
	}
	if body := r.body(m, thinking); body != "" {
		fmt.Fprintln(w, body)
	}
	fmt.Fprintln(w)
}

// WriteConversation prints a title line and every message of conv.
func (r *messageRenderer) WriteConversation(w io.Writer, conv model.Conversation) {
	fmt.Fprintln(w, titleStyle.Render(conv.DisplayTitle(r.width)))
	fmt.Fprintln(w, renderSeparator(min(r.width, 60)))
	if len(conv.Messages) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No messages yet."))
		return
	}
	thinking := conv.Thinking()
	last := len(conv.Messages) - 1
	for i, m := range conv.Messages {
		r.write(w, m, thinking && i == last)
	}
}
