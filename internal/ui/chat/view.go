// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/dixel/internal/model"
	"github.com/jeranaias/dixel/internal/ui/styles"
	"github.com/jeranaias/dixel/internal/util"
)

const (
	sidebarWidth    = 30
	minSidebarWidth = 80 // below this terminal width the sidebar is hidden
	headerHeight    = 2
	inputHeight     = 3
	statusHeight    = 1
	streamCursor    = "▍"
)

// =============================================================================
// LAYOUT
// =============================================================================

func (m *Model) sidebarVisible() bool {
	return m.width >= minSidebarWidth
}

// contentWidth is the width of the message pane.
func (m *Model) contentWidth() int {
	w := m.width
	if m.sidebarVisible() {
		w -= sidebarWidth
	}
	return max(w, 10)
}

func (m *Model) layout() {
	h := max(m.height-headerHeight-inputHeight-statusHeight, 3)
	if !m.ready {
		m.viewport = viewport.New(m.contentWidth(), h)
		m.ready = true
	} else {
		m.viewport.Width = m.contentWidth()
		m.viewport.Height = h
	}
	m.input.Width = max(m.width-6, 10)
}

// refresh re-renders the selected conversation into the viewport. The view
// stays pinned to the bottom unless the user scrolled up.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	follow := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderConversation())
	if follow {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// MESSAGES
// =============================================================================

func (m *Model) renderConversation() string {
	conv, ok := m.app.Store.Selected()
	if !ok || len(conv.Messages) == 0 {
		return m.theme.Hint.Render("Aucun message. Pose ta première question !")
	}
	thinking := conv.Thinking()
	last := len(conv.Messages) - 1
	parts := make([]string, 0, len(conv.Messages))
	for i, msg := range conv.Messages {
		parts = append(parts, m.renderMessage(msg, thinking && i == last))
	}
	return strings.Join(parts, "\n\n")
}

// renderMessage renders one message. thinking draws the spinner in place
// of the body.
func (m *Model) renderMessage(msg model.Message, thinking bool) string {
	width := m.contentWidth() - 2

	label := m.theme.UserLabel
	if msg.Role == model.RoleAssistant {
		label = m.theme.AssistantLabel
	}
	header := label.Render(msg.Role.DisplayName())
	if !msg.Timestamp.IsZero() {
		header += " " + m.theme.Timestamp.Render(msg.Timestamp.Local().Format("15:04"))
	}

	var body string
	switch {
	case msg.Status == model.StatusError:
		body = m.theme.ErrorMessage.Width(width).Render(msg.Content)
	case thinking:
		body = m.spinner.View() + " " + m.theme.Thinking.Render(msg.Content)
	case msg.IsStreaming():
		body = m.theme.MessageBody.Width(width).Render(msg.Content + streamCursor)
	case msg.Role == model.RoleAssistant:
		body = m.renderMarkdown(msg, width)
	default:
		body = m.theme.MessageBody.Width(width).Render(msg.Content)
	}
	if msg.Image != "" {
		body = m.theme.ImageTag.Render("[image jointe]") + "\n" + body
	}
	return header + "\n" + body
}

// renderMarkdown renders a settled assistant message, caching by id and
// content length.
func (m *Model) renderMarkdown(msg model.Message, width int) string {
	if m.md == nil {
		return m.theme.MessageBody.Width(width).Render(msg.Content)
	}
	cacheKey := msg.ID + ":" + strconv.Itoa(len(msg.Content))
	if out, ok := m.rendered[cacheKey]; ok {
		return out
	}
	out, err := m.md.Render(msg.Content)
	if err != nil {
		return m.theme.MessageBody.Width(width).Render(msg.Content)
	}
	out = strings.Trim(out, "\n")
	m.rendered[cacheKey] = out
	return out
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return "Chargement…"
	}

	header := m.renderHeader()
	bodyHeight := max(m.height-headerHeight-inputHeight-statusHeight, 3)

	var body string
	switch {
	case m.login != nil:
		body = m.login.View(m.theme, m.width, bodyHeight+inputHeight)
		return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderStatusBar())
	case m.showHelp:
		body = m.renderHelp(bodyHeight)
	default:
		body = m.viewport.View()
	}
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(bodyHeight), body)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		m.theme.Input.Width(max(m.width-2, 10)).Render(m.input.View()),
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	left := m.theme.HeaderTitle.Render("Dixel Bot")
	if conv, ok := m.app.Store.Selected(); ok {
		left += m.theme.Hint.Render(" · " + conv.DisplayTitle(40))
	}

	var right string
	if st := m.app.Gate.State(); st.Authenticated {
		right = m.theme.HeaderUser.Render(st.UserName)
	}
	if m.health != nil {
		if m.health.Healthy {
			right += " " + m.theme.StatusOK.Render("●")
		} else {
			right += " " + m.theme.StatusErr.Render("●")
		}
	}

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return m.theme.Header.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderSidebar(height int) string {
	inner := sidebarWidth - 3
	lines := []string{m.theme.SidebarTitle.Render("Conversations")}
	selected := m.app.Store.SelectedID()
	for _, c := range m.app.Store.Snapshot() {
		title := util.TruncateWidth(c.GetTitle(), inner-2)
		if c.ID.Equal(selected) {
			lines = append(lines, m.theme.SidebarSelected.Render("› "+title))
		} else {
			lines = append(lines, m.theme.SidebarItem.Render("  "+title))
		}
	}
	return m.theme.Sidebar.Width(sidebarWidth - 1).Height(height).Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatusBar() string {
	var left string
	switch {
	case m.busy():
		left = m.spinner.View() + " " + m.app.Chat.State().String()
	case m.status != "" && m.statusErr:
		left = m.theme.StatusErr.Render(styles.Indicators.Error + " " + m.status)
	case m.status != "":
		left = m.status
	}

	var hints []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		hints = append(hints, h.Key+" "+h.Desc)
	}
	right := strings.Join(hints, " · ")

	line := left
	if room := m.width - lipgloss.Width(left) - 4; room > 10 {
		line += strings.Repeat(" ", max(room-lipgloss.Width(right), 1)) + util.TruncateWidth(right, room)
	}
	return m.theme.StatusBar.Width(m.width).Render(util.TruncateWidth(line, max(m.width-2, 1)))
}

func (m Model) renderHelp(height int) string {
	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("Raccourcis"))
	b.WriteString("\n\n")
	for _, group := range m.keys.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			fmt.Fprintf(&b, "%s %s\n", m.theme.FieldLabel.Render(h.Key), h.Desc)
		}
		b.WriteString("\n")
	}
	b.WriteString(m.theme.HeaderTitle.Render("Commandes"))
	b.WriteString("\n\n")
	for _, c := range [][2]string{
		{"/new", "nouvelle conversation"},
		{"/switch <id>", "changer de conversation"},
		{"/delete", "supprimer la conversation"},
		{"/export [md|json]", "exporter la conversation"},
		{"/health", "vérifier le backend"},
		{"/logout", "se déconnecter"},
		{"/quit", "quitter"},
	} {
		fmt.Fprintf(&b, "%s %s\n", m.theme.FieldLabel.Width(20).Render(c[0]), c[1])
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Hint.Render("Appuyez sur une touche pour fermer"))
	return m.theme.Overlay.Width(m.contentWidth() - 4).Height(height - 2).Render(b.String())
}
