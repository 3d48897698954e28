// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/dixel/internal/model"
)

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.resetRenderer()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case storeChangedMsg:
		redraw, cmd := m.frames.Change()
		if redraw {
			m.refresh()
		}
		return m, tea.Batch(cmd, waitForChange(m.changes))

	case frameMsg:
		if m.frames.Frame() {
			m.refresh()
		}
		return m, nil

	case submitDoneMsg:
		switch {
		case msg.err == nil:
			m.setStatus("", false)
		case errors.Is(msg.err, context.Canceled):
			m.setStatus("Réponse annulée", false)
		default:
			m.setStatus(msg.err.Error(), true)
		}
		m.refresh()
		return m, nil

	case authDoneMsg:
		if m.login == nil {
			return m, nil
		}
		m.login.busy = false
		if msg.err != nil {
			m.login.err = msg.err.Error()
			return m, nil
		}
		m.login = nil
		m.input.Focus()
		m.setStatus("Connecté en tant que "+msg.state.UserName, false)
		m.refresh()
		return m, nil

	case loggedOutMsg:
		m.login = newLoginForm()
		m.input.Reset()
		m.setStatus("Déconnecté", false)
		m.refresh()
		return m, nil

	case opDoneMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error(), true)
		} else if msg.status != "" {
			m.setStatus(msg.status, false)
		}
		m.refresh()
		return m, nil

	case healthMsg:
		res := msg.result
		m.health = &res
		if !res.Healthy {
			m.setStatus(res.Message, true)
		}
		return m, nil

	case configReloadedMsg:
		ui := msg.cfg.UI
		m.applyTheme(ui.Theme, ui.RenderMarkdown)
		if msg.cfg.API.URL != m.app.Config.API.URL {
			m.setStatus("Nouvelle URL du backend : redémarrez dixel pour l'utiliser", false)
		} else {
			m.setStatus("Configuration rechargée", false)
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.busy() {
			m.refresh()
		}
		return m, cmd
	}

	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.login != nil {
		if msg.String() == "ctrl+c" || msg.String() == "esc" {
			return m, tea.Quit
		}
		submit, cmd := m.login.Update(msg)
		if !submit {
			return m, cmd
		}
		m.login.busy = true
		name, email, password := m.login.Values()
		if m.login.signup {
			return m, signupCmd(m.ctx, m.app, name, email, password)
		}
		return m, loginCmd(m.ctx, m.app, email, password)
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.busy() {
			m.app.Chat.Cancel()
			return m, nil
		}
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.input.Reset()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.New):
		return m, newConversationCmd(m.ctx, m.app)

	case key.Matches(msg, m.keys.PrevConv), key.Matches(msg, m.keys.NextConv):
		delta := 1
		if key.Matches(msg, m.keys.PrevConv) {
			delta = -1
		}
		id, ok := m.neighbour(delta)
		if !ok {
			return m, nil
		}
		return m, selectCmd(m.ctx, m.app, id)

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		if strings.HasPrefix(text, "/") {
			return m.slashCommand(text)
		}
		m.setStatus("", false)
		m.viewport.GotoBottom()
		return m, submitCmd(m.ctx, m.app, text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

func (m Model) slashCommand(line string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(line)
	name := strings.ToLower(fields[0])
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	switch name {
	case "/quit", "/exit", "/q":
		return m, tea.Quit
	case "/help", "/?":
		m.showHelp = true
		return m, nil
	case "/new":
		return m, newConversationCmd(m.ctx, m.app)
	case "/delete":
		id := m.app.Store.SelectedID()
		if id.IsZero() {
			return m, nil
		}
		return m, deleteCmd(m.ctx, m.app, id)
	case "/switch":
		id, err := model.ParseConversationID(arg)
		if err != nil {
			m.setStatus(fmt.Sprintf("Identifiant invalide : %q", arg), true)
			return m, nil
		}
		if _, ok := m.app.Store.Get(id); !ok {
			m.setStatus("Conversation inconnue : "+arg, true)
			return m, nil
		}
		return m, selectCmd(m.ctx, m.app, id)
	case "/export":
		conv, ok := m.app.Store.Selected()
		if !ok {
			return m, nil
		}
		return m, exportCmd(m.app, conv, arg)
	case "/health":
		m.setStatus("Vérification du backend…", false)
		return m, healthCmd(m.ctx, m.app)
	case "/logout":
		return m, logoutCmd(m.ctx, m.app)
	}
	m.setStatus("Commande inconnue : "+name+" (/help)", true)
	return m, nil
}
