// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/dixel/internal/app"
	"github.com/jeranaias/dixel/internal/health"
	"github.com/jeranaias/dixel/internal/model"
	"github.com/jeranaias/dixel/internal/ui/styles"
)

// Options configures the chat screen.
type Options struct {
	// ConfigPath is watched for theme changes. Empty disables the watch.
	ConfigPath string
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	app  *app.App
	ctx  context.Context
	opts Options

	// Styling
	theme    *styles.Theme
	markdown bool
	md       *glamour.TermRenderer
	rendered map[string]string

	keys KeyMap

	// Dimensions
	width  int
	height int
	ready  bool

	// Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	login    *loginForm

	// Store subscription
	changes     <-chan struct{}
	unsubscribe func()
	frames      *frameLimiter

	// Status
	status    string
	statusErr bool
	showHelp  bool
	health    *health.Result
}

// New builds the model for an initialised app. Call Close when done.
func New(ctx context.Context, a *app.App, opts Options) Model {
	input := textinput.New()
	input.Placeholder = "Pose ta question sur la photo… (/help pour les commandes)"
	input.CharLimit = 4000
	input.Prompt = "› "
	input.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	changes, unsubscribe := a.Store.Subscribe()

	m := Model{
		app:         a,
		ctx:         ctx,
		opts:        opts,
		theme:       styles.NewTheme(a.Config.UI.Theme),
		markdown:    a.Config.UI.RenderMarkdown,
		rendered:    make(map[string]string),
		keys:        DefaultKeyMap(),
		input:       input,
		spinner:     sp,
		changes:     changes,
		unsubscribe: unsubscribe,
		frames:      newFrameLimiter(defaultMaxFPS),
	}
	m.input.PromptStyle = m.theme.Prompt
	m.spinner.Style = m.theme.Thinking
	if !a.Gate.Authenticated() {
		m.login = newLoginForm()
	}
	return m
}

// Close stops following the store.
func (m Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init starts the cursor, the spinner, the store watch and a health probe.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		waitForChange(m.changes),
		healthCmd(m.ctx, m.app),
	)
}

// =============================================================================
// HELPERS
// =============================================================================

func (m *Model) setStatus(msg string, isErr bool) {
	m.status = msg
	m.statusErr = isErr
}

func (m *Model) busy() bool {
	return m.app.Chat.State().Busy()
}

// neighbour returns the conversation delta positions away from the
// selected one, wrapping around.
func (m *Model) neighbour(delta int) (model.ConversationID, bool) {
	convs := m.app.Store.Snapshot()
	if len(convs) < 2 {
		return model.ConversationID{}, false
	}
	selected := m.app.Store.SelectedID()
	pos := 0
	for i, c := range convs {
		if c.ID.Equal(selected) {
			pos = i
			break
		}
	}
	pos = (pos + delta + len(convs)) % len(convs)
	return convs[pos].ID, true
}

// applyTheme rebuilds the styles and drops cached markdown.
func (m *Model) applyTheme(mode string, markdown bool) {
	m.theme = styles.NewTheme(mode)
	m.markdown = markdown
	m.input.PromptStyle = m.theme.Prompt
	m.spinner.Style = m.theme.Thinking
	m.resetRenderer()
}

func (m *Model) resetRenderer() {
	m.md = nil
	m.rendered = make(map[string]string)
	if !m.markdown || m.width == 0 {
		return
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.theme.GlamourStyle()),
		glamour.WithWordWrap(max(m.contentWidth()-4, 20)),
	)
	if err != nil {
		log.Printf("[ui] markdown rendering disabled: %v", err)
		return
	}
	m.md = md
}
