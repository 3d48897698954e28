// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/dixel/internal/app"
	"github.com/jeranaias/dixel/internal/export"
	"github.com/jeranaias/dixel/internal/model"
)

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// waitForChange blocks until the store signals. It returns nil once the
// subscription is cancelled.
func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return storeChangedMsg{}
	}
}

// submitCmd sends question through the reconciler. A submission started
// while another runs cancels the earlier one.
func submitCmd(ctx context.Context, a *app.App, question string) tea.Cmd {
	return func() tea.Msg {
		return submitDoneMsg{err: a.Chat.Submit(ctx, question, "")}
	}
}

func loginCmd(ctx context.Context, a *app.App, email, password string) tea.Cmd {
	return func() tea.Msg {
		st, err := a.Login(ctx, email, password)
		return authDoneMsg{state: st, err: err}
	}
}

func signupCmd(ctx context.Context, a *app.App, name, email, password string) tea.Cmd {
	return func() tea.Msg {
		st, err := a.Signup(ctx, name, email, password)
		return authDoneMsg{state: st, err: err}
	}
}

func logoutCmd(ctx context.Context, a *app.App) tea.Cmd {
	return func() tea.Msg {
		a.Logout(ctx)
		return loggedOutMsg{}
	}
}

func healthCmd(ctx context.Context, a *app.App) tea.Cmd {
	return func() tea.Msg {
		return healthMsg{result: a.Health(ctx)}
	}
}

func newConversationCmd(ctx context.Context, a *app.App) tea.Cmd {
	return func() tea.Msg {
		conv, err := a.Chat.NewConversation(ctx)
		if err != nil {
			return opDoneMsg{err: fmt.Errorf("new conversation: %w", err)}
		}
		return opDoneMsg{status: "Started " + conv.GetTitle()}
	}
}

func selectCmd(ctx context.Context, a *app.App, id model.ConversationID) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{err: a.Chat.Select(ctx, id)}
	}
}

func deleteCmd(ctx context.Context, a *app.App, id model.ConversationID) tea.Cmd {
	return func() tea.Msg {
		if err := a.Chat.Delete(ctx, id); err != nil {
			return opDoneMsg{err: fmt.Errorf("delete conversation: %w", err)}
		}
		return opDoneMsg{status: "Conversation deleted"}
	}
}

func exportCmd(a *app.App, conv model.Conversation, format string) tea.Cmd {
	return func() tea.Msg {
		opts := export.DefaultOptions()
		if dir := a.Config.Export.OutputDir; dir != "" {
			opts.OutputDir = dir
		}
		if format == "" {
			format = a.Config.Export.Format
		}
		exporter, err := export.ForFormat(format, opts)
		if err != nil {
			return opDoneMsg{err: err}
		}
		path, err := export.ExportToFile(conv, exporter, opts)
		if err != nil {
			return opDoneMsg{err: err}
		}
		return opDoneMsg{status: "Exported to " + path}
	}
}
