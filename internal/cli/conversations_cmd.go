// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/dixel/internal/app"
	"github.com/jeranaias/dixel/internal/model"
	"github.com/jeranaias/dixel/internal/util"
)

// conversationRow is the JSON shape of a listed conversation.
type conversationRow struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Messages  int       `json:"messages"`
	Selected  bool      `json:"selected"`
}

func rowFor(conv model.Conversation, selected model.ConversationID) conversationRow {
	return conversationRow{
		ID:        conv.ID.String(),
		Title:     conv.GetTitle(),
		CreatedAt: conv.CreatedAt,
		Messages:  len(conv.Messages),
		Selected:  conv.ID.Equal(selected),
	}
}

// resolveConversation parses arg and checks the store holds it. An empty
// arg means the selected conversation.
func resolveConversation(a *app.App, arg string) (model.ConversationID, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		id := a.Store.SelectedID()
		if id.IsZero() {
			return id, &NotFoundError{Resource: "conversation", ID: "(none selected)"}
		}
		return id, nil
	}
	id, err := model.ParseConversationID(arg)
	if err != nil {
		return id, &UsageError{Field: "conversation id", Value: arg, Reason: "expected a number", Example: "dixel conversations show 12"}
	}
	if _, ok := a.Store.Get(id); !ok {
		return id, &NotFoundError{Resource: "conversation", ID: arg}
	}
	return id, nil
}

// openSession opens an App with conversations loaded and checks the
// session.
func openSession(cmd *cobra.Command, opts *rootOptions) (*app.App, error) {
	a, err := opts.openApp(cmd)
	if err != nil {
		return nil, err
	}
	if err := requireSession(a); err != nil {
		closeApp(a)
		return nil, err
	}
	return a, nil
}

func newConversationsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv", "convs"},
		Short:   "List and manage conversations",
	}
	cmd.AddCommand(
		newConversationsListCmd(opts),
		newConversationsNewCmd(opts),
		newConversationsDeleteCmd(opts),
		newConversationsShowCmd(opts),
	)
	return cmd
}

func newConversationsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List conversations, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			selected := a.Store.SelectedID()
			convs := a.Store.Snapshot()
			rows := make([]conversationRow, 0, len(convs))
			for _, c := range convs {
				rows = append(rows, rowFor(c, selected))
			}

			return opts.emit(cmd, rows, func(w io.Writer) {
				width := terminalWidth(w)
				titleWidth := max(width-34, 16)
				for _, row := range rows {
					marker := "  "
					if row.Selected {
						marker = highlightStyle.Render("* ")
					}
					fmt.Fprintf(w, "%s%s  %s  %s  %s\n",
						marker,
						util.PadRight(row.ID, 6),
						util.PadRight(util.TruncateWidth(row.Title, titleWidth), titleWidth),
						dimStyle.Render(row.CreatedAt.Local().Format("2006-01-02")),
						dimStyle.Render(fmt.Sprintf("%d msg", row.Messages)),
					)
				}
			})
		},
	}
}

func newConversationsNewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create an empty conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			conv, err := a.Chat.NewConversation(cmd.Context())
			if err != nil {
				return err
			}
			row := rowFor(conv, conv.ID)
			return opts.emit(cmd, row, func(w io.Writer) {
				fmt.Fprintln(w, renderStatus(true, fmt.Sprintf("Created conversation %s", highlightStyle.Render(row.ID))))
			})
		},
	}
}

func newConversationsDeleteCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a conversation and its messages",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			id, err := resolveConversation(a, args[0])
			if err != nil {
				return err
			}
			conv, _ := a.Store.Get(id)

			if !yes {
				if !isTerminal(cmd.InOrStdin()) {
					return &UsageError{Field: "confirmation", Reason: "pass --yes when not running interactively"}
				}
				p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
				if !p.Confirm(fmt.Sprintf("Delete %q (%d messages)?", conv.GetTitle(), len(conv.Messages))) {
					fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render("Cancelled."))
					return nil
				}
			}

			if err := a.Chat.Delete(cmd.Context(), id); err != nil {
				return err
			}
			return opts.emit(cmd, map[string]string{"deleted": id.String()}, func(w io.Writer) {
				fmt.Fprintln(w, renderStatus(true, "Deleted conversation "+id.String()))
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newConversationsShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Print the messages of a conversation",
		Long:  "Print the messages of a conversation. Without an id the most recent conversation is shown.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			id, err := resolveConversation(a, arg)
			if err != nil {
				return err
			}
			conv, _ := a.Store.Get(id)
			if n, ok := id.Number(); ok {
				client, ok := a.Gate.Client()
				if !ok {
					return errNotLoggedIn
				}
				rec, err := client.GetConversation(cmd.Context(), n)
				if err != nil {
					return err
				}
				conv.Title = rec.Title
				conv.CreatedAt = rec.CreatedAt.Time
			}

			return opts.emit(cmd, conv, func(w io.Writer) {
				newMessageRenderer(w, a.Config).WriteConversation(w, conv)
			})
		},
	}
}
