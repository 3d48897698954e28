// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/dixel/internal/api"
	"github.com/jeranaias/dixel/internal/util"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		limit  int
		titles bool
	)

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search your messages or conversation titles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if limit < 0 {
				return &UsageError{Field: "limit", Value: fmt.Sprint(limit), Reason: "must not be negative"}
			}

			a, err := opts.openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a)
			client, ok := a.Gate.Client()
			if !ok {
				return errNotLoggedIn
			}

			var hits []api.Document
			if titles {
				hits, err = client.SearchConversations(cmd.Context(), query, limit)
			} else {
				hits, err = client.SearchMessages(cmd.Context(), query, limit)
			}
			if err != nil {
				return err
			}

			return opts.emit(cmd, hits, func(w io.Writer) {
				if len(hits) == 0 {
					fmt.Fprintln(w, dimStyle.Render("No results for "+query))
					return
				}
				width := terminalWidth(w) - 10
				for _, hit := range hits {
					fmt.Fprintln(w, formatHit(hit, width))
				}
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of results")
	cmd.Flags().BoolVar(&titles, "titles", false, "search conversation titles instead of messages")
	return cmd
}

// formatHit prints a search hit as "<conversation>  <text>".
func formatHit(hit api.Document, width int) string {
	conv := hit["conversation_id"]
	if conv == nil {
		conv = hit["id"]
	}
	text, _ := hit["content"].(string)
	if text == "" {
		text, _ = hit["title"].(string)
	}
	return fmt.Sprintf("%s  %s",
		highlightStyle.Render(util.PadRight(fmt.Sprint(conv), 6)),
		util.TruncateWidth(util.SingleLine(text), width))
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [id]",
		Short: "Show statistics for a conversation",
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
			n, ok := id.Number()
			if !ok {
				return &UsageError{Field: "conversation", Value: id.String(), Reason: "not saved on the server yet"}
			}
			client, _ := a.Gate.Client()
			stats, err := client.Statistics(cmd.Context(), n)
			if err != nil {
				return err
			}

			return opts.emit(cmd, stats, func(w io.Writer) {
				keys := make([]string, 0, len(stats))
				for k := range stats {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintln(w, renderLabel(k, fmt.Sprint(stats[k])))
				}
			})
		},
	}
}
