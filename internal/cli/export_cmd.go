// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/dixel/internal/config"
	"github.com/jeranaias/dixel/internal/export"
)

// exportOptions builds export options from the config. dir overrides the
// configured output directory.
func exportOptions(cfg *config.Config, dir string) *export.Options {
	opts := export.DefaultOptions()
	if cfg.Export.OutputDir != "" {
		opts.OutputDir = cfg.Export.OutputDir
	}
	if dir != "" {
		opts.OutputDir = dir
	}
	return opts
}

// serverFormat maps a CLI format name to the backend's.
func serverFormat(format string) string {
	switch strings.ToLower(format) {
	case "md", "markdown":
		return export.FormatMarkdown
	default:
		return strings.ToLower(format)
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		format   string
		output   string
		server   bool
		toStdout bool
	)

	cmd := &cobra.Command{
		Use:   "export [id]",
		Short: "Export a conversation to markdown or JSON",
		Long: `Export a conversation. By default the transcript is rendered locally;
--server downloads the backend's own export instead.

Files are named dixel_<title>_<timestamp>_<id>.<ext> and written to
--output, the configured export directory, or the working directory.`,
		Args: cobra.MaximumNArgs(1),
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
			if format == "" {
				format = a.Config.Export.Format
			}
			exportOpts := exportOptions(a.Config, output)

			var (
				content []byte
				path    string
			)
			if server {
				n, ok := id.Number()
				if !ok {
					return &UsageError{Field: "conversation", Value: id.String(), Reason: "not saved on the server yet"}
				}
				client, ok := a.Gate.Client()
				if !ok {
					return errNotLoggedIn
				}
				exp, err := client.ExportConversation(cmd.Context(), n, serverFormat(format))
				if err != nil {
					return err
				}
				content = exp.Data
				if !toStdout {
					if path, err = export.SaveServerExport(exp, conv.GetTitle(), exportOpts); err != nil {
						return err
					}
				}
			} else {
				exporter, err := export.ForFormat(format, exportOpts)
				if err != nil {
					return &UsageError{Field: "format", Value: format, Reason: "expected markdown, md or json"}
				}
				if toStdout {
					if content, err = exporter.Export(conv); err != nil {
						return err
					}
				} else if path, err = export.ExportToFile(conv, exporter, exportOpts); err != nil {
					return err
				}
			}

			if toStdout {
				_, err := cmd.OutOrStdout().Write(content)
				return err
			}
			return opts.emit(cmd, map[string]string{"conversation_id": id.String(), "path": path}, func(w io.Writer) {
				fmt.Fprintln(w, renderStatus(true, "Exported to "+path))
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "markdown, md or json (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory")
	cmd.Flags().BoolVar(&server, "server", false, "download the backend's export")
	cmd.Flags().BoolVar(&toStdout, "stdout", false, "print the export instead of writing a file")
	return cmd
}
