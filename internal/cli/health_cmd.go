// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/dixel/internal/api"
	"github.com/jeranaias/dixel/internal/health"
)

// healthRow is the JSON shape of a probe result.
type healthRow struct {
	Healthy     bool         `json:"healthy"`
	Message     string       `json:"message"`
	URL         string       `json:"url"`
	LatencyMS   int64        `json:"latency_ms"`
	Status      string       `json:"status,omitempty"`
	Suggestions []string     `json:"suggestions,omitempty"`
	Detailed    api.Document `json:"detailed,omitempty"`
}

func rowForHealth(res health.Result) healthRow {
	return healthRow{
		Healthy:     res.Healthy,
		Message:     res.Message,
		URL:         res.URL,
		LatencyMS:   res.Latency.Milliseconds(),
		Status:      res.Status,
		Suggestions: res.Suggestions(),
	}
}

// renderHealth formats a result for humans.
func renderHealth(res health.Result) string {
	var b strings.Builder
	line := fmt.Sprintf("%s %s", res.Message, dimStyle.Render(fmt.Sprintf("(%s, %dms)", res.URL, res.Latency.Milliseconds())))
	b.WriteString(renderStatus(res.Healthy, line))
	for _, s := range res.Suggestions() {
		b.WriteString("\n  " + warningStyle.Render("•") + " " + s)
	}
	return b.String()
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	var (
		watch    bool
		detailed bool
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		Long: `Probe the backend's /health endpoint. No session is needed.

With --watch the probe repeats every --interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if interval == 0 {
				interval = cfg.WatchInterval()
			}
			if timeout == 0 {
				timeout = cfg.HealthTimeout()
			}
			if interval < time.Second {
				return &UsageError{Field: "interval", Value: interval.String(), Reason: "must be at least 1s"}
			}
			client := api.NewClient(cfg.API.URL).WithVerbose(opts.verbose)

			if watch {
				return health.Watch(cmd.Context(), client, interval, timeout, func(res health.Result) {
					if opts.jsonOut {
						_ = newJSONResponse(cmd.CommandPath(), rowForHealth(res)).Write(cmd.OutOrStdout())
						return
					}
					stamp := dimStyle.Render(time.Now().Format("15:04:05"))
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", stamp, renderHealth(res))
				})
			}

			res := health.Probe(cmd.Context(), client, timeout)
			row := rowForHealth(res)
			if detailed && res.Healthy {
				doc, err := client.HealthDetailed(cmd.Context())
				if err != nil {
					return err
				}
				row.Detailed = doc
			}
			if err := opts.emit(cmd, row, func(w io.Writer) {
				fmt.Fprintln(w, renderHealth(res))
				for k, v := range row.Detailed {
					fmt.Fprintln(w, "  "+renderLabel(k, fmt.Sprint(v)))
				}
			}); err != nil {
				return err
			}
			if !res.Healthy {
				return &reportedError{err: errUnhealthy}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep probing until interrupted")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "also fetch /health/detailed")
	cmd.Flags().DurationVar(&interval, "interval", 0, "delay between probes in watch mode (default from config)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "probe timeout (default from config)")
	return cmd
}
