// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/dixel/internal/app"
	"github.com/jeranaias/dixel/internal/config"
)

// Build information, set with -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	apiURL     string
	verbose    bool
	jsonOut    bool

	logFile io.Closer
}

// Execute runs the command line against os.Args and returns the exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	cmd, opts := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	executed, err := cmd.ExecuteContextC(ctx)
	opts.closeLog()
	var reported *reportedError
	if err != nil && !errors.As(err, &reported) {
		if opts.jsonOut {
			_ = newJSONErrorResponse(executed.CommandPath(), err).Write(out)
		} else {
			DisplayError(errOut, err)
		}
	}
	return ExitCode(err)
}

// NewRootCmd builds the dixel command tree.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRootCmd()
	return cmd
}

func newRootCmd() (*cobra.Command, *rootOptions) {
	opts := &rootOptions{}
	var plain bool

	cmd := &cobra.Command{
		Use:   "dixel",
		Short: "Chat with Dixel Bot, the AI photography assistant",
		Long: `dixel is a terminal client for Dixel Bot.

Without a subcommand it opens the chat screen. Answers stream in as they
are generated and are replaced by the saved version once complete.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts.setupLogging(cmd)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts, plain)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Field: "flag", Reason: err.Error()}
	})

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.dixel/config.toml)")
	flags.StringVar(&opts.apiURL, "api-url", "", "backend URL, overrides config and DIXEL_API_URL")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log API traffic to stderr")
	flags.BoolVar(&opts.jsonOut, "json", false, "print machine-readable JSON")
	cmd.Flags().BoolVar(&plain, "plain", false, "use the line-based REPL instead of the chat screen")

	cmd.AddCommand(
		newChatCmd(opts),
		newLoginCmd(opts),
		newSignupCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newConversationsCmd(opts),
		newAskCmd(opts),
		newExportCmd(opts),
		newSearchCmd(opts),
		newStatsCmd(opts),
		newHealthCmd(opts),
		newConfigCmd(opts),
	)
	return cmd, opts
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// setupLogging sends the log to stderr with --verbose and to
// ~/.dixel/dixel.log otherwise, so it never mixes with command output.
func (o *rootOptions) setupLogging(cmd *cobra.Command) {
	if o.verbose {
		log.SetOutput(cmd.ErrOrStderr())
		return
	}
	path, err := config.LogPath()
	if err == nil {
		err = os.MkdirAll(filepath.Dir(path), 0700)
	}
	if err == nil {
		var f *os.File
		if f, err = tea.LogToFile(path, "dixel"); err == nil {
			o.logFile = f
			return
		}
	}
	log.SetOutput(io.Discard)
}

func (o *rootOptions) closeLog() {
	if o.logFile != nil {
		o.logFile.Close()
		o.logFile = nil
	}
	log.SetOutput(os.Stderr)
	log.SetPrefix("")
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromPath(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if o.apiURL != "" {
		cfg.API.URL = config.NormalizeAPIURL(o.apiURL)
	}
	return cfg, nil
}

// openApp loads the configuration and initialises an App. Callers must
// defer closeApp.
func (o *rootOptions) openApp(cmd *cobra.Command, extra ...app.Option) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	appOpts := append([]app.Option{app.WithVerbose(o.verbose)}, extra...)
	a := app.New(cfg, appOpts...)
	if err := a.Init(cmd.Context()); err != nil {
		return nil, err
	}
	return a, nil
}

func closeApp(a *app.App) {
	if err := a.Teardown(); err != nil {
		log.Printf("[cli] teardown: %v", err)
	}
}

func requireSession(a *app.App) error {
	if !a.Gate.Authenticated() {
		return errNotLoggedIn
	}
	return nil
}

// emit prints data as a JSON envelope with --json, or calls human.
func (o *rootOptions) emit(cmd *cobra.Command, data any, human func(w io.Writer)) error {
	if o.jsonOut {
		return newJSONResponse(cmd.CommandPath(), data).Write(cmd.OutOrStdout())
	}
	human(cmd.OutOrStdout())
	return nil
}
