// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/dixel/internal/app"
	"github.com/jeranaias/dixel/internal/config"
	"github.com/jeranaias/dixel/internal/export"
	"github.com/jeranaias/dixel/internal/model"
	chatui "github.com/jeranaias/dixel/internal/ui/chat"
)

const replPrompt = "dixel> "

func newChatCmd(opts *rootOptions) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd, opts, plain)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "use the line-based REPL instead of the chat screen")
	return cmd
}

// runChat opens the chat screen on a terminal and the REPL otherwise.
func runChat(cmd *cobra.Command, opts *rootOptions, plain bool) error {
	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if !plain && !opts.jsonOut && isTerminal(cmd.InOrStdin()) && isTerminal(cmd.OutOrStdout()) {
		cfgPath := opts.configPath
		if cfgPath == "" {
			if cfgPath, err = config.ConfigPath(); err != nil {
				cfgPath = ""
			}
		}
		return chatui.Run(cmd.Context(), a, chatui.Options{ConfigPath: cfgPath})
	}

	r := newREPL(cmd, a)
	defer r.in.Close()
	return r.run()
}

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader is the REPL's input source.
type lineReader interface {
	Prompt(prompt string) (string, error)
	Password(prompt string) (string, error)
	Close() error
}

// linerReader edits lines with history on a terminal.
type linerReader struct {
	state       *liner.State
	historyPath string
}

func newLinerReader(historyPath string) *linerReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetMultiLineMode(true)

	if f, err := os.Open(historyPath); err == nil {
		if _, err := state.ReadHistory(f); err != nil {
			log.Printf("[cli] read history: %v", err)
		}
		f.Close()
	}
	return &linerReader{state: state, historyPath: historyPath}
}

func (r *linerReader) Prompt(prompt string) (string, error) {
	line, err := r.state.Prompt(prompt)
	if err == nil && strings.TrimSpace(line) != "" {
		r.state.AppendHistory(line)
	}
	return line, err
}

func (r *linerReader) Password(prompt string) (string, error) {
	return r.state.PasswordPrompt(prompt)
}

// Close saves the history with owner-only permissions.
func (r *linerReader) Close() error {
	defer r.state.Close()
	if r.historyPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.historyPath), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(r.historyPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = r.state.WriteHistory(f)
	return err
}

// plainReader reads lines from a pipe or file.
type plainReader struct {
	r   *bufio.Reader
	out io.Writer
}

func (r *plainReader) Prompt(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	line, err := r.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *plainReader) Password(prompt string) (string, error) {
	return r.Prompt(prompt)
}

func (r *plainReader) Close() error { return nil }

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	app    *app.App
	ctx    context.Context
	in     lineReader
	out    io.Writer
	errOut io.Writer
	render *messageRenderer
}

func newREPL(cmd *cobra.Command, a *app.App) *repl {
	r := &repl{
		app:    a,
		ctx:    context.WithoutCancel(cmd.Context()),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}
	r.render = newMessageRenderer(r.out, a.Config)

	if isTerminal(cmd.InOrStdin()) {
		historyPath, err := a.Config.HistoryPath()
		if err != nil {
			log.Printf("[cli] history disabled: %v", err)
		}
		r.in = newLinerReader(historyPath)
	} else {
		r.in = &plainReader{r: bufio.NewReader(cmd.InOrStdin()), out: r.out}
	}
	return r
}

func (r *repl) run() error {
	r.banner()
	for {
		line, err := r.in.Prompt(replPrompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(r.errOut, dimStyle.Render("Type /quit to exit."))
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "/"):
			quit, err := r.command(line)
			if err != nil {
				DisplayError(r.errOut, err)
			}
			if quit {
				return nil
			}
		default:
			r.submit(line)
		}
	}
}

func (r *repl) banner() {
	fmt.Fprintln(r.out, titleStyle.Render("Dixel Bot")+" "+dimStyle.Render("· "+r.app.Config.API.URL))
	if st := r.app.Gate.State(); st.Authenticated {
		fmt.Fprintln(r.out, dimStyle.Render("Signed in as "+st.UserName+". Type /help for commands."))
	} else {
		fmt.Fprintln(r.out, warningStyle.Render("Not signed in. Use /login or /signup to start chatting."))
	}
	if conv, ok := r.app.Store.Selected(); ok {
		fmt.Fprintln(r.out)
		r.render.WriteConversation(r.out, conv)
	}
}

// submit sends question and prints the streamed answer. Ctrl+C cancels
// the answer, not the REPL.
func (r *repl) submit(question string) {
	if !r.app.Gate.Authenticated() {
		fmt.Fprintln(r.errOut, warningStyle.Render("Sign in with /login before asking."))
		return
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	defer signal.Stop(sig)
	done := make(chan struct{})
	go func() {
		select {
		case <-sig:
			r.app.Chat.Cancel()
		case <-done:
		}
	}()

	fmt.Fprintln(r.out, assistantStyle.Render(model.RoleAssistant.DisplayName()))
	p := newStreamPrinter(r.out, r.errOut, r.app.Store, isTerminal(r.out))
	stop := p.Start()
	err := r.app.Chat.Submit(r.ctx, question, "")
	close(done)
	stop()
	p.Finish()
	fmt.Fprintln(r.out)

	switch {
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(r.errOut, dimStyle.Render("Cancelled."))
	case err != nil:
		log.Printf("[cli] submit: %v", err)
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

const replHelp = `Commands:
  /new                  start a new conversation
  /list                 list conversations
  /switch <id>          switch conversation
  /delete [id]          delete a conversation (default: current)
  /history              reprint the current conversation
  /export [md|json]     export the current conversation
  /health               probe the backend
  /login, /signup       sign in or create an account
  /whoami, /logout      show or end the session
  /quit                 exit`

func (r *repl) command(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}

	switch name {
	case "/quit", "/exit", "/q":
		return true, nil
	case "/help", "/h", "/?":
		fmt.Fprintln(r.out, replHelp)
	case "/login":
		return false, r.login()
	case "/signup":
		return false, r.signup()
	case "/logout":
		r.app.Logout(r.ctx)
		fmt.Fprintln(r.out, renderStatus(true, "Logged out"))
	case "/whoami":
		if err := requireSession(r.app); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, renderLabel("User", r.app.Gate.State().UserName))
	case "/health":
		res := r.app.Health(r.ctx)
		fmt.Fprintln(r.out, renderHealth(res))
	case "/new", "/list", "/switch", "/delete", "/history", "/export":
		if err := requireSession(r.app); err != nil {
			return false, err
		}
		return false, r.conversationCommand(name, arg)
	default:
		return false, &UsageError{Field: "command", Value: name, Reason: "unknown command, see /help"}
	}
	return false, nil
}

func (r *repl) conversationCommand(name, arg string) error {
	switch name {
	case "/new":
		conv, err := r.app.Chat.NewConversation(r.ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, renderStatus(true, "Started conversation "+conv.ID.String()))
	case "/list":
		selected := r.app.Store.SelectedID()
		for _, c := range r.app.Store.Snapshot() {
			marker := "  "
			if c.ID.Equal(selected) {
				marker = highlightStyle.Render("* ")
			}
			fmt.Fprintf(r.out, "%s%-6s %s\n", marker, c.ID.String(), c.DisplayTitle(50))
		}
	case "/switch":
		id, err := resolveConversation(r.app, arg)
		if err != nil {
			return err
		}
		if err := r.app.Chat.Select(r.ctx, id); err != nil {
			return err
		}
		conv, _ := r.app.Store.Get(id)
		r.render.WriteConversation(r.out, conv)
	case "/delete":
		id, err := resolveConversation(r.app, arg)
		if err != nil {
			return err
		}
		if err := r.app.Chat.Delete(r.ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(r.out, renderStatus(true, "Deleted conversation "+id.String()))
	case "/history":
		conv, ok := r.app.Store.Selected()
		if !ok {
			return &NotFoundError{Resource: "conversation", ID: "(none selected)"}
		}
		r.render.WriteConversation(r.out, conv)
	case "/export":
		conv, ok := r.app.Store.Selected()
		if !ok {
			return &NotFoundError{Resource: "conversation", ID: "(none selected)"}
		}
		format := arg
		if format == "" {
			format = r.app.Config.Export.Format
		}
		exportOpts := exportOptions(r.app.Config, "")
		exporter, err := export.ForFormat(format, exportOpts)
		if err != nil {
			return &UsageError{Field: "format", Value: format, Reason: "expected md or json"}
		}
		path, err := export.ExportToFile(conv, exporter, exportOpts)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, renderStatus(true, "Exported to "+path))
	}
	return nil
}

func (r *repl) login() error {
	email, err := r.in.Prompt("Email: ")
	if err != nil {
		return err
	}
	password, err := r.in.Password("Mot de passe: ")
	if err != nil {
		return err
	}
	st, err := r.app.Login(r.ctx, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, renderStatus(true, "Logged in as "+highlightStyle.Render(st.UserName)))
	return nil
}

func (r *repl) signup() error {
	name, err := r.in.Prompt("Nom: ")
	if err != nil {
		return err
	}
	email, err := r.in.Prompt("Email: ")
	if err != nil {
		return err
	}
	password, err := r.in.Password("Mot de passe: ")
	if err != nil {
		return err
	}
	st, err := r.app.Signup(r.ctx, name, email, password)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, renderStatus(true, "Account created. Logged in as "+highlightStyle.Render(st.UserName)))
	return nil
}
