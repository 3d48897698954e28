// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jeranaias/dixel/internal/app"
	"github.com/jeranaias/dixel/internal/model"
	"github.com/jeranaias/dixel/internal/store"
)

// maxImageBytes bounds --image files.
const maxImageBytes = 10 << 20

// finalAnswerLabel precedes a final answer that replaces the streamed draft.
const finalAnswerLabel = "Final answer:"

type askResult struct {
	ConversationID string `json:"conversation_id"`
	Question       string `json:"question"`
	Answer         string `json:"answer"`
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	var (
		conversation string
		newConv      bool
		imagePath    string
	)

	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask one question and stream the answer",
		Long: `Ask one question in a conversation and print the answer as it streams.

The most recent conversation is used unless --conversation or --new is
given. With no arguments the question is read from stdin.`,
		Example: `  dixel ask "Quel objectif pour un portrait en lumière naturelle ?"
  dixel ask --new "Comment photographier la voie lactée ?"
  echo "Réglages pour un coucher de soleil ?" | dixel ask -c 12`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := readQuestion(cmd, args)
			if err != nil {
				return err
			}
			var image string
			if imagePath != "" {
				if image, err = imageDataURI(imagePath); err != nil {
					return err
				}
			}
			if strings.TrimSpace(question) == "" && image == "" {
				return &UsageError{Field: "question", Reason: "nothing to ask", Example: `dixel ask "Quelle ouverture pour un paysage ?"`}
			}

			a, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			if err := selectTarget(cmd, a, conversation, newConv); err != nil {
				return err
			}
			return ask(cmd, opts, a, question, image)
		},
	}
	cmd.Flags().StringVarP(&conversation, "conversation", "c", "", "conversation id to ask in")
	cmd.Flags().BoolVar(&newConv, "new", false, "start a new conversation")
	cmd.Flags().StringVar(&imagePath, "image", "", "attach an image (kept in the local transcript only)")
	cmd.MarkFlagsMutuallyExclusive("conversation", "new")
	return cmd
}

func readQuestion(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if isTerminal(cmd.InOrStdin()) {
		return "", nil
	}
	b, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), 64<<10))
	if err != nil {
		return "", fmt.Errorf("read question from stdin: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// imageDataURI reads path into a data: URI.
func imageDataURI(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if info.Size() > maxImageBytes {
		return "", &UsageError{Field: "image", Value: path, Reason: "larger than 10 MiB"}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", &UsageError{Field: "image", Value: path, Reason: "not an image (" + mime + ")"}
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func selectTarget(cmd *cobra.Command, a *app.App, conversation string, newConv bool) error {
	switch {
	case newConv:
		_, err := a.Chat.NewConversation(cmd.Context())
		return err
	case conversation != "":
		id, err := resolveConversation(a, conversation)
		if err != nil {
			return err
		}
		return a.Chat.Select(cmd.Context(), id)
	}
	return nil
}

func ask(cmd *cobra.Command, opts *rootOptions, a *app.App, question, image string) error {
	if opts.jsonOut {
		if err := a.Chat.Submit(cmd.Context(), question, image); err != nil {
			return err
		}
		conv, _ := a.Store.Selected()
		last, _ := conv.LastMessage()
		return opts.emit(cmd, askResult{
			ConversationID: conv.ID.String(),
			Question:       question,
			Answer:         last.Content,
		}, nil)
	}

	out := cmd.OutOrStdout()
	p := newStreamPrinter(out, cmd.ErrOrStderr(), a.Store, isTerminal(out))
	stop := p.Start()
	err := a.Chat.Submit(cmd.Context(), question, image)
	stop()
	p.Finish()
	return err
}

// =============================================================================
// STREAM PRINTER
// =============================================================================

// streamPrinter writes the selected conversation's in-flight answer as it
// grows. Only the new suffix is written on each store change.
type streamPrinter struct {
	out    io.Writer
	status io.Writer
	st     *store.Store
	tty    bool

	mu       sync.Mutex
	startID  string
	msgID    string
	printed  string
	thinking bool
}

func newStreamPrinter(out, status io.Writer, st *store.Store, tty bool) *streamPrinter {
	return &streamPrinter{out: out, status: status, st: st, tty: tty}
}

// Start follows the store until stop is called.
func (p *streamPrinter) Start() (stop func()) {
	if m, ok := p.last(); ok {
		p.startID = m.ID
	}
	changes, cancel := p.st.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range changes {
			p.update()
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (p *streamPrinter) last() (model.Message, bool) {
	conv, ok := p.st.Selected()
	if !ok {
		return model.Message{}, false
	}
	m, ok := conv.LastMessage()
	if !ok || m.Role != model.RoleAssistant {
		return model.Message{}, false
	}
	return m, true
}

func (p *streamPrinter) update() {
	m, ok := p.last()
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case m.IsThinking():
		if p.tty && !p.thinking {
			fmt.Fprint(p.status, dimStyle.Render(model.ThinkingMarker))
			p.thinking = true
		}
	case m.IsStreaming():
		p.clearThinking()
		if m.ID != p.msgID {
			p.msgID = m.ID
			p.printed = ""
		}
		p.writeSuffix(m.Content)
	}
}

func (p *streamPrinter) clearThinking() {
	if p.thinking {
		fmt.Fprint(p.status, "\r\033[K")
		p.thinking = false
	}
}

// writeSuffix prints what content adds to the text already printed.
func (p *streamPrinter) writeSuffix(content string) {
	if !strings.HasPrefix(content, p.printed) || len(content) == len(p.printed) {
		return
	}
	fmt.Fprint(p.out, content[len(p.printed):])
	p.printed = content
}

// rewrite prints content in full after the streamed draft when the final
// answer differs from it.
func (p *streamPrinter) rewrite(content string) {
	if !strings.HasSuffix(p.printed, "\n") {
		fmt.Fprintln(p.out)
	}
	fmt.Fprintln(p.out, dimStyle.Render(finalAnswerLabel))
	fmt.Fprint(p.out, content)
	p.printed = content
}

// Finish prints whatever the final answer holds beyond the streamed text,
// or the error notice, and ends the line.
func (p *streamPrinter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearThinking()

	m, ok := p.last()
	if ok && m.ID != p.startID {
		switch {
		case m.Status == model.StatusError:
			fmt.Fprintln(p.status, errorStyle.Render(m.Content))
			return
		case strings.HasPrefix(m.Content, p.printed):
			p.writeSuffix(m.Content)
		default:
			p.rewrite(m.Content)
		}
	}
	if p.printed != "" && !strings.HasSuffix(p.printed, "\n") {
		fmt.Fprintln(p.out)
	}
}
