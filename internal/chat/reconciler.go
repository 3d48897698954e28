// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/dixel/internal/api"
	"github.com/jeranaias/dixel/internal/model"
	"github.com/jeranaias/dixel/internal/store"
	"github.com/jeranaias/dixel/internal/stream"
)

// Backend is the subset of the API client the reconciler needs.
// *api.Client satisfies it.
type Backend interface {
	ListConversations(ctx context.Context) ([]api.ConversationRecord, error)
	CreateConversation(ctx context.Context) (*api.ConversationRecord, error)
	DeleteConversation(ctx context.Context, id int64) error
	ListMessages(ctx context.Context, id int64) ([]api.MessageRecord, error)
	AskStream(ctx context.Context, conversationID int64, question string) (io.ReadCloser, error)
}

// Connector returns an authenticated backend. ok is false when there is no
// session; operations then do nothing.
type Connector func() (b Backend, ok bool)

// ErrUnknownConversation is returned when selecting an id not in the store.
var ErrUnknownConversation = errors.New("unknown conversation")

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock replaces time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithStateHook registers fn to observe every state transition.
func WithStateHook(fn func(State)) Option {
	return func(r *Reconciler) { r.onState = fn }
}

// Reconciler drives submissions and conversation management.
type Reconciler struct {
	store   *store.Store
	connect Connector
	now     func() time.Time
	onState func(State)

	// submitMu serialises the hand-over between submissions.
	submitMu sync.Mutex

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a reconciler over st.
func New(st *store.Store, connect Connector, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:   st,
		connect: connect,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the store the reconciler writes to.
func (r *Reconciler) Store() *store.Store {
	return r.store
}

// State returns the current state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconciler) transition(s State) {
	r.mu.Lock()
	r.state = s
	hook := r.onState
	r.mu.Unlock()
	if hook != nil {
		hook(s)
	}
}

// =============================================================================
// SUBMISSION LIFECYCLE
// =============================================================================

// begin cancels any running submission, waits for it to unwind, and
// installs a fresh cancellable context.
func (r *Reconciler) begin(parent context.Context) (context.Context, func()) {
	r.submitMu.Lock()
	defer r.submitMu.Unlock()

	r.mu.Lock()
	prevCancel, prevDone := r.cancel, r.done
	r.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
		<-prevDone
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	r.state = Idle
	r.mu.Unlock()

	return ctx, func() {
		cancel()
		r.mu.Lock()
		if r.done == done {
			r.cancel = nil
			r.done = nil
		}
		r.mu.Unlock()
		close(done)
	}
}

// Cancel aborts the running submission, if any. It does not wait.
func (r *Reconciler) Cancel() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the running submission, if any, has finished.
func (r *Reconciler) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit sends question (and an optional image data URI kept locally) in
// the selected conversation and blocks until the answer is reconciled or
// the request fails. A blank submission or a missing session is a no-op.
//
// On failure the in-flight message is replaced by the static error notice
// and the error is returned. If the submission was cancelled the in-flight
// message is removed and ctx's error is returned. If the local
// conversation is deleted while its server copy is being created, the
// server copy is deleted too and nothing is sent.
func (r *Reconciler) Submit(parent context.Context, question, image string) error {
	question = strings.TrimSpace(question)
	if question == "" && image == "" {
		return nil
	}
	backend, ok := r.connect()
	if !ok {
		return nil
	}

	ctx, release := r.begin(parent)
	defer release()

	target := r.store.SelectedID()
	if !target.IsPersisted() {
		r.transition(AwaitingConversation)
		rec, err := backend.CreateConversation(ctx)
		if err != nil {
			r.transition(Errored)
			return fmt.Errorf("create conversation: %w", err)
		}
		conv := rec.ToModel()
		if !r.store.Rebind(target, conv) {
			// Deleted while the create call was in flight.
			r.dropOrphan(ctx, backend, rec.ID)
			r.transition(Idle)
			return nil
		}
		target = conv.ID
	}
	convID, _ := target.Number()

	r.store.AppendMessage(target, model.NewUserMessage(question, image, r.now()))
	r.transition(UserMessageAppended)

	placeholder := model.NewPlaceholder(r.now())
	r.store.AppendMessage(target, placeholder)
	r.transition(Thinking)

	body, err := backend.AskStream(ctx, convID, question)
	if err != nil {
		return r.fail(ctx, target, placeholder.ID, err)
	}
	defer body.Close()

	live := model.NewStreamingMessage(r.now())
	r.store.ReplaceMessage(target, placeholder.ID, live)
	r.transition(Streaming)

	var answer strings.Builder
	outcome, err := stream.Consume(ctx, body, stream.Handler{
		OnChunk: func(chunk string) {
			answer.WriteString(chunk)
			content := answer.String()
			r.store.UpdateMessage(target, live.ID, func(m model.Message) model.Message {
				m.Content = content
				return m
			})
		},
	})
	if err != nil {
		return r.fail(ctx, target, live.ID, err)
	}
	if !outcome.Done {
		log.Printf("[chat] stream for conversation %d ended without done frame", convID)
	}

	r.transition(Reconciling)
	r.store.UpdateMessage(target, live.ID, func(m model.Message) model.Message {
		m.Status = model.StatusComplete
		return m
	})
	if err := r.reconcile(ctx, backend, target); err != nil {
		log.Printf("[chat] reconcile of conversation %d failed, keeping streamed answer: %v", convID, err)
	}

	r.transition(Idle)
	return nil
}

// dropOrphan deletes a server conversation that no longer has a local
// counterpart.
func (r *Reconciler) dropOrphan(ctx context.Context, backend Backend, id int64) {
	if err := backend.DeleteConversation(context.WithoutCancel(ctx), id); err != nil {
		log.Printf("[chat] could not delete orphaned conversation %d: %v", id, err)
	}
}

// fail settles a submission that did not complete.
func (r *Reconciler) fail(ctx context.Context, target model.ConversationID, inflightID string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		r.store.RemoveMessage(target, inflightID)
		r.transition(Idle)
		return ctxErr
	}

	log.Printf("[chat] answer failed for %s: %v", target, err)
	r.store.ReplaceMessage(target, inflightID, model.NewErrorMessage(r.now()))
	r.transition(Errored)
	return err
}

// reconcile replaces the local transcript with the canonical one.
func (r *Reconciler) reconcile(ctx context.Context, backend Backend, id model.ConversationID) error {
	n, ok := id.Number()
	if !ok {
		return nil
	}
	records, err := backend.ListMessages(ctx, n)
	if err != nil {
		return err
	}
	r.store.SetMessages(id, api.MessagesToModel(records))
	return nil
}

// Refresh re-fetches the canonical messages of a persisted conversation.
// Calling it repeatedly against an unchanged backend is idempotent.
func (r *Reconciler) Refresh(ctx context.Context, id model.ConversationID) error {
	backend, ok := r.connect()
	if !ok || !id.IsPersisted() {
		return nil
	}
	return r.reconcile(ctx, backend, id)
}
