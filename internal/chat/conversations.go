// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/dixel/internal/api"
	"github.com/jeranaias/dixel/internal/model"
)

// loadConcurrency bounds parallel message fetches during Load.
const loadConcurrency = 4

// Load replaces the store with the user's conversations and their messages.
// The first conversation is selected. When the user has none, a new one is
// created and seeded with the welcome message.
//
// A conversation whose messages cannot be fetched is loaded empty.
func (r *Reconciler) Load(ctx context.Context) error {
	backend, ok := r.connect()
	if !ok {
		return nil
	}

	records, err := backend.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("list conversations: %w", err)
	}

	if len(records) == 0 {
		rec, err := backend.CreateConversation(ctx)
		if err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		conv := rec.ToModel().WithMessages([]model.Message{model.WelcomeMessage(r.now())})
		r.store.Reset([]model.Conversation{conv}, conv.ID)
		return nil
	}

	convs := make([]model.Conversation, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i, rec := range records {
		convs[i] = rec.ToModel()
		g.Go(func() error {
			msgs, err := backend.ListMessages(gctx, rec.ID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Printf("[chat] messages for conversation %d unavailable: %v", rec.ID, err)
				return nil
			}
			convs[i].Messages = api.MessagesToModel(msgs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	r.store.Reset(convs, convs[0].ID)
	return nil
}

// NewConversation creates a conversation on the backend, prepends it and
// selects it. Without a session it returns the zero conversation.
func (r *Reconciler) NewConversation(ctx context.Context) (model.Conversation, error) {
	backend, ok := r.connect()
	if !ok {
		return model.Conversation{}, nil
	}
	rec, err := backend.CreateConversation(ctx)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	conv := rec.ToModel()
	r.store.Prepend(conv)
	r.store.Select(conv.ID)
	return conv, nil
}

// Delete removes a conversation. Persisted conversations are deleted on the
// backend first; the local copy is only dropped once that succeeds. If the
// deleted conversation was selected the selection moves to the first
// remaining one.
func (r *Reconciler) Delete(ctx context.Context, id model.ConversationID) error {
	if n, ok := id.Number(); ok {
		backend, connected := r.connect()
		if !connected {
			return nil
		}
		if err := backend.DeleteConversation(ctx, n); err != nil {
			return fmt.Errorf("delete conversation %d: %w", n, err)
		}
	}
	r.store.Remove(id)
	return nil
}

// Select makes id the current conversation. Persisted conversations are
// re-fetched so their transcript is canonical.
func (r *Reconciler) Select(ctx context.Context, id model.ConversationID) error {
	if !r.store.Select(id) {
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	if conv, ok := r.store.Get(id); ok {
		if last, ok := conv.LastMessage(); ok && last.IsInFlight() {
			return nil
		}
	}
	return r.Refresh(ctx, id)
}

// Reset cancels any running submission and puts the store back to the
// single local welcome conversation shown to signed-out users.
func (r *Reconciler) Reset() {
	r.Cancel()
	r.Wait()
	welcome := model.WelcomeConversation(r.now())
	r.store.Reset([]model.Conversation{welcome}, welcome.ID)
	r.transition(Idle)
}
