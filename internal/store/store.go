// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"

	"github.com/jeranaias/dixel/internal/model"
)

// Transform maps one collection to the next. It must not modify its input.
type Transform func(prev []model.Conversation) []model.Conversation

// Store is the conversation collection plus the current selection.
// Conversations are ordered newest first.
type Store struct {
	mu       sync.Mutex
	convs    []model.Conversation
	selected model.ConversationID
	version  uint64

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// New creates a store seeded with convs. The first one is selected.
func New(convs ...model.Conversation) *Store {
	s := &Store{subs: make(map[int]chan struct{})}
	s.convs = cloneAll(convs)
	if len(convs) > 0 {
		s.selected = convs[0].ID
	}
	return s
}

// =============================================================================
// READS
// =============================================================================

// Snapshot returns the current collection. The outer slice is a copy;
// message slices are shared and must be treated as read-only.
func (s *Store) Snapshot() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Conversation, len(s.convs))
	copy(out, s.convs)
	return out
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

// Get looks a conversation up by id.
func (s *Store) Get(id model.ConversationID) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.convs, id)
	if i < 0 {
		return model.Conversation{}, false
	}
	return s.convs[i], true
}

// Version increases on every applied mutation.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// =============================================================================
// SELECTION
// =============================================================================

// Select makes id current. It returns false if no such conversation exists.
func (s *Store) Select(id model.ConversationID) bool {
	s.mu.Lock()
	if indexOf(s.convs, id) < 0 {
		s.mu.Unlock()
		return false
	}
	changed := s.selected != id
	s.selected = id
	if changed {
		s.version++
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
	return true
}

// SelectedID returns the current selection, zero if none.
func (s *Store) SelectedID() model.ConversationID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Selected returns the current conversation.
func (s *Store) Selected() (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.convs, s.selected)
	if i < 0 {
		return model.Conversation{}, false
	}
	return s.convs[i], true
}

// =============================================================================
// WRITES
// =============================================================================

// Apply replaces the collection with fn(previous). fn runs under the store
// lock and sees the state at application time. If the selected
// conversation disappears, selection moves to the first remaining one.
func (s *Store) Apply(fn Transform) {
	s.mu.Lock()
	s.convs = fn(s.convs)
	if indexOf(s.convs, s.selected) < 0 {
		s.selected = firstID(s.convs)
	}
	s.version++
	s.mu.Unlock()
	s.notify()
}

// Replace swaps in a new collection and selects its first conversation
// unless the current selection is still present.
func (s *Store) Replace(convs []model.Conversation) {
	next := cloneAll(convs)
	s.Apply(func([]model.Conversation) []model.Conversation { return next })
}

// Reset replaces the collection and selects sel.
func (s *Store) Reset(convs []model.Conversation, sel model.ConversationID) {
	next := cloneAll(convs)
	s.mu.Lock()
	s.convs = next
	s.selected = sel
	if indexOf(next, sel) < 0 {
		s.selected = firstID(next)
	}
	s.version++
	s.mu.Unlock()
	s.notify()
}

// Prepend inserts conv at the front.
func (s *Store) Prepend(conv model.Conversation) {
	conv = conv.Clone()
	s.Apply(func(prev []model.Conversation) []model.Conversation {
		next := make([]model.Conversation, 0, len(prev)+1)
		next = append(next, conv)
		return append(next, prev...)
	})
}

// Remove drops the conversation with id. Selection moves to the first
// remaining conversation, or to none.
func (s *Store) Remove(id model.ConversationID) bool {
	removed := false
	s.Apply(func(prev []model.Conversation) []model.Conversation {
		i := indexOf(prev, id)
		if i < 0 {
			return prev
		}
		removed = true
		next := make([]model.Conversation, 0, len(prev)-1)
		next = append(next, prev[:i]...)
		return append(next, prev[i+1:]...)
	})
	return removed
}

// Update replaces the conversation with id by fn(conv). It reports false
// and changes nothing if id is absent.
func (s *Store) Update(id model.ConversationID, fn func(model.Conversation) model.Conversation) bool {
	applied := false
	s.Apply(func(prev []model.Conversation) []model.Conversation {
		i := indexOf(prev, id)
		if i < 0 {
			return prev
		}
		applied = true
		next := make([]model.Conversation, len(prev))
		copy(next, prev)
		next[i] = fn(prev[i])
		return next
	})
	return applied
}

// Rebind swaps the conversation stored under old for conv, keeping its
// position and moving the selection with it. It reports false, changing
// nothing, when old is no longer in the store.
func (s *Store) Rebind(old model.ConversationID, conv model.Conversation) bool {
	conv = conv.Clone()
	s.mu.Lock()
	i := indexOf(s.convs, old)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	next := make([]model.Conversation, len(s.convs))
	copy(next, s.convs)
	next[i] = conv
	s.convs = next
	if s.selected == old || s.selected.IsZero() {
		s.selected = conv.ID
	}
	s.version++
	s.mu.Unlock()
	s.notify()
	return true
}

// =============================================================================
// MESSAGE WRITES
// =============================================================================

// AppendMessage adds msg at the end of conversation id.
func (s *Store) AppendMessage(id model.ConversationID, msg model.Message) bool {
	return s.Update(id, func(c model.Conversation) model.Conversation {
		return c.WithMessages(appendCopy(c.Messages, msg))
	})
}

// ReplaceMessage removes the message msgID and appends msg in its place at
// the end of the list.
func (s *Store) ReplaceMessage(id model.ConversationID, msgID string, msg model.Message) bool {
	return s.Update(id, func(c model.Conversation) model.Conversation {
		return c.WithMessages(appendCopy(without(c.Messages, msgID), msg))
	})
}

// RemoveMessage drops the message msgID.
func (s *Store) RemoveMessage(id model.ConversationID, msgID string) bool {
	return s.Update(id, func(c model.Conversation) model.Conversation {
		return c.WithMessages(without(c.Messages, msgID))
	})
}

// UpdateMessage replaces the message msgID by fn(msg). Messages other than
// msgID are untouched; an unknown msgID leaves the list as it was.
func (s *Store) UpdateMessage(id model.ConversationID, msgID string, fn func(model.Message) model.Message) bool {
	return s.Update(id, func(c model.Conversation) model.Conversation {
		i := c.MessageIndex(msgID)
		if i < 0 {
			return c
		}
		msgs := make([]model.Message, len(c.Messages))
		copy(msgs, c.Messages)
		msgs[i] = fn(msgs[i])
		return c.WithMessages(msgs)
	})
}

// SetMessages replaces the whole message list of conversation id.
func (s *Store) SetMessages(id model.ConversationID, msgs []model.Message) bool {
	next := make([]model.Message, len(msgs))
	copy(next, msgs)
	return s.Update(id, func(c model.Conversation) model.Conversation {
		return c.WithMessages(next)
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func indexOf(convs []model.Conversation, id model.ConversationID) int {
	if id.IsZero() {
		return -1
	}
	for i := range convs {
		if convs[i].ID == id {
			return i
		}
	}
	return -1
}

func firstID(convs []model.Conversation) model.ConversationID {
	if len(convs) == 0 {
		return model.ConversationID{}
	}
	return convs[0].ID
}

func cloneAll(convs []model.Conversation) []model.Conversation {
	out := make([]model.Conversation, len(convs))
	for i := range convs {
		out[i] = convs[i].Clone()
	}
	return out
}

func appendCopy(msgs []model.Message, msg model.Message) []model.Message {
	out := make([]model.Message, 0, len(msgs)+1)
	out = append(out, msgs...)
	return append(out, msg)
}

func without(msgs []model.Message, msgID string) []model.Message {
	out := make([]model.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ID != msgID {
			out = append(out, m)
		}
	}
	return out
}
