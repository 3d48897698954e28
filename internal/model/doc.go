// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the store, the
// streaming reconciler and the user interfaces.
//
// # Key Types
//
//   - Conversation: ordered list of messages plus title and creation time
//   - ConversationID: tagged identity, either Local (not yet created on the
//     backend) or Persisted (numeric server id)
//   - Message: single message with role, content, optional image and Status
//   - Status: lifecycle of a message (pending, streaming, complete, error)
//
// Values are plain structs. Collections are copied, never mutated in place,
// so a snapshot handed to a renderer stays consistent.
//
// # Usage
//
//	conv := model.NewConversation(model.PersistedID(42), "Lighting", time.Now())
//	conv = conv.WithMessages(append(conv.Messages, model.NewUserMessage("ISO?", "", time.Now())))
//	if conv.Thinking() {
//	    // render the thinking indicator
//	}
package model
