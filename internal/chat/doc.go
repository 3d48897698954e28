// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs the question/answer cycle against the backend and keeps
// the conversation store in step with it.
//
// A submission moves through these states:
//
//	Idle -> AwaitingConversation -> UserMessageAppended -> Thinking
//	     -> Streaming -> Reconciling -> Idle
//
// with Errored reachable from AwaitingConversation, Thinking and Streaming.
// AwaitingConversation is skipped when the selected conversation already
// has a server id.
//
// While streaming, each chunk rewrites the whole accumulated answer into the
// in-flight message. When the stream finishes, the conversation's messages
// are replaced wholesale by the list the backend persisted; local content
// is provisional until then.
//
// Only one submission runs at a time. Submitting while another answer is
// streaming cancels the earlier one first; its in-flight message is removed.
package chat
