// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

// State is the reconciler's position in a submission.
type State int

const (
	Idle State = iota
	AwaitingConversation
	UserMessageAppended
	Thinking
	Streaming
	Reconciling
	Errored
)

var stateNames = [...]string{
	Idle:                 "idle",
	AwaitingConversation: "awaiting-conversation",
	UserMessageAppended:  "user-message-appended",
	Thinking:             "thinking",
	Streaming:            "streaming",
	Reconciling:          "reconciling",
	Errored:              "errored",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Busy reports whether a submission is in progress.
func (s State) Busy() bool {
	return s != Idle && s != Errored
}
