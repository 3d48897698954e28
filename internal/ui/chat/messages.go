// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/dixel/internal/config"
	"github.com/jeranaias/dixel/internal/health"
	"github.com/jeranaias/dixel/internal/session"
)

// storeChangedMsg is sent after the conversation store changes.
type storeChangedMsg struct{}

// frameMsg redraws a change held back by the frame limiter.
type frameMsg struct{}

// submitDoneMsg ends a submission.
type submitDoneMsg struct {
	err error
}

// authDoneMsg ends a login or signup.
type authDoneMsg struct {
	state session.State
	err   error
}

// opDoneMsg ends a conversation operation. status is shown on success.
type opDoneMsg struct {
	status string
	err    error
}

// loggedOutMsg is sent after logout.
type loggedOutMsg struct{}

// healthMsg carries a backend probe result.
type healthMsg struct {
	result health.Result
}

// configReloadedMsg carries the config after an edit on disk.
type configReloadedMsg struct {
	cfg *config.Config
}
