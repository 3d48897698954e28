// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/dixel/internal/api"
	"github.com/jeranaias/dixel/internal/chat"
	"github.com/jeranaias/dixel/internal/config"
	"github.com/jeranaias/dixel/internal/session"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 6
	ExitTimeoutError  = 7
	ExitInterrupted   = 130
)

// errNotLoggedIn is returned by commands that need a session.
var errNotLoggedIn = errors.New("not logged in")

// errUnhealthy is returned by `health` when the backend is not healthy.
var errUnhealthy = errors.New("backend unhealthy")

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError is a bad flag or argument value.
type UsageError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	return msg
}

// reportedError is a failure the command has already printed. It only
// sets the exit code.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

// NotFoundError is an unknown conversation or resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		usageErr     *UsageError
		inputErr     *session.InputError
		configErrs   config.ValidateErrors
		notFoundErr  *NotFoundError
		authErr      *api.AuthError
		transportErr *api.TransportError
	)

	switch {
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &usageErr), errors.As(err, &inputErr):
		return ExitUsageError
	case errors.As(err, &configErrs):
		return ExitConfigError
	case errors.Is(err, errNotLoggedIn),
		errors.Is(err, api.ErrUnauthorized),
		errors.Is(err, api.ErrNoToken),
		errors.As(err, &authErr):
		return ExitAuthError
	case errors.As(err, &notFoundErr),
		errors.Is(err, api.ErrNotFound),
		errors.Is(err, chat.ErrUnknownConversation):
		return ExitNotFoundError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.As(err, &transportErr):
		if transportErr.Timeout() {
			return ExitTimeoutError
		}
		return ExitNetworkError
	case errors.Is(err, errUnhealthy):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}

// hint returns a follow-up suggestion for err, or "".
func hint(err error) string {
	var transportErr *api.TransportError
	var configErrs config.ValidateErrors
	switch {
	case errors.Is(err, errNotLoggedIn), errors.Is(err, api.ErrUnauthorized), errors.Is(err, api.ErrNoToken):
		return "Run 'dixel login' to sign in."
	case errors.As(err, &transportErr):
		return "Check the backend URL with 'dixel config show' or probe it with 'dixel health'."
	case errors.As(err, &configErrs):
		return "Fix the file shown by 'dixel config path' or regenerate it with 'dixel config init --force'."
	case errors.Is(err, chat.ErrUnknownConversation):
		return "List conversations with 'dixel conversations list'."
	}
	return ""
}

// DisplayError prints err with its hint.
func DisplayError(w io.Writer, err error) {
	var reported *reportedError
	if err == nil || errors.As(err, &reported) {
		return
	}
	fmt.Fprintf(w, "%s %v\n", errorStyle.Render("Error:"), err)
	if h := hint(err); h != "" {
		fmt.Fprintln(w, dimStyle.Render(h))
	}
}
