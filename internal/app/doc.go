// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app assembles the client from configuration: API client,
// credential store, session gate, conversation store and reconciler.
//
// An App is built with New and has no side effects until Init. Teardown
// cancels any in-flight answer and releases the credential store. Every
// front end (TUI, REPL, one-shot commands) goes through an App rather than
// package-level state.
package app
