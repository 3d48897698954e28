// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the typed client for the Dixel backend.
//
// Covered endpoints: authentication (/auth/*), conversations and their
// messages, the /ask/stream answer stream, health probes, and the export,
// statistics and search extensions.
//
// # Errors
//
// Failures are classified so callers can react without string matching:
//
//   - *AuthError: the backend rejected credentials or input ({detail})
//   - *TransportError: the request never produced a response (network,
//     timeout, cancellation)
//   - *ProtocolError: the response was not the JSON we expected, including
//     HTML error pages from a proxy or a backend that is not running
//   - *ServerError: any other non-2xx status, with a human-readable message
//     from StatusMessage
//
// ErrUnauthorized, ErrNotFound and ErrNoToken can be matched with errors.Is.
//
// # Timeouts
//
// Ordinary requests use a client with a fixed timeout (30s by default). The
// answer stream uses a separate client with no timeout; it is bounded only
// by the request context.
package api
