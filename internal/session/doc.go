// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session gates backend access on a bearer token.
//
// Gate owns the authentication state for the process. The token is kept in
// a CredentialStore (SQLite on disk, memory in tests) so a restart resumes
// the session; Restore validates it against /auth/me and clears it when the
// backend rejects it. Only Gate writes to the credential store.
package session
