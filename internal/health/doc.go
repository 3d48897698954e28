// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package health probes the backend's /health endpoint and turns failures
// into messages a user can act on.
package health
