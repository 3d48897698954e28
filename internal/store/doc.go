// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the in-memory conversation collection that every
// view renders from.
//
// Every mutation is a pure transform of the previous collection into a new
// one, applied under a lock, so a reader always sees a complete snapshot.
// Updates address conversations by id; an update for an id that is no
// longer present is dropped, so a deleted conversation is never recreated
// by a late stream chunk.
package store
