// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strconv"
	"strings"
)

// idKind discriminates the two identity spaces of a conversation.
type idKind uint8

const (
	idNone idKind = iota
	idLocal
	idPersisted
)

// localPrefix marks local ids in their string form so they never parse
// as a server id.
const localPrefix = "local:"

// ConversationID identifies a conversation. A Local id belongs to a
// conversation that exists only on this client; a Persisted id is the
// numeric key assigned by the backend. IDs of different kinds are never
// equal, and the struct is comparable with ==.
type ConversationID struct {
	kind  idKind
	local string
	num   int64
}

// LocalID returns a client-only identity.
func LocalID(key string) ConversationID {
	return ConversationID{kind: idLocal, local: key}
}

// PersistedID returns a backend identity.
func PersistedID(n int64) ConversationID {
	return ConversationID{kind: idPersisted, num: n}
}

// IsZero reports whether the id is unset.
func (id ConversationID) IsZero() bool { return id.kind == idNone }

// IsLocal reports whether the id is client-only.
func (id ConversationID) IsLocal() bool { return id.kind == idLocal }

// IsPersisted reports whether the id was assigned by the backend.
func (id ConversationID) IsPersisted() bool { return id.kind == idPersisted }

// Number returns the server id. ok is false for local or unset ids.
func (id ConversationID) Number() (n int64, ok bool) {
	if id.kind != idPersisted {
		return 0, false
	}
	return id.num, true
}

// Key returns the local key. ok is false for persisted or unset ids.
func (id ConversationID) Key() (key string, ok bool) {
	if id.kind != idLocal {
		return "", false
	}
	return id.local, true
}

// Equal reports whether two ids denote the same conversation.
func (id ConversationID) Equal(other ConversationID) bool {
	return id == other
}

// String renders the id. Persisted ids render as their number so they can
// be used in URL paths; local ids carry a "local:" prefix.
func (id ConversationID) String() string {
	switch id.kind {
	case idLocal:
		return localPrefix + id.local
	case idPersisted:
		return strconv.FormatInt(id.num, 10)
	default:
		return ""
	}
}

// ParseConversationID parses the String form of an id.
func ParseConversationID(s string) (ConversationID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ConversationID{}, fmt.Errorf("empty conversation id")
	}
	if key, ok := strings.CutPrefix(s, localPrefix); ok {
		return LocalID(key), nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return ConversationID{}, fmt.Errorf("invalid conversation id %q: %w", s, err)
	}
	return PersistedID(n), nil
}

// MarshalText implements encoding.TextMarshaler.
func (id ConversationID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ConversationID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*id = ConversationID{}
		return nil
	}
	parsed, err := ParseConversationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
