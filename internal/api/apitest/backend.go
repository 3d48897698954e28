// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apitest provides an in-memory backend served over httptest for
// tests of packages that talk to the API.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/dixel/internal/api"
)

// Account defaults.
const (
	Email    = "ana@example.com"
	Password = "secret1"
	UserName = "Ana"
	Token    = "test-token"

	DefaultAnswer = "Un 85mm f/1.8 est idéal."
)

// Backend is a fake Dixel backend. One account exists; its token is Token.
type Backend struct {
	Server *httptest.Server

	mu       sync.Mutex
	nextID   int64
	nextMsg  int64
	convs    []api.ConversationRecord
	messages map[int64][]api.MessageRecord

	answer      string
	streamError string
	down        bool

	signups []api.SignupRequest
}

// New starts a backend that is closed when t ends.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		messages: make(map[int64][]api.MessageRecord),
		answer:   DefaultAnswer,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", b.login)
	mux.HandleFunc("POST /auth/signup", b.signup)
	mux.HandleFunc("GET /auth/me", b.authed(b.me))
	mux.HandleFunc("GET /conversations", b.authed(b.listConversations))
	mux.HandleFunc("POST /conversations", b.authed(b.createConversation))
	mux.HandleFunc("GET /conversations/{id}", b.authed(b.getConversation))
	mux.HandleFunc("DELETE /conversations/{id}", b.authed(b.deleteConversation))
	mux.HandleFunc("GET /conversations/{id}/messages", b.authed(b.listMessages))
	mux.HandleFunc("GET /conversations/{id}/statistics", b.authed(b.statistics))
	mux.HandleFunc("GET /conversations/{id}/export", b.authed(b.export))
	mux.HandleFunc("GET /search/messages", b.authed(b.searchMessages))
	mux.HandleFunc("GET /search/conversations", b.authed(b.searchConversations))
	mux.HandleFunc("POST /ask/stream", b.authed(b.ask))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	b.Server = httptest.NewServer(b.downGuard(mux))
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the server base URL.
func (b *Backend) URL() string {
	return b.Server.URL
}

// AddConversation stores a conversation with the given messages and
// returns its id. Conversations are listed newest first.
func (b *Backend) AddConversation(title string, msgs ...api.MessageRecord) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.convs = append([]api.ConversationRecord{{ID: id, Title: title, CreatedAt: api.Timestamp{Time: time.Now().UTC()}}}, b.convs...)
	for _, m := range msgs {
		b.nextMsg++
		m.ID = b.nextMsg
		b.messages[id] = append(b.messages[id], m)
	}
	return id
}

// Conversations returns the stored conversations.
func (b *Backend) Conversations() []api.ConversationRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.ConversationRecord(nil), b.convs...)
}

// Messages returns the stored messages of a conversation.
func (b *Backend) Messages(id int64) []api.MessageRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.MessageRecord(nil), b.messages[id]...)
}

// Signups returns the registration requests received.
func (b *Backend) Signups() []api.SignupRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.SignupRequest(nil), b.signups...)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func (b *Backend) downGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		down := b.down
		b.mu.Unlock()
		if down {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("<!DOCTYPE html><html><body>Service Unavailable</body></html>"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+Token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
			return
		}
		h(w, r)
	}
}

// SetDown makes every endpoint answer 503 with an HTML page.
func (b *Backend) SetDown(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down = down
}

// SetAnswer changes the answer streamed and persisted for every question.
func (b *Backend) SetAnswer(answer string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.answer = answer
}

// SetStreamError makes /ask/stream send an error frame instead of an answer.
func (b *Backend) SetStreamError(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streamError = msg
}

// =============================================================================
// HANDLERS
// =============================================================================

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}
	b.mu.Lock()
	known := creds.Email == Email
	for _, s := range b.signups {
		if s.Email == creds.Email && s.Password == creds.Password {
			known = true
		}
	}
	b.mu.Unlock()
	if !known || (creds.Email == Email && creds.Password != Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Email ou mot de passe incorrect"})
		return
	}
	writeJSON(w, http.StatusOK, api.LoginResponse{
		AccessToken: Token,
		TokenType:   "bearer",
		User:        api.User{ID: 1, Name: UserName, Email: creds.Email},
	})
}

func (b *Backend) signup(w http.ResponseWriter, r *http.Request) {
	var req api.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}
	if req.Email == Email {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Email already registered"})
		return
	}
	b.mu.Lock()
	b.signups = append(b.signups, req)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"message": "ok"})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.User{ID: 1, Name: UserName, Email: Email})
}

func (b *Backend) listConversations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.Conversations())
}

func (b *Backend) createConversation(w http.ResponseWriter, r *http.Request) {
	b.AddConversation("New Conversation")
	b.mu.Lock()
	rec := b.convs[0]
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, rec)
}

func (b *Backend) lookup(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid id"})
		return 0, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.convs {
		if c.ID == id {
			return id, true
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Conversation not found"})
	return 0, false
}

func (b *Backend) getConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := b.lookup(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.convs {
		if c.ID == id {
			writeJSON(w, http.StatusOK, c)
			return
		}
	}
}

func (b *Backend) deleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := b.lookup(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	for i, c := range b.convs {
		if c.ID == id {
			b.convs = append(b.convs[:i:i], b.convs[i+1:]...)
			break
		}
	}
	delete(b.messages, id)
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) listMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := b.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, b.Messages(id))
}

func (b *Backend) statistics(w http.ResponseWriter, r *http.Request) {
	id, ok := b.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversation_id": id, "message_count": len(b.Messages(id))})
}

func (b *Backend) export(w http.ResponseWriter, r *http.Request) {
	id, ok := b.lookup(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown")
		fmt.Fprintf(w, "# Conversation %d\n", id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "messages": b.Messages(id)})
}

func (b *Backend) searchMessages(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	b.mu.Lock()
	var hits []map[string]any
	for convID, msgs := range b.messages {
		for _, m := range msgs {
			if q != "" && strings.Contains(strings.ToLower(m.Content), q) {
				hits = append(hits, map[string]any{"conversation_id": convID, "content": m.Content})
			}
		}
	}
	b.mu.Unlock()
	if hits == nil {
		hits = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, hits)
}

func (b *Backend) searchConversations(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	hits := []map[string]any{}
	for _, c := range b.Conversations() {
		if q != "" && strings.Contains(strings.ToLower(c.Title), q) {
			hits = append(hits, map[string]any{"id": c.ID, "title": c.Title})
		}
	}
	writeJSON(w, http.StatusOK, hits)
}

func (b *Backend) ask(w http.ResponseWriter, r *http.Request) {
	var req api.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid body"})
		return
	}

	b.mu.Lock()
	answer, streamErr := b.answer, b.streamError
	b.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	flusher, _ := w.(http.Flusher)
	send := func(v any) {
		data, _ := json.Marshal(v)
		fmt.Fprintf(w, "data: %s\n\n", data)
		if flusher != nil {
			flusher.Flush()
		}
	}

	if streamErr != "" {
		send(map[string]string{"type": "error", "message": streamErr})
		return
	}

	b.mu.Lock()
	b.nextMsg += 2
	b.messages[req.ConversationID] = append(b.messages[req.ConversationID],
		api.MessageRecord{ID: b.nextMsg - 1, Role: "user", Content: req.Question},
		api.MessageRecord{ID: b.nextMsg, Role: "assistant", Content: answer},
	)
	b.mu.Unlock()

	half := len([]rune(answer)) / 2
	runes := []rune(answer)
	send(map[string]string{"type": "chunk", "content": string(runes[:half])})
	send(map[string]any{"type": "sources", "sources": []string{"guide.pdf"}})
	send(map[string]string{"type": "chunk", "content": string(runes[half:])})
	send(map[string]string{"type": "done"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
