// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jeranaias/dixel/internal/api"
)

// State is the authentication state visible to the rest of the app.
type State struct {
	Token         string
	UserName      string
	Authenticated bool
}

// Gate holds the bearer credential and hands out authenticated clients.
type Gate struct {
	mu    sync.RWMutex
	state State

	base  *api.Client
	creds CredentialStore

	listenMu  sync.Mutex
	listeners []func(State)
}

// NewGate creates an unauthenticated gate. base must not carry a token.
func NewGate(base *api.Client, creds CredentialStore) *Gate {
	return &Gate{base: base, creds: creds}
}

// =============================================================================
// STATE ACCESS
// =============================================================================

// State returns a copy of the current state.
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Token returns the bearer token, "" when logged out.
func (g *Gate) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.Token
}

// Authenticated reports whether a validated token is held.
func (g *Gate) Authenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state.Authenticated
}

// Client returns a client carrying the token. ok is false when there is no
// token; callers treat that as a no-op, not an error.
func (g *Gate) Client() (client *api.Client, ok bool) {
	token := g.Token()
	if token == "" {
		return nil, false
	}
	return g.base.WithToken(token), true
}

// Anonymous returns the client without credentials.
func (g *Gate) Anonymous() *api.Client {
	return g.base
}

// OnChange registers fn to run after every state change.
func (g *Gate) OnChange(fn func(State)) {
	g.listenMu.Lock()
	defer g.listenMu.Unlock()
	g.listeners = append(g.listeners, fn)
}

func (g *Gate) setState(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()

	g.listenMu.Lock()
	listeners := append([]func(State){}, g.listeners...)
	g.listenMu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Restore loads the stored token and validates it with /auth/me. Only a
// 401 or 403 clears the token. Any other failure keeps it for the next
// attempt and is returned.
func (g *Gate) Restore(ctx context.Context) (State, error) {
	token, err := g.creds.Get(ctx)
	if err != nil {
		return State{}, fmt.Errorf("load credential: %w", err)
	}
	if token == "" {
		g.setState(State{})
		return State{}, nil
	}

	user, err := g.base.WithToken(token).Me(ctx)
	if err != nil {
		if !errors.Is(err, api.ErrUnauthorized) {
			g.setState(State{})
			return State{}, fmt.Errorf("validate session: %w", err)
		}
		log.Printf("[session] stored token rejected: %v", err)
		g.forget(ctx)
		return State{}, nil
	}

	s := State{Token: token, UserName: user.Name, Authenticated: true}
	g.setState(s)
	return s, nil
}

// Login authenticates and persists the token.
func (g *Gate) Login(ctx context.Context, email, password string) (State, error) {
	email = strings.TrimSpace(email)
	if err := ValidateLogin(email, password); err != nil {
		return State{}, err
	}

	resp, err := g.base.Login(ctx, email, password)
	if err != nil {
		return State{}, FriendlyError(err)
	}

	if err := g.creds.Set(ctx, resp.AccessToken); err != nil {
		// The session still works for this process.
		log.Printf("[session] could not persist token: %v", err)
	}

	s := State{Token: resp.AccessToken, UserName: resp.User.Name, Authenticated: true}
	g.setState(s)
	return s, nil
}

// Signup registers an account. It does not log in.
func (g *Gate) Signup(ctx context.Context, name, email, password string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if err := ValidateSignup(name, email, password); err != nil {
		return err
	}
	if err := g.base.Signup(ctx, name, email, password); err != nil {
		return FriendlyError(err)
	}
	return nil
}

// Logout forgets the token. It never fails; a credential store error is
// logged.
func (g *Gate) Logout(ctx context.Context) {
	g.forget(ctx)
}

func (g *Gate) forget(ctx context.Context) {
	if err := g.creds.Clear(ctx); err != nil {
		log.Printf("[session] could not clear stored token: %v", err)
	}
	g.setState(State{})
}
