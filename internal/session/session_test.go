// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/dixel/internal/api"
)

// fakeAuth serves /auth/* with a single valid token.
func fakeAuth(t *testing.T, validToken string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds api.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Email ou mot de passe incorrect"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": validToken,
			"user":         map[string]string{"name": "Ana"},
		})
	})
	mux.HandleFunc("/auth/signup", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+validToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "Ana"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// =============================================================================
// GATE TESTS
// =============================================================================

func TestGate_RestoreValidToken(t *testing.T) {
	srv := fakeAuth(t, "good")
	creds := NewMemoryStore("good")
	g := NewGate(api.NewClient(srv.URL), creds)

	s, err := g.Restore(context.Background())
	require.NoError(t, err)
	assert.True(t, s.Authenticated)
	assert.Equal(t, "Ana", s.UserName)

	client, ok := g.Client()
	require.True(t, ok)
	assert.True(t, client.HasToken())
	assert.False(t, g.Anonymous().HasToken())
}

func TestGate_RestoreInvalidTokenClears(t *testing.T) {
	srv := fakeAuth(t, "good")
	creds := NewMemoryStore("expired")
	g := NewGate(api.NewClient(srv.URL), creds)

	s, err := g.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Authenticated)

	stored, _ := creds.Get(context.Background())
	assert.Empty(t, stored)
	_, ok := g.Client()
	assert.False(t, ok)
}

func TestGate_RestoreBackendDownKeepsToken(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	creds := NewMemoryStore("good")
	g := NewGate(api.NewClient(url), creds)

	_, err := g.Restore(context.Background())
	require.Error(t, err)
	assert.False(t, g.Authenticated())

	stored, _ := creds.Get(context.Background())
	assert.Equal(t, "good", stored)
}

func TestGate_RestoreServerErrorKeepsToken(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"html 503", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("<!DOCTYPE html><html><body>Service Unavailable</body></html>"))
		}},
		{"json 502", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "upstream"})
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.h)
			t.Cleanup(srv.Close)
			creds := NewMemoryStore("good")
			g := NewGate(api.NewClient(srv.URL), creds)

			_, err := g.Restore(context.Background())
			require.Error(t, err)
			assert.False(t, g.Authenticated())

			stored, _ := creds.Get(context.Background())
			assert.Equal(t, "good", stored)
		})
	}
}

func TestGate_RestoreForbiddenClears(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)
	creds := NewMemoryStore("revoked")
	g := NewGate(api.NewClient(srv.URL), creds)

	_, err := g.Restore(context.Background())
	require.NoError(t, err)
	stored, _ := creds.Get(context.Background())
	assert.Empty(t, stored)
}

func TestGate_RestoreNoToken(t *testing.T) {
	g := NewGate(api.NewClient("http://unused.invalid"), NewMemoryStore(""))
	s, err := g.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Authenticated)
}

func TestGate_LoginPersistsAndLogoutClears(t *testing.T) {
	srv := fakeAuth(t, "fresh")
	creds := NewMemoryStore("")
	g := NewGate(api.NewClient(srv.URL), creds)

	var seen []State
	g.OnChange(func(s State) { seen = append(seen, s) })

	s, err := g.Login(context.Background(), " ana@example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "fresh", s.Token)
	stored, _ := creds.Get(context.Background())
	assert.Equal(t, "fresh", stored)

	g.Logout(context.Background())
	assert.False(t, g.Authenticated())
	stored, _ = creds.Get(context.Background())
	assert.Empty(t, stored)

	require.Len(t, seen, 2)
	assert.True(t, seen[0].Authenticated)
	assert.False(t, seen[1].Authenticated)
}

func TestGate_LoginRejected(t *testing.T) {
	srv := fakeAuth(t, "fresh")
	g := NewGate(api.NewClient(srv.URL), NewMemoryStore(""))

	_, err := g.Login(context.Background(), "ana@example.com", "wrong-pass")
	var aerr *api.AuthError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "Email ou mot de passe incorrect", aerr.Message)
	assert.False(t, g.Authenticated())
}

func TestGate_ValidationShortCircuits(t *testing.T) {
	g := NewGate(api.NewClient("http://unused.invalid"), NewMemoryStore(""))

	_, err := g.Login(context.Background(), "not-an-email", "secret1")
	var ierr *InputError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "email", ierr.Field)

	err = g.Signup(context.Background(), "Ana", "ana@example.com", "12345")
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "password", ierr.Field)
}

func TestGate_Signup(t *testing.T) {
	srv := fakeAuth(t, "x")
	g := NewGate(api.NewClient(srv.URL), NewMemoryStore(""))
	require.NoError(t, g.Signup(context.Background(), "Ana", "ana@example.com", "secret1"))
	assert.False(t, g.Authenticated())
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "first.last@studio.photo"}
	invalid := []string{"", "a@b", "a b@c.d", "@b.c", "a@.c"}
	for _, e := range valid {
		assert.True(t, ValidEmail(e), e)
	}
	for _, e := range invalid {
		assert.False(t, ValidEmail(e), e)
	}
}

func TestFriendlyError(t *testing.T) {
	err := FriendlyError(&api.AuthError{Status: 422, Message: "value is not a valid email address"})
	assert.Contains(t, err.Error(), "Format d'email invalide")

	orig := &api.AuthError{Status: 400, Message: "Email déjà utilisé"}
	assert.Same(t, orig, FriendlyError(orig))
}

// =============================================================================
// SQLITE STORE TESTS
// =============================================================================

func TestSQLiteStore_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds", "credentials.db")
	ctx := context.Background()

	store, err := OpenSQLiteStore(path)
	require.NoError(t, err)

	token, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Set(ctx, "first"))
	require.NoError(t, store.Set(ctx, "second"))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	token, err = reopened.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", token)

	require.NoError(t, reopened.Clear(ctx))
	token, err = reopened.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}
