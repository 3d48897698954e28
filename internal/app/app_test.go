// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/dixel/internal/api"
	"github.com/jeranaias/dixel/internal/api/apitest"
	"github.com/jeranaias/dixel/internal/chat"
	"github.com/jeranaias/dixel/internal/config"
	"github.com/jeranaias/dixel/internal/model"
	"github.com/jeranaias/dixel/internal/session"
)

func testConfig(t *testing.T, url string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.API.URL = url
	cfg.Session.CredentialPath = filepath.Join(t.TempDir(), "credentials.db")
	return cfg
}

func newApp(t *testing.T, b *apitest.Backend, creds session.CredentialStore, opts ...Option) *App {
	t.Helper()
	if creds != nil {
		opts = append(opts, WithCredentialStore(creds))
	}
	a := New(testConfig(t, b.URL()), opts...)
	require.NoError(t, a.Init(context.Background()))
	t.Cleanup(func() { _ = a.Teardown() })
	return a
}

func TestInit_SignedOutShowsWelcome(t *testing.T) {
	b := apitest.New(t)
	a := newApp(t, b, session.NewMemoryStore(""))

	assert.False(t, a.Gate.Authenticated())
	convs := a.Store.Snapshot()
	require.Len(t, convs, 1)
	assert.Equal(t, model.LocalID(model.WelcomeKey), convs[0].ID)
	assert.Equal(t, model.WelcomeText, convs[0].Messages[0].Content)
}

func TestInit_RestoresSessionAndLoads(t *testing.T) {
	b := apitest.New(t)
	id := b.AddConversation("Portraits", api.MessageRecord{Role: "user", Content: "hi"})

	a := newApp(t, b, session.NewMemoryStore(apitest.Token))

	assert.True(t, a.Gate.Authenticated())
	assert.Equal(t, apitest.UserName, a.Gate.State().UserName)
	sel, ok := a.Store.Selected()
	require.True(t, ok)
	assert.Equal(t, model.PersistedID(id), sel.ID)
	assert.Len(t, sel.Messages, 1)
}

func TestInit_ExpiredTokenCleared(t *testing.T) {
	b := apitest.New(t)
	creds := session.NewMemoryStore("stale")
	a := newApp(t, b, creds)

	assert.False(t, a.Gate.Authenticated())
	token, err := creds.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestInit_BackendDownKeepsTokenAndStartsSignedOut(t *testing.T) {
	b := apitest.New(t)
	url := b.URL()
	b.Server.Close()

	creds := session.NewMemoryStore(apitest.Token)
	a := New(testConfig(t, url), WithCredentialStore(creds))
	require.NoError(t, a.Init(context.Background()))
	defer a.Teardown()

	assert.False(t, a.Gate.Authenticated())
	token, _ := creds.Get(context.Background())
	assert.Equal(t, apitest.Token, token)
}

func TestInit_OpensSQLiteCredentials(t *testing.T) {
	b := apitest.New(t)
	cfg := testConfig(t, b.URL())

	a := New(cfg)
	require.NoError(t, a.Init(context.Background()))
	_, err := a.Login(context.Background(), apitest.Email, apitest.Password)
	require.NoError(t, err)
	require.NoError(t, a.Teardown())

	// A second process picks the token up from disk.
	again := New(cfg)
	require.NoError(t, again.Init(context.Background()))
	defer again.Teardown()
	assert.True(t, again.Gate.Authenticated())
}

func TestLogin_LoadsConversations(t *testing.T) {
	b := apitest.New(t)
	a := newApp(t, b, session.NewMemoryStore(""))

	st, err := a.Login(context.Background(), apitest.Email, apitest.Password)
	require.NoError(t, err)
	assert.True(t, st.Authenticated)

	// Empty account: one conversation is created and welcomed.
	require.Len(t, b.Conversations(), 1)
	sel, ok := a.Store.Selected()
	require.True(t, ok)
	assert.True(t, sel.ID.IsPersisted())
}

func TestLogin_WrongPassword(t *testing.T) {
	b := apitest.New(t)
	a := newApp(t, b, session.NewMemoryStore(""))

	_, err := a.Login(context.Background(), apitest.Email, "wrong-password")
	require.Error(t, err)
	assert.False(t, a.Gate.Authenticated())
}

func TestSignup_ThenLogsIn(t *testing.T) {
	b := apitest.New(t)
	a := newApp(t, b, session.NewMemoryStore(""))

	st, err := a.Signup(context.Background(), "Léa", "lea@example.com", "secret9")
	require.NoError(t, err)
	assert.True(t, st.Authenticated)
	require.Len(t, b.Signups(), 1)
	assert.Equal(t, "Léa", b.Signups()[0].Name)
}

func TestLogout_ResetsStore(t *testing.T) {
	b := apitest.New(t)
	b.AddConversation("Old")
	creds := session.NewMemoryStore(apitest.Token)
	a := newApp(t, b, creds)
	require.True(t, a.Store.SelectedID().IsPersisted())

	a.Logout(context.Background())

	assert.False(t, a.Gate.Authenticated())
	assert.Equal(t, model.LocalID(model.WelcomeKey), a.Store.SelectedID())
	token, _ := creds.Get(context.Background())
	assert.Empty(t, token)
}

func TestSubmit_EndToEnd(t *testing.T) {
	b := apitest.New(t)
	a := newApp(t, b, session.NewMemoryStore(""))
	_, err := a.Login(context.Background(), apitest.Email, apitest.Password)
	require.NoError(t, err)

	require.NoError(t, a.Chat.Submit(context.Background(), "Quel objectif pour un portrait ?", ""))

	sel, _ := a.Store.Selected()
	last, ok := sel.LastMessage()
	require.True(t, ok)
	assert.Equal(t, apitest.DefaultAnswer, last.Content)
	assert.Equal(t, model.StatusComplete, last.Status)
	assert.Equal(t, chat.Idle, a.Chat.State())

	n, _ := sel.ID.Number()
	assert.Len(t, b.Messages(n), 2)
}

func TestSubmit_StreamErrorShowsNotice(t *testing.T) {
	b := apitest.New(t)
	b.SetStreamError("LLM indisponible")
	a := newApp(t, b, session.NewMemoryStore(apitest.Token))

	err := a.Chat.Submit(context.Background(), "q", "")
	require.Error(t, err)

	sel, _ := a.Store.Selected()
	last, _ := sel.LastMessage()
	assert.Equal(t, model.ErrorNotice, last.Content)
	assert.Equal(t, chat.Errored, a.Chat.State())
}

func TestHealth(t *testing.T) {
	b := apitest.New(t)
	a := newApp(t, b, session.NewMemoryStore(""))

	assert.True(t, a.Health(context.Background()).Healthy)

	b.SetDown(true)
	res := a.Health(context.Background())
	assert.False(t, res.Healthy)
}

func TestOperationsBeforeInit(t *testing.T) {
	a := New(nil)
	_, err := a.Login(context.Background(), apitest.Email, apitest.Password)
	assert.ErrorIs(t, err, ErrNotInitialized)
	a.Logout(context.Background())
	assert.NoError(t, a.Teardown())
}
