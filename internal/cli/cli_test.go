// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/dixel/internal/api"
	"github.com/jeranaias/dixel/internal/api/apitest"
	"github.com/jeranaias/dixel/internal/chat"
	"github.com/jeranaias/dixel/internal/config"
	"github.com/jeranaias/dixel/internal/model"
	"github.com/jeranaias/dixel/internal/session"
	"github.com/jeranaias/dixel/internal/store"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

type harness struct {
	t       *testing.T
	backend *apitest.Backend
	home    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	home := t.TempDir()
	t.Setenv("DIXEL_HOME", home)
	for _, key := range []string{"VITE_API_URL", "DIXEL_API_URL", "DIXEL_TIMEOUT", "DIXEL_THEME", "DIXEL_CREDENTIALS", "DIXEL_EXPORT_DIR"} {
		t.Setenv(key, "")
	}
	t.Setenv("NO_COLOR", "1")
	return &harness{t: t, backend: apitest.New(t), home: home}
}

type result struct {
	code   int
	stdout string
	stderr string
}

func (h *harness) runWithInput(input string, args ...string) result {
	h.t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--api-url", h.backend.URL()}, args...)
	code := run(context.Background(), full, strings.NewReader(input), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func (h *harness) run(args ...string) result {
	h.t.Helper()
	return h.runWithInput("", args...)
}

func (h *harness) login() {
	h.t.Helper()
	res := h.run("login", "--email", apitest.Email, "--password", apitest.Password)
	require.Equal(h.t, ExitSuccess, res.code, res.stderr)
}

// jsonData decodes a --json envelope into data.
func jsonData(t *testing.T, stdout string, data any) JSONResponse {
	t.Helper()
	var env JSONResponse
	env.Data = data
	require.NoError(t, json.Unmarshal([]byte(stdout), &env), stdout)
	return env
}

// =============================================================================
// SESSION COMMANDS
// =============================================================================

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)

	res := h.run("login", "--email", apitest.Email, "--password", apitest.Password)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Logged in as "+apitest.UserName)

	res = h.run("whoami")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, apitest.UserName)
	assert.Contains(t, res.stdout, h.backend.URL())

	res = h.run("logout")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Logged out")

	res = h.run("whoami")
	assert.Equal(t, ExitAuthError, res.code)
	assert.Contains(t, res.stderr, "not logged in")
	assert.Contains(t, res.stderr, "dixel login")
}

func TestLogin_PromptsOnStdin(t *testing.T) {
	h := newHarness(t)

	res := h.runWithInput(apitest.Email+"\n"+apitest.Password+"\n", "login")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stderr, "Email: ")
	assert.Contains(t, res.stdout, apitest.UserName)
}

func TestLogin_Failures(t *testing.T) {
	h := newHarness(t)

	res := h.run("login", "--email", apitest.Email, "--password", "wrong-password")
	assert.Equal(t, ExitAuthError, res.code)
	assert.Contains(t, res.stderr, "Email ou mot de passe incorrect")

	res = h.run("login", "--email", "not-an-email", "--password", apitest.Password)
	assert.Equal(t, ExitUsageError, res.code)
	assert.Contains(t, res.stderr, "Format d'email invalide")
}

func TestSignup_RegistersAndLogsIn(t *testing.T) {
	h := newHarness(t)

	res := h.run("--json", "signup", "--name", "Léa", "--email", "lea@example.com", "--password", "objectif50")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	var info sessionInfo
	env := jsonData(t, res.stdout, &info)
	assert.True(t, env.Success)
	assert.True(t, info.Authenticated)
	require.Len(t, h.backend.Signups(), 1)
	assert.Equal(t, "Léa", h.backend.Signups()[0].Name)
}

func TestSignup_ShortPassword(t *testing.T) {
	h := newHarness(t)
	res := h.run("signup", "--name", "Léa", "--email", "lea@example.com", "--password", "abc")
	assert.Equal(t, ExitUsageError, res.code)
	assert.Empty(t, h.backend.Signups())
}

// =============================================================================
// CONVERSATION COMMANDS
// =============================================================================

func TestConversations_ListNewDelete(t *testing.T) {
	h := newHarness(t)
	h.backend.AddConversation("Portrait en studio")
	h.login()

	res := h.run("conversations", "new")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Created conversation")

	res = h.run("--json", "conversations", "list")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	var rows []conversationRow
	jsonData(t, res.stdout, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "Portrait en studio", rows[1].Title)
	assert.True(t, rows[0].Selected)

	// Not a terminal: confirmation cannot be asked.
	res = h.run("conversations", "delete", rows[1].ID)
	assert.Equal(t, ExitUsageError, res.code)
	assert.Len(t, h.backend.Conversations(), 2)

	res = h.run("conversations", "delete", "--yes", rows[1].ID)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Len(t, h.backend.Conversations(), 1)
}

func TestConversationsShow(t *testing.T) {
	h := newHarness(t)
	id := h.backend.AddConversation("Paysage",
		api.MessageRecord{Role: "user", Content: "Quelle ouverture pour un paysage ?"},
		api.MessageRecord{Role: "assistant", Content: "f/8 à f/11 pour la netteté."},
	)
	h.login()

	res := h.run("conversations", "show", fmt.Sprint(id))
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Paysage")
	assert.Contains(t, res.stdout, "You")
	assert.Contains(t, res.stdout, "Dixel")
	assert.Contains(t, res.stdout, "f/8 à f/11")

	res = h.run("conversations", "show", "999")
	assert.Equal(t, ExitNotFoundError, res.code)

	res = h.run("conversations", "show", "abc")
	assert.Equal(t, ExitUsageError, res.code)
}

func TestConversations_RequireLogin(t *testing.T) {
	h := newHarness(t)
	res := h.run("conversations", "list")
	assert.Equal(t, ExitAuthError, res.code)
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_StreamsAnswer(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.run("ask", "Quel", "objectif", "pour", "un", "portrait", "?")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, apitest.DefaultAnswer)
	assert.Equal(t, 1, strings.Count(res.stdout, apitest.DefaultAnswer), "answer printed twice:\n%s", res.stdout)

	convs := h.backend.Conversations()
	require.Len(t, convs, 1)
	msgs := h.backend.Messages(convs[0].ID)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Quel objectif pour un portrait ?", msgs[0].Content)
}

func TestAsk_ReadsStdinAndJSON(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.runWithInput("Réglages pour un coucher de soleil ?\n", "--json", "ask", "--new")
	require.Equal(t, ExitSuccess, res.code, res.stderr)

	var out askResult
	env := jsonData(t, res.stdout, &out)
	assert.True(t, env.Success)
	assert.Equal(t, "Réglages pour un coucher de soleil ?", out.Question)
	assert.Equal(t, apitest.DefaultAnswer, out.Answer)
	assert.NotEmpty(t, out.ConversationID)
}

func TestAsk_InConversation(t *testing.T) {
	h := newHarness(t)
	older := h.backend.AddConversation("Macro")
	h.backend.AddConversation("Astro")
	h.login()

	res := h.run("ask", "-c", fmt.Sprint(older), "Quel objectif macro ?")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Len(t, h.backend.Messages(older), 2)
}

func TestAsk_Errors(t *testing.T) {
	h := newHarness(t)

	res := h.run("ask", "Bonjour")
	assert.Equal(t, ExitAuthError, res.code)

	h.login()
	res = h.run("ask")
	assert.Equal(t, ExitUsageError, res.code)

	h.backend.SetStreamError("modèle indisponible")
	res = h.run("ask", "Bonjour")
	assert.Equal(t, ExitGeneralError, res.code)
	assert.Contains(t, res.stderr, model.ErrorNotice)
}

// =============================================================================
// EXPORT, SEARCH AND STATS
// =============================================================================

func TestExport(t *testing.T) {
	h := newHarness(t)
	id := h.backend.AddConversation("Lumière dorée",
		api.MessageRecord{Role: "user", Content: "Quand shooter ?"},
		api.MessageRecord{Role: "assistant", Content: "Une heure avant le coucher du soleil."},
	)
	h.login()
	outDir := t.TempDir()

	res := h.run("export", fmt.Sprint(id), "--output", outDir)
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "dixel_Lumière_dorée_"), entries[0].Name())
	assert.Equal(t, ".md", filepath.Ext(entries[0].Name()))

	res = h.run("export", fmt.Sprint(id), "--format", "json", "--stdout")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, `"generator"`)
	assert.Contains(t, res.stdout, "Une heure avant le coucher du soleil.")

	res = h.run("export", fmt.Sprint(id), "--server", "--format", "md", "--stdout")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, fmt.Sprintf("# Conversation %d", id))

	res = h.run("export", fmt.Sprint(id), "--format", "pdf")
	assert.Equal(t, ExitUsageError, res.code)
}

func TestSearchAndStats(t *testing.T) {
	h := newHarness(t)
	id := h.backend.AddConversation("Ouverture",
		api.MessageRecord{Role: "assistant", Content: "Une grande ouverture floute l'arrière-plan."},
	)
	h.login()

	res := h.run("search", "ouverture")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "floute")

	res = h.run("search", "--titles", "ouv")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Ouverture")

	res = h.run("search", "introuvable")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "No results")

	res = h.run("stats", fmt.Sprint(id))
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "message_count")
}

// =============================================================================
// HEALTH AND CONFIG
// =============================================================================

func TestHealth(t *testing.T) {
	h := newHarness(t)

	res := h.run("health")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Backend accessible")

	h.backend.SetDown(true)
	res = h.run("--json", "health")
	assert.Equal(t, ExitNetworkError, res.code)
	var row healthRow
	env := jsonData(t, res.stdout, &row)
	assert.True(t, env.Success, "the probe itself succeeded")
	assert.False(t, row.Healthy)
	assert.Empty(t, res.stderr)

	res = h.run("health", "--interval", "10ms", "--watch")
	assert.Equal(t, ExitUsageError, res.code)
}

func TestConfigInitPathShow(t *testing.T) {
	h := newHarness(t)

	res := h.run("config", "path")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	path := strings.TrimSpace(res.stdout)
	assert.Equal(t, filepath.Join(h.home, "config.toml"), path)

	res = h.run("config", "init")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), h.backend.URL())

	res = h.run("config", "init")
	assert.Equal(t, ExitUsageError, res.code)
	res = h.run("config", "init", "--force")
	assert.Equal(t, ExitSuccess, res.code, res.stderr)

	res = h.run("config", "show")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "timeout_secs")
}

func TestConfig_InvalidFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(h.home, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui]\ntheme = \"sepia\"\n"), 0600))

	res := h.run("config", "show")
	assert.Equal(t, ExitConfigError, res.code)
	assert.Contains(t, res.stderr, "ui.theme")
}

// =============================================================================
// REPL
// =============================================================================

func TestREPL_PlainInput(t *testing.T) {
	h := newHarness(t)
	h.login()

	res := h.runWithInput("Bonjour\n/list\n/new\n/frobnicate\n/quit\n", "chat", "--plain")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Signed in as "+apitest.UserName)
	assert.Contains(t, res.stdout, apitest.DefaultAnswer)
	assert.Contains(t, res.stdout, "Started conversation")
	assert.Contains(t, res.stderr, "unknown command")
	assert.Len(t, h.backend.Conversations(), 2)
}

func TestREPL_SignedOut(t *testing.T) {
	h := newHarness(t)

	res := h.runWithInput("Bonjour\n/whoami\n", "chat")
	require.Equal(t, ExitSuccess, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Not signed in")
	assert.Contains(t, res.stderr, "/login")
	assert.Contains(t, res.stderr, "not logged in")
}

// =============================================================================
// STREAM PRINTER
// =============================================================================

func TestStreamPrinter_PrintsOnlyNewText(t *testing.T) {
	now := time.Now()
	id := model.PersistedID(1)
	st := store.New(model.NewConversation(id, "", now))
	var out, status bytes.Buffer

	p := newStreamPrinter(&out, &status, st, false)
	live := model.NewStreamingMessage(now)
	st.AppendMessage(id, live)

	for _, content := range []string{"Un 85mm", "Un 85mm f/1.8", "Un 85mm f/1.8 est idéal."} {
		st.UpdateMessage(id, live.ID, func(m model.Message) model.Message {
			m.Content = content
			return m
		})
		p.update()
	}
	st.UpdateMessage(id, live.ID, func(m model.Message) model.Message {
		m.Status = model.StatusComplete
		return m
	})
	p.Finish()

	assert.Equal(t, "Un 85mm f/1.8 est idéal.\n", out.String())
	assert.Empty(t, status.String())
}

func TestStreamPrinter_ReprintsDifferingFinalAnswer(t *testing.T) {
	now := time.Now()
	id := model.PersistedID(1)
	st := store.New(model.NewConversation(id, "", now))
	var out, status bytes.Buffer

	p := newStreamPrinter(&out, &status, st, false)
	stop := p.Start()
	live := model.NewStreamingMessage(now)
	st.AppendMessage(id, live)
	st.UpdateMessage(id, live.ID, func(m model.Message) model.Message {
		m.Content = "Bonjour wor"
		return m
	})
	p.update()
	st.SetMessages(id, []model.Message{
		{ID: "2", Role: model.RoleAssistant, Content: "Bonjour, world.", Status: model.StatusComplete},
	})
	stop()
	p.Finish()

	assert.Equal(t, "Bonjour wor\n"+dimStyle.Render(finalAnswerLabel)+"\nBonjour, world.\n", out.String())
}

func TestStreamPrinter_IgnoresPreviousAnswer(t *testing.T) {
	now := time.Now()
	id := model.PersistedID(1)
	conv := model.NewConversation(id, "", now).WithMessages([]model.Message{
		{ID: "9", Role: model.RoleAssistant, Content: "ancienne réponse", Status: model.StatusComplete},
	})
	st := store.New(conv)
	var out, status bytes.Buffer

	p := newStreamPrinter(&out, &status, st, false)
	stop := p.Start()
	stop()
	p.Finish()

	assert.Empty(t, out.String())
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", &UsageError{Field: "x"}, ExitUsageError},
		{"input", &session.InputError{Field: "email"}, ExitUsageError},
		{"config", fmt.Errorf("invalid config: %w", config.ValidateErrors{{Field: "ui.theme"}}), ExitConfigError},
		{"not logged in", errNotLoggedIn, ExitAuthError},
		{"unauthorized", fmt.Errorf("list: %w", api.ErrUnauthorized), ExitAuthError},
		{"not found", &NotFoundError{Resource: "conversation"}, ExitNotFoundError},
		{"unknown conversation", fmt.Errorf("select: %w", chat.ErrUnknownConversation), ExitNotFoundError},
		{"deadline", context.DeadlineExceeded, ExitTimeoutError},
		{"canceled", context.Canceled, ExitInterrupted},
		{"transport", &api.TransportError{Op: "GET", Err: errors.New("refused")}, ExitNetworkError},
		{"unhealthy", &reportedError{err: errUnhealthy}, ExitNetworkError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExitCode(tc.err))
		})
	}
}
