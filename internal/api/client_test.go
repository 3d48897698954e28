// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/dixel/internal/model"
)

func newTestServer(t *testing.T, h http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// =============================================================================
// AUTH TESTS
// =============================================================================

func TestLogin_Success(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var creds Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "ana@example.com", creds.Email)

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "tok-123",
			"token_type":   "bearer",
			"user":         map[string]any{"name": "Ana"},
		})
	})

	resp, err := client.Login(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", resp.AccessToken)
	assert.Equal(t, "Ana", resp.User.Name)
}

func TestLogin_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "bad credentials",
			status: http.StatusUnauthorized,
			body:   `{"detail":"Email ou mot de passe incorrect"}`,
			check: func(t *testing.T, err error) {
				var aerr *AuthError
				require.ErrorAs(t, err, &aerr)
				assert.Equal(t, "Email ou mot de passe incorrect", aerr.Message)
				assert.ErrorIs(t, err, ErrUnauthorized)
			},
		},
		{
			name:   "validation array",
			status: http.StatusUnprocessableEntity,
			body:   `{"detail":[{"msg":"value is not a valid email address","type":"value_error"},{"msg":"field required","type":"missing"}]}`,
			check: func(t *testing.T, err error) {
				var aerr *AuthError
				require.ErrorAs(t, err, &aerr)
				assert.Equal(t, "value is not a valid email address; field required", aerr.Message)
			},
		},
		{
			name:   "html page",
			status: http.StatusBadGateway,
			body:   "<!DOCTYPE html><html><body>Bad gateway</body></html>",
			check: func(t *testing.T, err error) {
				var perr *ProtocolError
				require.ErrorAs(t, err, &perr)
				assert.True(t, perr.HTML)
				assert.Contains(t, perr.Message, "HTML")
			},
		},
		{
			name:   "server down without detail",
			status: http.StatusServiceUnavailable,
			body:   `{}`,
			check: func(t *testing.T, err error) {
				var serr *ServerError
				require.ErrorAs(t, err, &serr)
				assert.Equal(t, StatusMessage(503, ""), serr.Message)
			},
		},
		{
			name:   "5xx with detail stays server error",
			status: http.StatusInternalServerError,
			body:   `{"detail":"db locked"}`,
			check: func(t *testing.T, err error) {
				var serr *ServerError
				require.ErrorAs(t, err, &serr)
				assert.Equal(t, "db locked", serr.Detail)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := client.Login(context.Background(), "a@b.c", "secret1")
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestLogin_HTMLOnSuccessStatus(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html><body>frontend index</body></html>")
	})
	_, err := client.Login(context.Background(), "a@b.c", "secret1")
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.HTML)
}

func TestMe_Unauthorized(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer stale", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token invalide"})
	})

	_, err := client.WithToken("stale").Me(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAuthenticatedCallsRequireToken(t *testing.T) {
	called := false
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := client.ListConversations(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
	_, err = client.AskStream(context.Background(), 1, "q")
	assert.ErrorIs(t, err, ErrNoToken)
	assert.False(t, called)
}

func TestWithToken_DoesNotMutateReceiver(t *testing.T) {
	base := NewClient("http://x")
	authed := base.WithToken("t")
	assert.False(t, base.HasToken())
	assert.True(t, authed.HasToken())
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversations_RoundTrip(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/conversations":
			writeJSON(w, 200, []map[string]any{{"id": 7, "title": "Golden hour", "created_at": "2025-03-01T10:00:00"}})
		case r.Method == http.MethodPost && r.URL.Path == "/conversations":
			writeJSON(w, 200, map[string]any{"id": 8, "title": "New", "created_at": "2025-03-02T10:00:00Z"})
		case r.Method == http.MethodGet && r.URL.Path == "/conversations/7":
			writeJSON(w, 200, map[string]any{"id": 7, "title": "Golden hour", "created_at": "2025-03-01T10:00:00"})
		case r.Method == http.MethodGet && r.URL.Path == "/conversations/9":
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Not your conversation"})
		case r.Method == http.MethodDelete && r.URL.Path == "/conversations/7":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodGet && r.URL.Path == "/conversations/7/messages":
			writeJSON(w, 200, []map[string]any{
				{"id": 1, "role": "user", "content": "ISO?", "created_at": "2025-03-01 10:00:01.123456"},
				{"id": 2, "role": "assistant", "content": "Use 100.", "image_url": nil, "created_at": "2025-03-01T10:00:02"},
			})
		default:
			http.NotFound(w, r)
		}
	})
	client = client.WithToken("tok")
	ctx := context.Background()

	convs, err := client.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, model.PersistedID(7), convs[0].ToModel().ID)
	assert.Equal(t, 2025, convs[0].CreatedAt.Year())

	one, err := client.GetConversation(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Golden hour", one.Title)
	_, err = client.GetConversation(ctx, 9)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = client.GetConversation(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := client.CreateConversation(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), created.ID)

	msgs, err := client.ListMessages(ctx, 7)
	require.NoError(t, err)
	converted := MessagesToModel(msgs)
	require.Len(t, converted, 2)
	assert.Equal(t, "1", converted[0].ID)
	assert.Equal(t, model.RoleAssistant, converted[1].Role)
	assert.Equal(t, model.StatusComplete, converted[1].Status)
	assert.Equal(t, 1, converted[1].Timestamp.Day())

	require.NoError(t, client.DeleteConversation(ctx, 7))

	err = client.DeleteConversation(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

// =============================================================================
// STREAM TESTS
// =============================================================================

func TestAskStream_ReturnsBody(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req AskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(3), req.ConversationID)
		assert.Equal(t, "Quel objectif ?", req.Question)
		assert.False(t, req.ForceRebuild)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"type\":\"chunk\",\"content\":\"50mm\"}\n\ndata: {\"type\":\"done\"}\n\n")
	})

	body, err := client.WithToken("tok").AskStream(context.Background(), 3, "Quel objectif ?")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"content":"50mm"`)
}

func TestAskStream_NonSuccessStatus(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.WithToken("tok").AskStream(context.Background(), 3, "q")
	var serr *ServerError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 500, serr.Status)
}

// =============================================================================
// TRANSPORT TESTS
// =============================================================================

func TestTransportError_ServerGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	client := NewClient(srv.URL)
	srv.Close()

	_, err := client.Health(context.Background())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
}

func TestTransportError_Timeout(t *testing.T) {
	release := make(chan struct{})
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	_, err := client.WithTimeout(50 * time.Millisecond).Health(context.Background())
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.True(t, terr.Timeout())
}

func TestHealth_KeepsExtraFields(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, 200, map[string]any{"status": "healthy", "version": "1.2.0"})
	})

	h, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.Contains(t, h.Extra, "version")
}

// =============================================================================
// EXTRAS TESTS
// =============================================================================

func TestExportAndSearch(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/conversations/4/export":
			assert.Equal(t, "markdown", r.URL.Query().Get("format"))
			w.Header().Set("Content-Type", "text/markdown")
			_, _ = io.WriteString(w, "# Export\n")
		case "/search/messages":
			assert.Equal(t, "bokeh", r.URL.Query().Get("q"))
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			writeJSON(w, 200, []map[string]any{{"conversation_id": 4, "content": "bokeh tips"}})
		case "/conversations/4/statistics":
			writeJSON(w, 200, map[string]any{"message_count": 12})
		default:
			http.NotFound(w, r)
		}
	})
	client = client.WithToken("tok")
	ctx := context.Background()

	exp, err := client.ExportConversation(ctx, 4, "markdown")
	require.NoError(t, err)
	assert.Equal(t, "# Export\n", string(exp.Data))
	assert.Equal(t, "text/markdown", exp.ContentType)

	hits, err := client.SearchMessages(ctx, "bokeh", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "bokeh tips", hits[0]["content"])

	stats, err := client.Statistics(ctx, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 12, stats["message_count"])
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestStatusMessage(t *testing.T) {
	for _, status := range []int{404, 500, 502, 503, 504} {
		assert.NotContains(t, StatusMessage(status, ""), "Erreur "+http.StatusText(status))
	}
	assert.Contains(t, StatusMessage(418, "I'm a teapot"), "Erreur 418: I'm a teapot")
}

func TestIsHTML(t *testing.T) {
	assert.True(t, IsHTML([]byte("  <!DOCTYPE html>")))
	assert.True(t, IsHTML([]byte("<html>")))
	assert.False(t, IsHTML([]byte(`{"detail":"<html>"}`)))
}

func TestTimestamp_Formats(t *testing.T) {
	for _, in := range []string{
		`"2025-03-01T10:00:00Z"`,
		`"2025-03-01T10:00:00.123+02:00"`,
		`"2025-03-01T10:00:00.123456"`,
		`"2025-03-01 10:00:00"`,
	} {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(in), &ts), in)
		assert.Equal(t, 2025, ts.Year(), in)
	}

	var ts Timestamp
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.True(t, ts.IsZero())
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
}

func TestErrorsAreDistinguishable(t *testing.T) {
	var err error = &ServerError{Status: 404, Message: "x"}
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrUnauthorized))
}
