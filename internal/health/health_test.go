// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/dixel/internal/api"
)

func TestProbe_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","version":"2.1"}`))
	}))
	defer srv.Close()

	res := Probe(context.Background(), api.NewClient(srv.URL), time.Second)
	assert.True(t, res.Healthy)
	assert.Equal(t, KindHealthy, res.Kind)
	assert.Equal(t, MessageHealthy, res.Message)
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, srv.URL+"/health", res.URL)
	assert.Empty(t, res.Detail())
}

func TestProbe_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	res := Probe(context.Background(), api.NewClient(srv.URL), 50*time.Millisecond)
	assert.False(t, res.Healthy)
	assert.Equal(t, KindTimeout, res.Kind)
	assert.Contains(t, res.Message, "timeout")
	require.Len(t, res.Suggestions(), 2)
	assert.Contains(t, res.Detail(), "Attendez quelques secondes")
}

func TestProbe_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := Probe(context.Background(), api.NewClient(url), time.Second)
	assert.False(t, res.Healthy)
	assert.Equal(t, KindUnreachable, res.Kind)
	assert.Equal(t, MessageUnreachable, res.Message)
	assert.Contains(t, res.Detail(), "déployé et accessible")
}

func TestProbe_BadStatusAndHTML(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    Kind
		message string
	}{
		{name: "503", status: 503, body: `{"detail":"down"}`, kind: KindBadStatus, message: api.StatusMessage(503, "")},
		{name: "html page", status: 200, body: "<!DOCTYPE html><html></html>", kind: KindBadStatus},
		{name: "garbage", status: 200, body: "{not json", kind: KindInvalidResponse},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			res := Probe(context.Background(), api.NewClient(srv.URL), time.Second)
			assert.False(t, res.Healthy)
			assert.Equal(t, tc.kind, res.Kind)
			assert.NotEmpty(t, res.Message)
			if tc.message != "" {
				assert.Equal(t, tc.message, res.Message)
			}
			assert.Empty(t, res.Suggestions())
		})
	}
}

func TestWatch_ProbesUntilCancelled(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var results atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, api.NewClient(srv.URL), 10*time.Millisecond, time.Second, func(r Result) {
			assert.True(t, r.Healthy)
			if results.Add(1) == 3 {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.GreaterOrEqual(t, hits.Load(), int32(3))
}

func TestWatch_RejectsZeroInterval(t *testing.T) {
	err := Watch(context.Background(), api.NewClient("http://localhost"), 0, time.Second, func(Result) {})
	assert.Error(t, err)
}
