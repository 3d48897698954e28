// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DIXEL_HOME", dir)
	t.Setenv("DIXEL_API_URL", "")
	t.Setenv("VITE_API_URL", "")
	t.Setenv("DIXEL_TIMEOUT", "")
	t.Setenv("DIXEL_THEME", "")
	return dir
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.URL != DefaultAPIURL {
		t.Errorf("API.URL = %q, want %q", cfg.API.URL, DefaultAPIURL)
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Errorf("RequestTimeout() = %v, want 30s", cfg.RequestTimeout())
	}
	if cfg.HealthTimeout() != 5*time.Second {
		t.Errorf("HealthTimeout() = %v, want 5s", cfg.HealthTimeout())
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	content := "[api]\nurl = \"http://backend:9000/\"\ntimeout_secs = 12\n\n[ui]\ntheme = \"light\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.URL != "http://backend:9000" {
		t.Errorf("API.URL = %q", cfg.API.URL)
	}
	if cfg.API.TimeoutSecs != 12 || cfg.UI.Theme != "light" {
		t.Errorf("file values not applied: %+v", cfg)
	}

	t.Setenv("DIXEL_API_URL", "api.example.com")
	t.Setenv("DIXEL_THEME", "DARK")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.URL != "https://api.example.com" {
		t.Errorf("API.URL = %q, want https://api.example.com", cfg.API.URL)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("UI.Theme = %q, want dark", cfg.UI.Theme)
	}
}

func TestApplyEnvOverrides_Precedence(t *testing.T) {
	isolate(t)
	t.Setenv("VITE_API_URL", "https://vite.example")
	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.API.URL != "https://vite.example" {
		t.Errorf("API.URL = %q", cfg.API.URL)
	}

	t.Setenv("DIXEL_API_URL", "http://dixel.example")
	cfg.ApplyEnvOverrides()
	if cfg.API.URL != "http://dixel.example" {
		t.Errorf("DIXEL_API_URL should win, got %q", cfg.API.URL)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DIXEL_API_URL", "")
	os.Unsetenv("DIXEL_API_URL")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DIXEL_API_URL=http://from-dotenv:8001\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.URL != "http://from-dotenv:8001" {
		t.Errorf("API.URL = %q, want value from .env", cfg.API.URL)
	}
	os.Unsetenv("DIXEL_API_URL")
}

func TestNormalizeAPIURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", DefaultAPIURL},
		{"   ", DefaultAPIURL},
		{"http://localhost:8001", "http://localhost:8001"},
		{"https://x.onrender.com/", "https://x.onrender.com"},
		{"x.onrender.com", "https://x.onrender.com"},
		{" http://a//", "http://a"},
	}
	for _, tc := range tests {
		if got := NormalizeAPIURL(tc.in); got != tc.want {
			t.Errorf("NormalizeAPIURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg.API.URL = "ftp://nope"
	cfg.UI.Theme = "neon"
	cfg.Export.Format = "pdf"
	err := cfg.Validate()

	var verrs ValidateErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Validate() error = %v, want ValidateErrors", err)
	}
	if len(verrs) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(verrs), verrs)
	}
}

func TestLoad_InvalidFileRejected(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[ui]\ntheme = \"neon\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Error("Load() accepted an invalid theme")
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.API.URL = "https://saved.example"
	cfg.Export.Format = "json"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("perm = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if loaded.API.URL != "https://saved.example" || loaded.Export.Format != "json" {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { changed <- c })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	cfg := Default()
	cfg.UI.Theme = "light"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-changed:
		if c.UI.Theme != "light" {
			t.Errorf("reloaded theme = %q, want light", c.UI.Theme)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}
}
