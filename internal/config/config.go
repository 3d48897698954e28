// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/dixel/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete dixel configuration.
type Config struct {
	Version string `toml:"version"`

	// Backend connection
	API APIConfig `toml:"api"`

	// Credential storage
	Session SessionConfig `toml:"session"`

	// Terminal presentation
	UI UIConfig `toml:"ui"`

	// Transcript export
	Export ExportConfig `toml:"export"`

	// Backend health probing
	Health HealthConfig `toml:"health"`
}

// APIConfig contains backend connection settings.
type APIConfig struct {
	// URL is the backend base URL, e.g. "http://localhost:8001".
	URL string `toml:"url"`
	// TimeoutSecs bounds auth and CRUD requests. The answer stream is not
	// bounded by it.
	TimeoutSecs int `toml:"timeout_secs"`
}

// SessionConfig contains credential storage settings.
type SessionConfig struct {
	// CredentialPath is the SQLite file holding the bearer token.
	// Empty means ~/.dixel/credentials.db.
	CredentialPath string `toml:"credential_path"`
}

// UIConfig contains terminal presentation settings.
type UIConfig struct {
	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme"`
	// RenderMarkdown renders assistant answers as markdown in the TUI.
	RenderMarkdown bool `toml:"render_markdown"`
	// HistoryFile is the REPL history. Empty means ~/.dixel/history.
	HistoryFile string `toml:"history_file"`
}

// ExportConfig contains transcript export settings.
type ExportConfig struct {
	// OutputDir receives exported files. Empty means the working directory.
	OutputDir string `toml:"output_dir"`
	// Format is "markdown" or "json".
	Format string `toml:"format"`
}

// HealthConfig contains backend probe settings.
type HealthConfig struct {
	// TimeoutSecs bounds a single /health probe.
	TimeoutSecs int `toml:"timeout_secs"`
	// WatchIntervalSecs is the delay between probes in watch mode.
	WatchIntervalSecs int `toml:"watch_interval_secs"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// CurrentVersion is written to new config files.
	CurrentVersion = "1"

	// DefaultAPIURL is used when neither config nor environment set a URL.
	DefaultAPIURL = "http://localhost:8001"

	defaultTimeoutSecs       = 30
	defaultHealthTimeoutSecs = 5
	defaultWatchSecs         = 10
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		API: APIConfig{
			URL:         DefaultAPIURL,
			TimeoutSecs: defaultTimeoutSecs,
		},
		UI: UIConfig{
			Theme:          "auto",
			RenderMarkdown: true,
		},
		Export: ExportConfig{
			Format: "markdown",
		},
		Health: HealthConfig{
			TimeoutSecs:       defaultHealthTimeoutSecs,
			WatchIntervalSecs: defaultWatchSecs,
		},
	}
}

// RequestTimeout returns the auth/CRUD request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSecs) * time.Second
}

// HealthTimeout returns the single-probe timeout.
func (c *Config) HealthTimeout() time.Duration {
	return time.Duration(c.Health.TimeoutSecs) * time.Second
}

// WatchInterval returns the delay between health probes.
func (c *Config) WatchInterval() time.Duration {
	return time.Duration(c.Health.WatchIntervalSecs) * time.Second
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the dixel home directory. DIXEL_HOME overrides the
// default of ~/.dixel.
func ConfigDir() (string, error) {
	if dir := os.Getenv("DIXEL_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".dixel"), nil
}

// ConfigPath returns the path of config.toml.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CredentialPath returns the credential database path, resolving the default.
func (c *Config) CredentialPath() (string, error) {
	if c.Session.CredentialPath != "" {
		return c.Session.CredentialPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "credentials.db"), nil
}

// HistoryPath returns the REPL history path, resolving the default.
func (c *Config) HistoryPath() (string, error) {
	if c.UI.HistoryFile != "" {
		return c.UI.HistoryFile, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history"), nil
}

// LogPath returns the TUI log file path.
func LogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "dixel.log"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads ~/.dixel/config.toml if it exists, then applies .env files
// and environment overrides. A missing file yields the defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath is Load with an explicit config file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	LoadDotEnv()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads .env from the working directory and from the dixel home.
// Variables already present in the environment win. Missing files are
// ignored.
func LoadDotEnv() {
	candidates := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not read %s: %v\n", p, err)
		}
	}
}

// ApplyEnvOverrides applies DIXEL_* variables on top of file values.
func (c *Config) ApplyEnvOverrides() {
	// VITE_API_URL is honoured for deployments that share a .env with the
	// web frontend; DIXEL_API_URL wins when both are set.
	if u := os.Getenv("VITE_API_URL"); u != "" {
		c.API.URL = u
	}
	if u := os.Getenv("DIXEL_API_URL"); u != "" {
		c.API.URL = u
	}

	if v := os.Getenv("DIXEL_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.API.TimeoutSecs = secs
		}
	}

	if theme := os.Getenv("DIXEL_THEME"); theme != "" {
		c.UI.Theme = strings.ToLower(theme)
	}

	if path := os.Getenv("DIXEL_CREDENTIALS"); path != "" {
		c.Session.CredentialPath = path
	}

	if dir := os.Getenv("DIXEL_EXPORT_DIR"); dir != "" {
		c.Export.OutputDir = dir
	}
}

// SetDefaults fills zero values and normalises the API URL.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = CurrentVersion
	}
	c.API.URL = NormalizeAPIURL(c.API.URL)
	if c.API.TimeoutSecs <= 0 {
		c.API.TimeoutSecs = defaultTimeoutSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = "auto"
	}
	if c.Export.Format == "" {
		c.Export.Format = "markdown"
	}
	if c.Health.TimeoutSecs <= 0 {
		c.Health.TimeoutSecs = defaultHealthTimeoutSecs
	}
	if c.Health.WatchIntervalSecs <= 0 {
		c.Health.WatchIntervalSecs = defaultWatchSecs
	}
}

// NormalizeAPIURL trims whitespace and trailing slashes, and adds https://
// when no scheme is given. An empty input yields DefaultAPIURL.
func NormalizeAPIURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return DefaultAPIURL
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return strings.TrimRight(u, "/")
}

// =============================================================================
// SAVING
// =============================================================================

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var sb strings.Builder
	sb.WriteString("# dixel configuration file\n")
	sb.WriteString("# Environment variables DIXEL_API_URL, DIXEL_TIMEOUT and DIXEL_THEME override these values.\n\n")

	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every invalid field.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if !strings.HasPrefix(c.API.URL, "http://") && !strings.HasPrefix(c.API.URL, "https://") {
		errs = append(errs, ValidationError{Field: "api.url", Message: "must start with http:// or https://"})
	}
	if c.API.TimeoutSecs < 1 || c.API.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{Field: "api.timeout_secs", Message: "must be between 1 and 600"})
	}
	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{Field: "ui.theme", Message: fmt.Sprintf("unknown theme %q (auto, dark, light)", c.UI.Theme)})
	}
	switch c.Export.Format {
	case "markdown", "json":
	default:
		errs = append(errs, ValidationError{Field: "export.format", Message: fmt.Sprintf("unknown format %q (markdown, json)", c.Export.Format)})
	}
	if c.Health.TimeoutSecs > 60 {
		errs = append(errs, ValidationError{Field: "health.timeout_secs", Message: "must be at most 60"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// String renders the config as TOML.
func (c *Config) String() string {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(c); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return sb.String()
}
