// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/jeranaias/dixel/internal/api"
	"github.com/jeranaias/dixel/internal/chat"
	"github.com/jeranaias/dixel/internal/config"
	"github.com/jeranaias/dixel/internal/health"
	"github.com/jeranaias/dixel/internal/model"
	"github.com/jeranaias/dixel/internal/session"
	"github.com/jeranaias/dixel/internal/store"
)

// ErrNotInitialized is returned by operations called before Init.
var ErrNotInitialized = errors.New("app not initialized")

// Option configures an App.
type Option func(*App)

// WithCredentialStore replaces the SQLite credential store.
func WithCredentialStore(creds session.CredentialStore) Option {
	return func(a *App) { a.creds = creds }
}

// WithHTTPClient replaces the client used for non-streaming requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *App) { a.httpClient = hc }
}

// WithVerbose logs every API response.
func WithVerbose(v bool) Option {
	return func(a *App) { a.verbose = v }
}

// WithoutConversations skips loading conversations during Init. One-shot
// commands that only need the session use it.
func WithoutConversations() Option {
	return func(a *App) { a.skipLoad = true }
}

// App is the application context.
type App struct {
	Config *config.Config

	Client *api.Client
	Gate   *session.Gate
	Store  *store.Store
	Chat   *chat.Reconciler

	creds      session.CredentialStore
	httpClient *http.Client
	verbose    bool
	skipLoad   bool

	mu          sync.Mutex
	initialized bool
	closers     []io.Closer
}

// New creates an App for cfg. A nil cfg means config.Default().
func New(cfg *config.Config, opts ...Option) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &App{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Init opens the credential store, restores the session and, when signed
// in, loads the user's conversations. A backend that cannot be reached is
// not fatal: Init logs it and leaves the app signed out with the welcome
// conversation. Errors are only returned for local failures.
func (a *App) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.initialized {
		return nil
	}

	client := api.NewClient(a.Config.API.URL).
		WithTimeout(a.Config.RequestTimeout()).
		WithVerbose(a.verbose)
	if a.httpClient != nil {
		client = client.WithHTTPClient(a.httpClient)
	}
	a.Client = client

	if a.creds == nil {
		path, err := a.Config.CredentialPath()
		if err != nil {
			return err
		}
		sqlStore, err := session.OpenSQLiteStore(path)
		if err != nil {
			return fmt.Errorf("open credential store: %w", err)
		}
		a.creds = sqlStore
		a.closers = append(a.closers, sqlStore)
	}

	a.Gate = session.NewGate(client, a.creds)
	a.Store = store.New(model.WelcomeConversation(time.Now()))
	a.Chat = chat.New(a.Store, a.connect)

	a.Gate.OnChange(func(s session.State) {
		if !s.Authenticated {
			a.Chat.Reset()
		}
	})

	if _, err := a.Gate.Restore(ctx); err != nil {
		log.Printf("[app] session not restored: %v", err)
	}

	if a.Gate.Authenticated() && !a.skipLoad {
		if err := a.Chat.Load(ctx); err != nil {
			log.Printf("[app] conversations not loaded: %v", err)
		}
	}

	a.initialized = true
	return nil
}

// Teardown cancels any running answer and releases resources. It is safe
// to call more than once.
func (a *App) Teardown() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Chat != nil {
		a.Chat.Cancel()
		a.Chat.Wait()
	}

	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	a.initialized = false
	return errors.Join(errs...)
}

// connect adapts the gate to the reconciler's Connector.
func (a *App) connect() (chat.Backend, bool) {
	client, ok := a.Gate.Client()
	if !ok {
		return nil, false
	}
	return client, true
}

func (a *App) ready() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.initialized {
		return ErrNotInitialized
	}
	return nil
}

// =============================================================================
// SESSION OPERATIONS
// =============================================================================

// Login signs in and loads the user's conversations.
func (a *App) Login(ctx context.Context, email, password string) (session.State, error) {
	if err := a.ready(); err != nil {
		return session.State{}, err
	}
	st, err := a.Gate.Login(ctx, email, password)
	if err != nil {
		return st, err
	}
	if !a.skipLoad {
		if err := a.Chat.Load(ctx); err != nil {
			log.Printf("[app] conversations not loaded after login: %v", err)
		}
	}
	return st, nil
}

// Signup registers an account and then signs in with it.
func (a *App) Signup(ctx context.Context, name, email, password string) (session.State, error) {
	if err := a.ready(); err != nil {
		return session.State{}, err
	}
	if err := a.Gate.Signup(ctx, name, email, password); err != nil {
		return session.State{}, err
	}
	return a.Login(ctx, email, password)
}

// Logout forgets the session. The store goes back to the welcome
// conversation through the gate's change hook.
func (a *App) Logout(ctx context.Context) {
	if a.ready() != nil {
		return
	}
	a.Gate.Logout(ctx)
}

// Health probes the backend without credentials.
func (a *App) Health(ctx context.Context) health.Result {
	client := a.Client
	if client == nil {
		client = api.NewClient(a.Config.API.URL)
	}
	return health.Probe(ctx, client, a.Config.HealthTimeout())
}
