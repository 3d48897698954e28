// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
)

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	err := c.do(ctx, call{
		method:       http.MethodPost,
		path:         "/auth/login",
		body:         Credentials{Email: email, Password: password},
		out:          &out,
		authEndpoint: true,
	})
	if err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &ProtocolError{Status: http.StatusOK, Message: "login response has no access_token"}
	}
	return &out, nil
}

// Signup creates an account. It does not log in.
func (c *Client) Signup(ctx context.Context, name, email, password string) error {
	return c.do(ctx, call{
		method:       http.MethodPost,
		path:         "/auth/signup",
		body:         SignupRequest{Name: name, Email: email, Password: password},
		authEndpoint: true,
	})
}

// Me returns the account behind the current token. An invalid or expired
// token yields an error matching ErrUnauthorized.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, call{method: http.MethodGet, path: "/auth/me", out: &out, auth: true}); err != nil {
		return nil, err
	}
	return &out, nil
}
