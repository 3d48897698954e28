// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeranaias/dixel/internal/app"
	"github.com/jeranaias/dixel/internal/session"
)

type sessionInfo struct {
	User          string `json:"user,omitempty"`
	Authenticated bool   `json:"authenticated"`
	APIURL        string `json:"api_url"`
}

func infoFor(a *app.App, st session.State) sessionInfo {
	return sessionInfo{User: st.UserName, Authenticated: st.Authenticated, APIURL: a.Config.API.URL}
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.openApp(cmd, app.WithoutConversations())
			if err != nil {
				return err
			}
			defer closeApp(a)

			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			if email == "" {
				if email, err = p.Line("Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = p.Password("Mot de passe: "); err != nil {
					return err
				}
			}

			st, err := a.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return opts.emit(cmd, infoFor(a, st), func(w io.Writer) {
				fmt.Fprintln(w, renderStatus(true, "Logged in as "+highlightStyle.Render(st.UserName)))
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when omitted)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func newSignupCmd(opts *rootOptions) *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in with it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.openApp(cmd, app.WithoutConversations())
			if err != nil {
				return err
			}
			defer closeApp(a)

			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			if name == "" {
				if name, err = p.Line("Nom: "); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = p.Line("Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = p.Password("Mot de passe: "); err != nil {
					return err
				}
			}

			st, err := a.Signup(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			return opts.emit(cmd, infoFor(a, st), func(w io.Writer) {
				fmt.Fprintln(w, renderStatus(true, "Account created. Logged in as "+highlightStyle.Render(st.UserName)))
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name (prompted when omitted)")
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email (prompted when omitted)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password, at least 6 characters (prompted when omitted)")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.openApp(cmd, app.WithoutConversations())
			if err != nil {
				return err
			}
			defer closeApp(a)

			a.Logout(cmd.Context())
			return opts.emit(cmd, infoFor(a, a.Gate.State()), func(w io.Writer) {
				fmt.Fprintln(w, renderStatus(true, "Logged out"))
			})
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.openApp(cmd, app.WithoutConversations())
			if err != nil {
				return err
			}
			defer closeApp(a)

			if err := requireSession(a); err != nil {
				return err
			}
			st := a.Gate.State()
			return opts.emit(cmd, infoFor(a, st), func(w io.Writer) {
				fmt.Fprintln(w, renderLabel("User", st.UserName))
				fmt.Fprintln(w, renderLabel("Backend", a.Config.API.URL))
			})
		},
	}
}
