// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/dixel/internal/app"
	"github.com/jeranaias/dixel/internal/config"
)

// Run shows the chat screen until the user quits or ctx ends. The app must
// be initialised; Run does not tear it down.
func Run(ctx context.Context, a *app.App, opts Options) error {
	m := New(ctx, a, opts)
	defer m.Close()

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	if opts.ConfigPath != "" {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			err := config.Watch(watchCtx, opts.ConfigPath, func(cfg *config.Config) {
				p.Send(configReloadedMsg{cfg: cfg})
			})
			if err != nil {
				log.Printf("[ui] config reload disabled: %v", err)
			}
		}()
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
