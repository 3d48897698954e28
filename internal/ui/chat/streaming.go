// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// defaultMaxFPS caps redraws while an answer streams.
const defaultMaxFPS = 30

// frameLimiter caps how often store changes are redrawn. Chunks can
// arrive far faster than a terminal can repaint; changes inside a frame
// are coalesced into one redraw at the end of it.
type frameLimiter struct {
	interval time.Duration
	last     time.Time
	pending  bool
	now      func() time.Time
}

func newFrameLimiter(maxFPS int) *frameLimiter {
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = defaultMaxFPS
	}
	return &frameLimiter{
		interval: time.Second / time.Duration(maxFPS),
		now:      time.Now,
	}
}

// Change records a store change. It reports whether to redraw now; when
// it does not, the returned command delivers a frameMsg later. Only one
// frame is scheduled at a time.
func (f *frameLimiter) Change() (redraw bool, cmd tea.Cmd) {
	now := f.now()
	if wait := f.interval - now.Sub(f.last); wait > 0 {
		if f.pending {
			return false, nil
		}
		f.pending = true
		return false, tea.Tick(wait, func(time.Time) tea.Msg { return frameMsg{} })
	}
	f.last = now
	return true, nil
}

// Frame reports whether a held-back change should be drawn.
func (f *frameLimiter) Frame() bool {
	if !f.pending {
		return false
	}
	f.pending = false
	f.last = f.now()
	return true
}
