// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ember-tui/internal/provider"
	"github.com/jeranaias/ember-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar summarizes the active provider, toggles and stream state at the
// bottom of the chat view.
type StatusBar struct {
	Theme    *styles.Theme
	Width    int
	Provider provider.Name
	Flags    provider.Flags
	Busy     bool
	Spinner  string
}

// Render draws the status bar at the configured width.
func (s StatusBar) Render() string {
	var left []string

	left = append(left, s.Theme.StatusKey.Render("◉")+" "+s.Theme.StatusValue.Render(s.Provider.DisplayName()))
	left = append(left, s.flag("search", s.Flags.UseSearch))
	left = append(left, s.flag("think", s.Flags.UseDeepThink))

	if s.Busy {
		left = append(left, s.Theme.FlagActive.Render(s.Spinner+" streaming"))
	}

	hints := s.Theme.StatusKey.Render("^S") + " send  " +
		s.Theme.StatusKey.Render("^G") + " search  " +
		s.Theme.StatusKey.Render("^T") + " think  " +
		s.Theme.StatusKey.Render("^P") + " provider  " +
		s.Theme.StatusKey.Render("esc") + " cancel"

	leftStr := strings.Join(left, "  ")
	gap := s.Width - lipgloss.Width(leftStr) - lipgloss.Width(hints) - 2
	if gap < 1 {
		gap = 1
	}

	return s.Theme.StatusBar.Width(s.Width).Render(leftStr + strings.Repeat(" ", gap) + hints)
}

func (s StatusBar) flag(name string, on bool) string {
	if on {
		return s.Theme.FlagActive.Render("● " + name)
	}
	return s.Theme.FlagInactive.Render("○ " + name)
}
