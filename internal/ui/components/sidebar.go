// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/jeranaias/ember-tui/internal/model"
	"github.com/jeranaias/ember-tui/internal/ui/styles"
	"github.com/jeranaias/ember-tui/internal/util"
)

// =============================================================================
// SESSION SIDEBAR
// =============================================================================

// Sidebar lists stored sessions, most recent first.
type Sidebar struct {
	Theme    *styles.Theme
	Width    int
	Height   int
	Sessions []*model.ChatSession
	Selected int
}

// Render draws the sidebar.
func (s Sidebar) Render() string {
	innerWidth := s.Width - 3
	if innerWidth < 8 {
		innerWidth = 8
	}

	var b strings.Builder
	b.WriteString(s.Theme.SidebarTitle.Render("Sessions"))
	b.WriteString("\n\n")

	if len(s.Sessions) == 0 {
		b.WriteString(s.Theme.SidebarItem.Render("no history yet"))
	}

	visible := s.Height - 4
	if visible < 1 {
		visible = 1
	}
	start := 0
	if s.Selected >= visible {
		start = s.Selected - visible + 1
	}

	for i := start; i < len(s.Sessions) && i < start+visible; i++ {
		title := util.TruncateWidth(s.Sessions[i].DisplayTitle(), innerWidth)
		if i == s.Selected {
			b.WriteString(s.Theme.SidebarSelected.Render("▸ " + title))
		} else {
			b.WriteString(s.Theme.SidebarItem.Render("  " + title))
		}
		b.WriteString("\n")
	}

	return s.Theme.Sidebar.Width(s.Width).Height(s.Height).Render(b.String())
}
