// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ember-tui/internal/ui/styles"
)

// =============================================================================
// WELCOME SCREEN
// =============================================================================

const emberMark = `
  ███████╗███╗   ███╗██████╗ ███████╗██████╗
  ██╔════╝████╗ ████║██╔══██╗██╔════╝██╔══██╗
  █████╗  ██╔████╔██║██████╔╝█████╗  ██████╔╝
  ██╔══╝  ██║╚██╔╝██║██╔══██╗██╔══╝  ██╔══██╗
  ███████╗██║ ╚═╝ ██║██████╔╝███████╗██║  ██║
  ╚══════╝╚═╝     ╚═╝╚═════╝ ╚══════╝╚═╝  ╚═╝`

// Welcome renders the empty-session greeting.
func Welcome(theme *styles.Theme, width int) string {
	mark := lipgloss.NewStyle().Foreground(styles.Ember).Render(strings.TrimPrefix(emberMark, "\n"))

	sub := theme.HeaderTitle.Render("Type a message to start a conversation.")
	hints := theme.StatusBar.Render("/attach <path> adds files · ^G toggles search · ^T toggles deep thinking")

	body := mark + "\n\n" + sub + "\n" + hints
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, body)
}
