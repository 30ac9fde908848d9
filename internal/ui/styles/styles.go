// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the ember TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// COLOR PALETTE
// =============================================================================

var (
	// Base surface colors
	Surface    = lipgloss.AdaptiveColor{Light: "#FAFAFA", Dark: "#1E1E2E"}
	SurfaceDim = lipgloss.AdaptiveColor{Light: "#EEEEEE", Dark: "#181825"}
	Overlay    = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#313244"}
	OverlayDim = lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#26263A"}

	// Text colors
	Text      = lipgloss.AdaptiveColor{Light: "#2E2E2E", Dark: "#CDD6F4"}
	TextMuted = lipgloss.AdaptiveColor{Light: "#8E8E8E", Dark: "#6C7086"}

	// Accent colors
	Ember  = lipgloss.AdaptiveColor{Light: "#D65D0E", Dark: "#FAB387"}
	Blue   = lipgloss.AdaptiveColor{Light: "#1E66F5", Dark: "#89B4FA"}
	Green  = lipgloss.AdaptiveColor{Light: "#40A02B", Dark: "#A6E3A1"}
	Red    = lipgloss.AdaptiveColor{Light: "#D20F39", Dark: "#F38BA8"}
	Yellow = lipgloss.AdaptiveColor{Light: "#DF8E1D", Dark: "#F9E2AF"}
	Cyan   = lipgloss.AdaptiveColor{Light: "#179299", Dark: "#94E2D5"}
	Mauve  = lipgloss.AdaptiveColor{Light: "#8839EF", Dark: "#CBA6F7"}
)

// =============================================================================
// THEME
// =============================================================================

// Theme holds the styled components for the application. It detects the
// terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// Header
	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderTitle lipgloss.Style

	// Message rendering
	UserLabel     lipgloss.Style
	ModelLabel    lipgloss.Style
	UserText      lipgloss.Style
	ModelText     lipgloss.Style
	ThoughtBlock  lipgloss.Style
	ThoughtLabel  lipgloss.Style
	ErrorText     lipgloss.Style
	PendingDots   lipgloss.Style
	SourceLink    lipgloss.Style
	SourceHeading lipgloss.Style

	// Attachments
	AttachmentChip lipgloss.Style

	// Input area
	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style

	// Status bar
	StatusBar    lipgloss.Style
	StatusKey    lipgloss.Style
	StatusValue  lipgloss.Style
	FlagActive   lipgloss.Style
	FlagInactive lipgloss.Style

	// Sidebar
	Sidebar         lipgloss.Style
	SidebarTitle    lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style
}

// NewTheme builds the theme for the given darkness preference.
func NewTheme(dark bool) *Theme {
	lipgloss.SetHasDarkBackground(dark)

	t := &Theme{
		IsDark:       dark,
		ColorProfile: termenv.ColorProfile(),
	}

	t.Header = lipgloss.NewStyle().
		Padding(0, 1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay)
	t.HeaderBrand = lipgloss.NewStyle().Foreground(Ember).Bold(true)
	t.HeaderTitle = lipgloss.NewStyle().Foreground(TextMuted)

	t.UserLabel = lipgloss.NewStyle().Foreground(Blue).Bold(true)
	t.ModelLabel = lipgloss.NewStyle().Foreground(Ember).Bold(true)
	t.UserText = lipgloss.NewStyle().Foreground(Text)
	t.ModelText = lipgloss.NewStyle().Foreground(Text)
	t.ThoughtBlock = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Overlay).
		PaddingLeft(1)
	t.ThoughtLabel = lipgloss.NewStyle().Foreground(Mauve).Bold(true)
	t.ErrorText = lipgloss.NewStyle().Foreground(Red)
	t.PendingDots = lipgloss.NewStyle().Foreground(TextMuted)
	t.SourceLink = lipgloss.NewStyle().Foreground(Cyan).Underline(true)
	t.SourceHeading = lipgloss.NewStyle().Foreground(TextMuted).Bold(true)

	t.AttachmentChip = lipgloss.NewStyle().
		Foreground(Text).
		Background(OverlayDim).
		Padding(0, 1)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Ember).Bold(true)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(SurfaceDim).
		Padding(0, 1)
	t.StatusKey = lipgloss.NewStyle().Foreground(Yellow).Bold(true)
	t.StatusValue = lipgloss.NewStyle().Foreground(Text)
	t.FlagActive = lipgloss.NewStyle().Foreground(Green).Bold(true)
	t.FlagInactive = lipgloss.NewStyle().Foreground(TextMuted)

	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.SidebarTitle = lipgloss.NewStyle().Foreground(Ember).Bold(true)
	t.SidebarItem = lipgloss.NewStyle().Foreground(TextMuted)
	t.SidebarSelected = lipgloss.NewStyle().Foreground(Text).Background(Overlay).Bold(true)

	return t
}

// DefaultTheme builds a theme from the detected terminal background.
func DefaultTheme() *Theme {
	return NewTheme(termenv.HasDarkBackground())
}
