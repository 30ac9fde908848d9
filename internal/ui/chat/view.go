// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/ember-tui/internal/model"
	"github.com/jeranaias/ember-tui/internal/think"
	"github.com/jeranaias/ember-tui/internal/ui/components"
)

const sidebarWidth = 30

// =============================================================================
// LAYOUT
// =============================================================================

// layout recomputes widget dimensions after a resize or sidebar toggle.
func (m *Model) layout() {
	contentWidth := m.width
	if m.showSidebar {
		contentWidth -= sidebarWidth
	}
	if contentWidth < 20 {
		contentWidth = 20
	}

	// header + input box + status bar
	chromeHeight := 2 + 5 + 1
	viewportHeight := m.height - chromeHeight
	if viewportHeight < 3 {
		viewportHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(contentWidth, viewportHeight)
	} else {
		m.viewport.Width = contentWidth
		m.viewport.Height = viewportHeight
	}
	m.input.SetWidth(contentWidth - 4)
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}

	header := m.renderHeader()
	content := m.viewport.View()

	if m.showSidebar {
		sidebar := components.Sidebar{
			Theme:    m.theme,
			Width:    sidebarWidth,
			Height:   m.viewport.Height,
			Sessions: m.sessions,
			Selected: m.selected,
		}.Render()
		content = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, content)
	}

	var extras []string
	if len(m.pending) > 0 {
		extras = append(extras, components.AttachmentRow(m.theme, m.pending))
	}
	for _, notice := range m.notices {
		extras = append(extras, m.theme.ErrorText.Render(notice))
	}

	input := m.theme.InputContainer.Width(m.width - 2).Render(
		m.theme.InputPrompt.Render("❯ ") + m.input.View())

	status := components.StatusBar{
		Theme:    m.theme,
		Width:    m.width,
		Provider: m.engine.ActiveProvider(),
		Flags:    m.flags,
		Busy:     m.streaming,
		Spinner:  m.spin.View(),
	}.Render()

	sections := []string{header, content}
	sections = append(sections, extras...)
	sections = append(sections, input, status)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := "New Chat"
	if m.current != nil {
		title = m.current.DisplayTitle()
	}
	return m.theme.Header.Width(m.width).Render(
		m.theme.HeaderBrand.Render("ember") + "  " + m.theme.HeaderTitle.Render(title))
}

// refreshViewport re-renders the transcript into the viewport and follows
// the tail.
func (m *Model) refreshViewport() {
	if m.viewport.Width == 0 {
		return
	}
	if m.current == nil || m.current.IsEmpty() {
		m.viewport.SetContent(components.Welcome(m.theme, m.viewport.Width))
		return
	}

	var blocks []string
	for _, msg := range m.current.History() {
		blocks = append(blocks, m.renderMessage(msg))
	}
	m.viewport.SetContent(strings.Join(blocks, "\n\n"))
	m.viewport.GotoBottom()
}

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

// renderMessage draws one transcript entry.
func (m *Model) renderMessage(msg *model.Message) string {
	if msg.Role == model.RoleUser {
		return m.renderUserMessage(msg)
	}
	return m.renderModelMessage(msg)
}

func (m *Model) renderUserMessage(msg *model.Message) string {
	var b strings.Builder
	b.WriteString(m.theme.UserLabel.Render("You"))
	b.WriteString("\n")
	b.WriteString(m.theme.UserText.Render(msg.Text))
	if row := components.AttachmentRow(m.theme, msg.Attachments); row != "" {
		b.WriteString("\n")
		b.WriteString(row)
	}
	return b.String()
}

func (m *Model) renderModelMessage(msg *model.Message) string {
	var b strings.Builder
	b.WriteString(m.theme.ModelLabel.Render("Ember"))
	if msg.Provider != "" {
		b.WriteString(m.theme.HeaderTitle.Render(" · " + msg.Provider))
	}
	b.WriteString("\n")

	raw := msg.DisplayText()
	streaming := msg.IsStreaming()
	result := think.Classify(raw, streaming)

	if think.IsPending(raw, streaming) {
		b.WriteString(m.theme.PendingDots.Render(m.spin.View() + " thinking"))
		return b.String()
	}

	if result.Thought != "" {
		b.WriteString(m.theme.ThoughtLabel.Render("thinking"))
		b.WriteString("\n")
		b.WriteString(m.theme.ThoughtBlock.Render(result.Thought))
		b.WriteString("\n")
	}

	if result.Answer != "" {
		b.WriteString(m.renderAnswer(msg, result.Answer))
	}

	if sources := m.renderGrounding(msg.GroundingData()); sources != "" {
		b.WriteString("\n")
		b.WriteString(sources)
	}
	return b.String()
}

// renderAnswer applies the reveal pacer to streaming text and full markdown
// rendering to settled text.
func (m *Model) renderAnswer(msg *model.Message, answer string) string {
	if msg.IsStreaming() {
		if pacer, ok := m.pacers[msg.ID]; ok {
			// The pacer tracks the raw text; show only the revealed portion
			// of the answer segment.
			visible := len([]rune(pacer.Visible()))
			runes := []rune(answer)
			hidden := len([]rune(msg.DisplayText())) - len(runes)
			shown := visible - hidden
			if shown < 0 {
				shown = 0
			}
			if shown < len(runes) {
				runes = runes[:shown]
			}
			answer = string(runes)
		}
		return m.theme.ModelText.Render(answer)
	}

	if m.cfg.UI.Markdown {
		if rendered, err := m.renderMarkdown(answer); err == nil {
			return rendered
		}
	}
	if m.cfg.UI.SyntaxHighlight {
		return components.ParseCodeBlocks(answer, m.viewport.Width)
	}
	return m.theme.ModelText.Render(answer)
}

func (m *Model) renderMarkdown(text string) (string, error) {
	width := m.viewport.Width - 2
	if width < 20 {
		width = 20
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	out, err := renderer.Render(text)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

// renderGrounding lists web sources and queries below a grounded reply.
func (m *Model) renderGrounding(g *model.GroundingMetadata) string {
	if g == nil || g.IsEmpty() {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.SourceHeading.Render("Sources"))
	for _, chunk := range g.Chunks {
		if chunk.Web == nil {
			continue
		}
		title := chunk.Web.Title
		if title == "" {
			title = chunk.Web.URI
		}
		b.WriteString("\n  • ")
		b.WriteString(m.theme.SourceLink.Render(title))
	}
	if len(g.WebSearchQueries) > 0 {
		b.WriteString("\n")
		b.WriteString(m.theme.HeaderTitle.Render("searched: " + strings.Join(g.WebSearchQueries, ", ")))
	}
	return b.String()
}
