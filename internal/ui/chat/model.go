// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ember-tui/internal/config"
	"github.com/jeranaias/ember-tui/internal/engine"
	"github.com/jeranaias/ember-tui/internal/export"
	"github.com/jeranaias/ember-tui/internal/ingest"
	"github.com/jeranaias/ember-tui/internal/model"
	"github.com/jeranaias/ember-tui/internal/provider"
	"github.com/jeranaias/ember-tui/internal/reveal"
	"github.com/jeranaias/ember-tui/internal/storage"
	"github.com/jeranaias/ember-tui/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	theme *styles.Theme
	cfg   *config.Config
	keys  keyMap

	engine *engine.Engine
	store  storage.Store

	// Session state
	sessions     []*model.ChatSession
	current      *model.ChatSession
	selected     int
	showSidebar  bool
	sidebarFocus bool

	// Per-turn state
	flags   provider.Flags
	pending []model.Attachment
	notices []string

	// Widgets
	input    textarea.Model
	viewport viewport.Model
	spin     spinner.Model

	// Reveal pacing, one pacer per streaming message
	pacers    map[string]*reveal.Pacer
	revealing bool

	cancelMgr *cancelManager
	streaming bool

	width  int
	height int
	ready  bool
}

// New creates the chat model.
func New(cfg *config.Config, eng *engine.Engine, store storage.Store, theme *styles.Theme) Model {
	input := textarea.New()
	input.Placeholder = "Message Ember..."
	input.CharLimit = 0
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		theme:       theme,
		cfg:         cfg,
		keys:        defaultKeyMap(),
		engine:      eng,
		store:       store,
		showSidebar: cfg.UI.ShowSidebar,
		flags: provider.Flags{
			UseSearch:    cfg.Defaults.Search,
			UseDeepThink: cfg.Defaults.DeepThink,
		},
		input:     input,
		spin:      spin,
		pacers:    make(map[string]*reveal.Pacer),
		cancelMgr: newCancelManager(),
	}
}

// SetSearch overrides the configured web-search default, for CLI flags.
func (m *Model) SetSearch(on bool) {
	m.flags.UseSearch = on
}

// SetThink overrides the configured deep-think default, for CLI flags.
func (m *Model) SetThink(on bool) {
	m.flags.UseDeepThink = on
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spin.Tick, m.loadSessions)
}

// loadSessions reads stored sessions off the Update loop.
func (m Model) loadSessions() tea.Msg {
	sessions, err := m.store.Load()
	return SessionsLoadedMsg{Sessions: sessions, Err: err}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		m.refreshViewport()

	case SessionsLoadedMsg:
		if msg.Err == nil {
			m.sessions = msg.Sessions
		}

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamUpdateMsg:
		if reply := m.findMessage(msg.MessageID); reply != nil && reply.IsStreaming() {
			pacer, ok := m.pacers[msg.MessageID]
			if !ok {
				pacer = reveal.NewPacerWithConfig(m.cfg.Reveal.BaseStep, m.cfg.Reveal.Jitter)
				m.pacers[msg.MessageID] = pacer
			}
			pacer.SetTarget(reply.DisplayText())
			if !m.revealing {
				m.revealing = true
				cmds = append(cmds, revealTick())
			}
		}

	case RevealTickMsg:
		if cmd := m.handleRevealTick(); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case StreamDoneMsg:
		m.streaming = false
		m.cancelMgr.cancel()
		if msg.Session != nil {
			// Settled text is ground truth; snap its pacer to the end.
			if last := msg.Session.LastMessage(); last != nil {
				if pacer, ok := m.pacers[last.ID]; ok {
					pacer.SetTarget(last.DisplayText())
					if !m.revealing && !pacer.Done() {
						m.revealing = true
						cmds = append(cmds, revealTick())
					}
				}
			}
		}
		m.refreshViewport()
		cmds = append(cmds, m.loadSessions)

	case AttachResultMsg:
		m.pending = append(m.pending, msg.Attachments...)
		for _, err := range msg.Errors {
			m.notices = append(m.notices, err.Error())
		}

	case ConfigReloadedMsg:
		m.theme = styles.NewTheme(msg.Theme == "dark")
		m.refreshViewport()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
	}

	if !m.sidebarFocus {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey routes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancelMgr.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.streaming && m.current != nil {
			m.engine.Cancel(m.current.ID)
		}
		return m, nil

	case key.Matches(msg, m.keys.NewSession):
		m.startNewSession()
		return m, nil

	case key.Matches(msg, m.keys.ToggleSidebar):
		m.showSidebar = !m.showSidebar
		m.sidebarFocus = m.showSidebar
		m.layout()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.ToggleSearch):
		m.flags.UseSearch = !m.flags.UseSearch
		return m, nil

	case key.Matches(msg, m.keys.ToggleThink):
		m.flags.UseDeepThink = !m.flags.UseDeepThink
		return m, nil

	case key.Matches(msg, m.keys.CycleProvider):
		m.cycleProvider()
		return m, nil
	}

	if m.sidebarFocus {
		return m.handleSidebarKey(msg)
	}

	if key.Matches(msg, m.keys.Send) && msg.String() == "enter" && !msg.Alt {
		return m.submit()
	}
	if msg.String() == "ctrl+s" {
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSidebarKey navigates the session list.
func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.SidebarUp):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.SidebarDown):
		if m.selected < len(m.sessions)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.SidebarOpen):
		if m.selected < len(m.sessions) {
			// Leaving a session aborts its stream; late chunks must not
			// keep mutating a transcript that is no longer on screen.
			if m.streaming && m.current != nil && m.current.ID != m.sessions[m.selected].ID {
				m.engine.Cancel(m.current.ID)
			}
			if m.current == nil || m.current.ID != m.sessions[m.selected].ID {
				clear(m.pacers)
			}
			m.current = m.sessions[m.selected]
			m.sidebarFocus = false
			m.refreshViewport()
		}
	case key.Matches(msg, m.keys.SidebarDelete):
		if m.selected < len(m.sessions) {
			sess := m.sessions[m.selected]
			if m.current != nil && m.current.ID == sess.ID {
				m.current = nil
			}
			m.store.Delete(sess.ID)
			return m, m.loadSessions
		}
	}
	return m, nil
}

// submit starts a chat turn from the input box contents.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.streaming {
		return m, nil
	}

	if strings.HasPrefix(text, "/") {
		return m.handleCommand(text)
	}

	if m.current == nil {
		m.current = model.NewChatSession()
		m.sessions = append([]*model.ChatSession{m.current}, m.sessions...)
	}

	attachments := m.pending
	m.pending = nil
	m.notices = nil
	m.input.Reset()
	m.streaming = true

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelMgr.set(cancel)

	sess, flags, eng := m.current, m.flags, m.engine
	return m, func() tea.Msg {
		result, err := eng.Send(ctx, sess, text, attachments, flags)
		return StreamDoneMsg{Session: result, Err: err}
	}
}

// handleCommand executes a slash command typed in the input box.
func (m Model) handleCommand(text string) (tea.Model, tea.Cmd) {
	m.input.Reset()
	fields := strings.Fields(text)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/new":
		m.startNewSession()

	case "/sessions":
		m.showSidebar = !m.showSidebar
		m.sidebarFocus = m.showSidebar
		m.layout()

	case "/attach":
		if len(args) == 0 {
			m.notices = append(m.notices, "usage: /attach <path> [path...]")
			return m, nil
		}
		return m, func() tea.Msg {
			attachments, errs := ingest.IngestAll(args)
			return AttachResultMsg{Attachments: attachments, Errors: errs}
		}

	case "/provider":
		if len(args) == 1 {
			if err := m.engine.SetActiveProvider(provider.Name(args[0])); err != nil {
				m.notices = append(m.notices, "unknown provider: "+args[0])
			}
		} else {
			m.cycleProvider()
		}

	case "/export":
		if m.current == nil || m.current.IsEmpty() {
			m.notices = append(m.notices, "nothing to export")
			return m, nil
		}
		var exporter export.Exporter = export.NewMarkdownExporter(nil)
		if len(args) == 1 && args[0] == "json" {
			exporter = export.NewJSONExporter()
		}
		path, err := export.ToFile(m.current, exporter, nil)
		if err != nil {
			m.notices = append(m.notices, "export failed: "+err.Error())
		} else {
			m.notices = append(m.notices, "exported to "+path)
		}

	case "/clear":
		// Destructive and undoable by nothing; require explicit confirmation.
		if len(args) != 1 || args[0] != "confirm" {
			m.notices = append(m.notices, "this deletes ALL sessions; run /clear confirm")
			return m, nil
		}
		m.store.DeleteAll()
		m.sessions = nil
		m.current = nil
		m.selected = 0
		m.refreshViewport()

	case "/quit":
		return m, tea.Quit

	default:
		m.notices = append(m.notices, "unknown command: "+cmd)
	}
	return m, nil
}

// startNewSession clears the active conversation. The next send creates and
// persists a fresh session.
func (m *Model) startNewSession() {
	if m.streaming && m.current != nil {
		m.engine.Cancel(m.current.ID)
	}
	clear(m.pacers)
	m.current = nil
	m.pending = nil
	m.notices = nil
	m.sidebarFocus = false
	m.refreshViewport()
}

// cycleProvider advances to the next registered provider.
func (m *Model) cycleProvider() {
	names := m.engine.ProviderNames()
	if len(names) < 2 {
		return
	}
	m.engine.SetActiveProvider(names[1])
}

// handleRevealTick advances every pacer one frame. The timer stays armed
// only while some pacer still has hidden text; a stalled stream leaves its
// pacer converged and the loop parks until the next chunk arrives.
func (m *Model) handleRevealTick() tea.Cmd {
	moved := false
	for id, pacer := range m.pacers {
		if pacer.Tick() {
			moved = true
		}
		if reply := m.findMessage(id); (reply == nil || !reply.IsStreaming()) && pacer.Done() {
			delete(m.pacers, id)
		}
	}
	if moved {
		m.refreshViewport()
	}
	for _, pacer := range m.pacers {
		if !pacer.Done() {
			return revealTick()
		}
	}
	m.revealing = false
	return nil
}

// findMessage locates a message in the active session.
func (m *Model) findMessage(id string) *model.Message {
	if m.current == nil {
		return nil
	}
	return m.current.MessageByID(id)
}

// revealTick schedules the next reveal frame.
func revealTick() tea.Cmd {
	return tea.Tick(reveal.TickInterval, func(time.Time) tea.Msg {
		return RevealTickMsg{}
	})
}
