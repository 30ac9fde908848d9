// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ember-tui/internal/config"
	"github.com/jeranaias/ember-tui/internal/engine"
	"github.com/jeranaias/ember-tui/internal/model"
	"github.com/jeranaias/ember-tui/internal/provider"
	"github.com/jeranaias/ember-tui/internal/reveal"
	"github.com/jeranaias/ember-tui/internal/storage"
	"github.com/jeranaias/ember-tui/internal/ui/styles"
)

// stubProvider satisfies provider.Provider without any network.
type stubProvider struct{ name provider.Name }

func (p *stubProvider) Name() provider.Name       { return p.name }
func (p *stubProvider) SupportsSearch() bool      { return false }
func (p *stubProvider) SupportsAttachments() bool { return false }

func (p *stubProvider) Stream(ctx context.Context, history []*model.Message, text string,
	attachments []model.Attachment, flags provider.Flags, onChunk provider.ChunkFunc) (string, error) {
	onChunk("ok", nil)
	return "ok", nil
}

func testModel(t *testing.T) Model {
	t.Helper()

	store, err := storage.NewFileStoreWithPath(filepath.Join(t.TempDir(), "sessions.json"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	eng := engine.New(engine.Config{
		Providers: []provider.Provider{
			&stubProvider{name: provider.Gemini},
			&stubProvider{name: provider.Pollinations},
		},
	})

	m := New(config.Default(), eng, store, styles.NewTheme(true))
	m.width, m.height = 100, 30
	m.layout()
	m.ready = true
	return m
}

func lastNotice(m Model) string {
	if len(m.notices) == 0 {
		return ""
	}
	return m.notices[len(m.notices)-1]
}

func TestClearRequiresConfirmation(t *testing.T) {
	m := testModel(t)
	sess := model.NewChatSession()
	sess.AddMessage(model.NewUserMessage("hello", nil))
	m.store.Save(sess)
	m.sessions = []*model.ChatSession{sess}

	next, _ := m.handleCommand("/clear")
	m = next.(Model)

	if got := lastNotice(m); !strings.Contains(got, "confirm") {
		t.Errorf("notice = %q, want a confirmation prompt", got)
	}
	stored, _ := m.store.Load()
	if len(stored) != 1 {
		t.Fatalf("sessions deleted without confirmation: %d left", len(stored))
	}

	next, _ = m.handleCommand("/clear confirm")
	m = next.(Model)
	stored, _ = m.store.Load()
	if len(stored) != 0 {
		t.Errorf("sessions not deleted after confirmation: %d left", len(stored))
	}
	if m.current != nil || len(m.sessions) != 0 {
		t.Error("in-memory session state not cleared")
	}
}

func TestUnknownCommandNotices(t *testing.T) {
	m := testModel(t)
	next, _ := m.handleCommand("/bogus")
	m = next.(Model)
	if got := lastNotice(m); !strings.Contains(got, "/bogus") {
		t.Errorf("notice = %q, want mention of the unknown command", got)
	}
}

func TestProviderSwitchCommand(t *testing.T) {
	m := testModel(t)

	next, _ := m.handleCommand("/provider pollinations")
	m = next.(Model)
	if got := m.engine.ActiveProvider(); got != provider.Pollinations {
		t.Errorf("active = %v, want pollinations", got)
	}

	next, _ = m.handleCommand("/provider nope")
	m = next.(Model)
	if got := lastNotice(m); !strings.Contains(got, "nope") {
		t.Errorf("notice = %q, want unknown-provider message", got)
	}
	if got := m.engine.ActiveProvider(); got != provider.Pollinations {
		t.Errorf("active changed on bad switch: %v", got)
	}
}

func TestExportWithNoSessionNotices(t *testing.T) {
	m := testModel(t)
	next, _ := m.handleCommand("/export")
	m = next.(Model)
	if got := lastNotice(m); !strings.Contains(got, "nothing to export") {
		t.Errorf("notice = %q, want nothing-to-export", got)
	}
}

func TestSubmitIgnoresEmptyInput(t *testing.T) {
	m := testModel(t)
	next, cmd := m.submit()
	m = next.(Model)
	if cmd != nil || m.streaming {
		t.Error("empty input should not start a turn")
	}
}

// blockingProvider parks in Stream until its context is cancelled or the
// release channel fires, so tests can hold a session busy.
type blockingProvider struct {
	name    provider.Name
	release chan struct{}
}

func (p *blockingProvider) Name() provider.Name       { return p.name }
func (p *blockingProvider) SupportsSearch() bool      { return false }
func (p *blockingProvider) SupportsAttachments() bool { return false }

func (p *blockingProvider) Stream(ctx context.Context, history []*model.Message, text string,
	attachments []model.Attachment, flags provider.Flags, onChunk provider.ChunkFunc) (string, error) {
	select {
	case <-ctx.Done():
		return "", &provider.Error{Provider: p.name, Type: provider.ErrTypeCancelled,
			Message: "stream cancelled", Cause: ctx.Err()}
	case <-p.release:
		return "ok", nil
	}
}

func TestOpeningAnotherSessionCancelsStream(t *testing.T) {
	store, err := storage.NewFileStoreWithPath(filepath.Join(t.TempDir(), "sessions.json"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	release := make(chan struct{})
	defer close(release)
	eng := engine.New(engine.Config{
		Providers: []provider.Provider{&blockingProvider{name: provider.Gemini, release: release}},
	})

	m := New(config.Default(), eng, store, styles.NewTheme(true))
	m.width, m.height = 100, 30
	m.layout()
	m.ready = true

	active := model.NewChatSession()
	other := model.NewChatSession()

	done := make(chan struct{})
	go func() {
		eng.Send(context.Background(), active, "hello", nil, provider.Flags{})
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !eng.Busy(active.ID) {
		if time.Now().After(deadline) {
			t.Fatal("stream never started")
		}
		time.Sleep(time.Millisecond)
	}

	m.current = active
	m.streaming = true
	m.sessions = []*model.ChatSession{active, other}
	m.selected = 1
	m.sidebarFocus = true
	m.pacers[active.ID] = reveal.NewPacer()

	next, _ := m.handleSidebarKey(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("opening another session did not cancel the in-flight stream")
	}
	if m.current == nil || m.current.ID != other.ID {
		t.Error("selected session not opened")
	}
	if len(m.pacers) != 0 {
		t.Error("stale pacer survived the session switch")
	}
	if eng.Busy(active.ID) {
		t.Error("old session still busy after switch")
	}
}

func TestRevealTimerParksWhenPacersConverge(t *testing.T) {
	m := testModel(t)

	converged := reveal.NewPacer()
	converged.SetTarget("short reply")
	for !converged.Done() {
		converged.Tick()
	}
	m.pacers["reply-1"] = converged
	m.revealing = true

	if cmd := m.handleRevealTick(); cmd != nil {
		t.Error("tick rescheduled with no hidden text left")
	}
	if m.revealing {
		t.Error("revealing flag not cleared once every pacer converged")
	}

	behind := reveal.NewPacer()
	behind.SetTarget(strings.Repeat("word ", 200))
	m.pacers["reply-2"] = behind
	m.revealing = true

	if cmd := m.handleRevealTick(); cmd == nil {
		t.Error("tick not rescheduled while text is still hidden")
	}
}
