// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/ember-tui/internal/model"
)

// =============================================================================
// BUBBLE TEA MESSAGES
// =============================================================================

// StreamUpdateMsg reports that a message changed while streaming. Sent from
// the engine's update callback via program.Send.
type StreamUpdateMsg struct {
	MessageID string
}

// StreamDoneMsg reports that a send lifecycle reached a terminal state.
type StreamDoneMsg struct {
	Session *model.ChatSession
	Err     error
}

// RevealTickMsg drives the typewriter reveal of streaming replies.
type RevealTickMsg struct{}

// SessionsLoadedMsg carries the stored sessions read at startup.
type SessionsLoadedMsg struct {
	Sessions []*model.ChatSession
	Err      error
}

// AttachResultMsg reports the outcome of ingesting selected files.
type AttachResultMsg struct {
	Attachments []model.Attachment
	Errors      []error
}

// ConfigReloadedMsg carries a hot-reloaded configuration.
type ConfigReloadedMsg struct {
	Theme string
}
