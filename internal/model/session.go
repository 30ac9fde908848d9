// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TitleMaxRunes is the maximum length of an auto-derived session title.
const TitleMaxRunes = 40

// =============================================================================
// CHAT SESSION TYPE
// =============================================================================

// ChatSession holds an ordered message sequence plus metadata. The sequence
// is append-only during an active conversation; reordering never occurs.
// A session owns its messages exclusively (no sharing across sessions).
type ChatSession struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Messages. The engine's stream goroutine appends while the UI
	// goroutine renders, so access goes through mu. The field stays
	// exported for JSON; persistence only touches settled sessions.
	Messages []*Message `json:"messages"`

	mu sync.RWMutex
}

// NewChatSession creates an empty session.
func NewChatSession() *ChatSession {
	now := time.Now()
	return &ChatSession{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message to the session.
func (s *ChatSession) AddMessage(msg *Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
	s.deriveTitleLocked()
}

// LastMessage returns the most recent message, or nil if empty.
func (s *ChatSession) LastMessage() *Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// MessageByID returns a message by its ID, or nil.
func (s *ChatSession) MessageByID(id string) *Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, msg := range s.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// MessageCount returns the number of messages.
func (s *ChatSession) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Messages)
}

// IsEmpty returns true if there are no messages.
func (s *ChatSession) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Messages) == 0
}

// History returns a snapshot of the message sequence for display. The
// returned slice is the caller's; a concurrent append never reslices it.
func (s *ChatSession) History() []*Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// HasStreamingMessage reports whether a stream is in flight for this session.
func (s *ChatSession) HasStreamingMessage() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].IsStreaming() {
			return true
		}
	}
	return false
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// deriveTitleLocked sets the title from the first user message's leading
// text. The title is derived once and frozen: later messages never change
// it. Callers hold s.mu.
func (s *ChatSession) deriveTitleLocked() {
	if s.Title != "" {
		return
	}
	for _, msg := range s.Messages {
		if msg.Role == RoleUser && msg.DisplayText() != "" {
			s.Title = msg.Preview(TitleMaxRunes)
			return
		}
	}
}

// DisplayTitle returns the session title or a default.
func (s *ChatSession) DisplayTitle() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Title != "" {
		return s.Title
	}
	return "New Chat"
}

// =============================================================================
// HELPERS
// =============================================================================

// Clone creates a deep copy of the session. Stream builders are not carried
// over; clones are for persistence of settled messages.
func (s *ChatSession) Clone() *ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clone := &ChatSession{
		ID:        s.ID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		Messages:  make([]*Message, len(s.Messages)),
	}
	for i, msg := range s.Messages {
		copied := &Message{
			ID:          msg.ID,
			Role:        msg.Role,
			Timestamp:   msg.Timestamp,
			Text:        msg.DisplayText(),
			Attachments: msg.Attachments,
			Grounding:   msg.GroundingData(),
			Provider:    msg.Provider,
		}
		clone.Messages[i] = copied
	}
	return clone
}
