// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleModel:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// AttachmentKind classifies an attachment for preview rendering.
type AttachmentKind string

const (
	KindImage AttachmentKind = "image"
	KindVideo AttachmentKind = "video"
	KindAudio AttachmentKind = "audio"
	KindFile  AttachmentKind = "file"
)

// Attachment is a file attached to a user message. Attachments are created
// once at ingestion time and never mutated; each one is owned exclusively by
// the message it is attached to.
type Attachment struct {
	ID        string         `json:"id"`
	MIMEType  string         `json:"mime_type"`
	Data      string         `json:"data"` // base64 payload
	Name      string         `json:"name"`
	HumanSize string         `json:"human_size"`
	Kind      AttachmentKind `json:"kind"`
}

// NewAttachmentID creates a unique attachment ID.
func NewAttachmentID() string {
	return "att_" + randomHex(8)
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a chat session.
//
// While a model message is streaming, chunks are appended via AppendChunk and
// the visible text is read via DisplayText. Once IsStreaming flips false the
// message is immutable.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content. Text may contain control markers such as the <think> pair;
	// classification of thought vs. answer happens at render time.
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`

	// Streaming state (not persisted). The stream goroutine appends while
	// the UI goroutine reads, so every access goes through mu.
	mu        sync.Mutex
	streaming bool
	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	streamText strings.Builder

	// Grounding sources reported by the provider (search-enabled turns only).
	Grounding *GroundingMetadata `json:"grounding,omitempty"`

	// Provider that produced this message (model messages only).
	Provider string `json:"provider,omitempty"`
}

// NewUserMessage creates a new user message.
func NewUserMessage(text string, attachments []Attachment) *Message {
	return &Message{
		ID:          generateMessageID(),
		Role:        RoleUser,
		Text:        text,
		Attachments: attachments,
		Timestamp:   time.Now(),
	}
}

// NewModelMessage creates an empty streaming placeholder for a model reply.
// The placeholder exists before the first chunk arrives so the UI can show a
// pending state with zero content.
func NewModelMessage(provider string) *Message {
	return &Message{
		ID:        generateMessageID(),
		Role:      RoleModel,
		Timestamp: time.Now(),
		streaming: true,
		Provider:  provider,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendChunk appends a streamed chunk. It is a pure append: the text already
// received is never replaced or reordered.
func (m *Message) AppendChunk(chunk string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.streaming {
		m.streamText.WriteString(chunk)
	}
}

// MergeGrounding merges grounding metadata from a chunk into the message.
// Merging is additive: sources present in earlier chunks are never dropped.
// The merged result replaces Grounding wholesale, so a renderer holding the
// previous pointer keeps a snapshot that is never mutated under it.
func (m *Message) MergeGrounding(meta *GroundingMetadata) {
	if meta == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	merged := &GroundingMetadata{}
	if m.Grounding != nil {
		merged.Merge(m.Grounding)
	}
	merged.Merge(meta)
	m.Grounding = merged
}

// GroundingData returns the current grounding snapshot, or nil.
func (m *Message) GroundingData() *GroundingMetadata {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Grounding
}

// FinalizeStream completes streaming, leaving the accumulated text in place.
func (m *Message) FinalizeStream() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.streaming {
		return
	}
	m.Text = m.streamText.String()
	m.streamText.Reset()
	m.streaming = false
}

// FailStream completes streaming with a terminal error text, discarding any
// partially received content.
func (m *Message) FailStream(errorText string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.streaming {
		return
	}
	m.streamText.Reset()
	m.Text = errorText
	m.streaming = false
}

// EnsureFinalText backfills the settled text from the provider's own
// accumulated return value when no chunk made it through the callback.
func (m *Message) EnsureFinalText(final string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.streaming && m.Text == "" {
		m.Text = final
	}
}

// IsStreaming reports whether chunks may still arrive for this message.
func (m *Message) IsStreaming() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streaming
}

// DisplayText returns the text to display (streaming or final).
func (m *Message) DisplayText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.streaming {
		return m.streamText.String()
	}
	return m.Text
}

// Preview returns a single-line, truncated preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxRunes int) string {
	text := m.DisplayText()
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", "")
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Text) == 0 && m.streamText.Len() == 0 && len(m.Attachments) == 0
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateMessageID creates a unique message ID.
func generateMessageID() string {
	return "msg_" + randomHex(8)
}

func randomHex(n int) string {
	bytes := make([]byte, n)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
