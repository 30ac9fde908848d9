// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider defines the streaming contract shared by the chat
// backends and the system instructions sent with each turn.
//
// Two structurally different APIs sit behind one interface: a multimodal
// SSE-framed API (gemini) and a plain HTTP byte-stream API (pollinations).
// Both deliver incremental text through the same chunk callback, so the
// orchestrator and renderer never see provider-specific shapes.
package provider

import (
	"context"

	"github.com/jeranaias/ember-tui/internal/model"
)

// Name identifies a backend driver. Adding a provider means adding one
// implementation and one Name value, not branching call sites.
type Name string

const (
	Gemini       Name = "gemini"
	Pollinations Name = "pollinations"
)

// String returns the string representation of the provider name.
func (n Name) String() string {
	return string(n)
}

// DisplayName returns a human-readable provider label.
func (n Name) DisplayName() string {
	switch n {
	case Gemini:
		return "Gemini"
	case Pollinations:
		return "Pollinations"
	default:
		return string(n)
	}
}

// Flags are the per-request feature toggles surfaced to the core.
type Flags struct {
	// UseSearch enables the web-search tool. Only honored by providers
	// whose SupportsSearch is true; silently ignored elsewhere.
	UseSearch bool

	// UseDeepThink injects the chain-of-thought instruction block and, for
	// providers that support it, a bounded reasoning-budget hint.
	UseDeepThink bool
}

// ChunkFunc receives each incremental update from a stream: a text delta
// (possibly empty) and any grounding metadata carried by the same chunk.
// Callbacks fire in arrival order on the streaming goroutine.
type ChunkFunc func(text string, meta *model.GroundingMetadata)

// Provider is a streaming chat backend.
type Provider interface {
	// Name returns the driver's identity.
	Name() Name

	// SupportsSearch reports whether the search flag has any effect.
	SupportsSearch() bool

	// SupportsAttachments reports whether attachments reach the backend.
	SupportsAttachments() bool

	// Stream sends the prior history plus the new user turn and streams the
	// reply through onChunk. It blocks until the stream terminates and
	// returns the accumulated final text, a ground-truth value independent
	// of the caller's own accumulation.
	Stream(ctx context.Context, history []*model.Message, text string,
		attachments []model.Attachment, flags Flags, onChunk ChunkFunc) (string, error)
}
