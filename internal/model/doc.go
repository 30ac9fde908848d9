// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// This package defines the core domain types used throughout the application
// for representing chat sessions, messages, attachments, and grounding
// metadata reported by search-capable providers.
//
// # Key Types
//
//   - ChatSession: Container for an append-only message sequence with metadata
//   - Message: Single message with role, text, attachments, and streaming state
//   - Attachment: Immutable base64-encoded file payload with MIME classification
//   - GroundingMetadata: Web sources cited by a grounded model response
//   - Role: Message role enumeration (user, model)
//
// # Usage
//
// Create a session and append messages:
//
//	session := model.NewChatSession()
//	session.AddMessage(model.NewUserMessage("Hello!", nil))
//
// Stream into a model message:
//
//	msg := model.NewModelMessage("gemini")
//	session.AddMessage(msg)
//	msg.AppendChunk("Hi")
//	msg.FinalizeStream()
package model
