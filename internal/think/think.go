// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package think classifies a streaming response buffer into a "thought"
// segment and a "final answer" segment.
//
// Deep-think capable turns instruct the model to wrap its reasoning in a
// literal <think>...</think> pair before producing the answer. The pair is a
// soft contract with the remote model: markers arrive embedded in ordinary
// text, may be split across arbitrary chunk boundaries, and are neither
// escaped nor validated. A model that emits a literal "<think>" as ordinary
// content is indistinguishable from a structural marker; that is an accepted
// protocol limitation.
//
// Classify is a pure function re-run over the full buffer on every update.
// Re-scanning the whole buffer (rather than keeping incremental parser
// state) is what guarantees the result is independent of how the stream was
// chunked.
package think

import "strings"

// Markers delimiting the thought segment in raw model output.
const (
	OpenMarker  = "<think>"
	CloseMarker = "</think>"
)

// Result is the classification of a raw buffer.
type Result struct {
	// Thought is the reasoning segment, empty when no marker is present.
	Thought string

	// Answer is the user-facing segment.
	Answer string

	// InsideThought is true while the buffer is inside an unclosed thought,
	// including the window where the open marker itself is still arriving.
	InsideThought bool
}

// Classify derives (thought, answer) from a monotonically-growing raw buffer.
// streaming reports whether more chunks may still arrive; it gates the
// partial-marker case so a settled message that merely starts with "<" is
// not misread as a half-received marker.
//
// The four cases, checked in order:
//
//  1. Complete <think>...</think> pair: thought is the inner text, answer is
//     the buffer with the whole span removed.
//  2. Open marker with no close yet: everything after the marker is thought.
//  3. Buffer is a strict prefix of the open marker (still arriving): treated
//     as inside-thought with no content, so a raw "<" or "<thi" never
//     flashes on screen.
//  4. No marker: the whole buffer is the answer.
func Classify(raw string, streaming bool) Result {
	trimmed := strings.TrimLeft(raw, " \t\r\n")

	// Case 1: complete pair.
	if open := strings.Index(raw, OpenMarker); open >= 0 {
		rest := raw[open+len(OpenMarker):]
		if close := strings.Index(rest, CloseMarker); close >= 0 {
			thought := strings.TrimSpace(rest[:close])
			answer := strings.TrimSpace(raw[:open] + rest[close+len(CloseMarker):])
			return Result{Thought: thought, Answer: answer}
		}
	}

	// Case 2: open marker seen, close still pending.
	if strings.HasPrefix(trimmed, OpenMarker) {
		thought := strings.TrimLeft(trimmed[len(OpenMarker):], " \t\r\n")
		return Result{Thought: thought, InsideThought: true}
	}

	// Case 3: the marker itself is still arriving character by character.
	if streaming && trimmed != "" && len(trimmed) < len(OpenMarker) &&
		strings.HasPrefix(OpenMarker, trimmed) {
		return Result{InsideThought: true}
	}

	// Case 4: plain content.
	return Result{Answer: raw}
}

// IsPending reports whether the UI should show the pending indicator for a
// streaming buffer: the stream is active and either nothing has arrived yet
// or the parser is inside a thought with no thought content to show.
func IsPending(raw string, streaming bool) bool {
	if !streaming {
		return false
	}
	if raw == "" {
		return true
	}
	res := Classify(raw, streaming)
	return res.InsideThought && res.Thought == ""
}
