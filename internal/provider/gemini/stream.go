// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/jeranaias/ember-tui/internal/model"
	"github.com/jeranaias/ember-tui/internal/provider"
)

// =============================================================================
// SSE STREAM READER
// =============================================================================

// sseReader parses the server-sent-event framing of a streaming response.
// Each event is a "data: {json}" line carrying a response fragment; the
// stream ends when the body closes.
type sseReader struct {
	scanner *bufio.Scanner
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
}

// newSSEReader creates a stream reader over a response body.
func newSSEReader(r io.Reader) *sseReader {
	scanner := bufio.NewScanner(r)
	// Grounded responses can carry large single-line payloads.
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	return &sseReader{scanner: scanner}
}

// Process reads the stream and forwards each fragment's delta text and
// grounding metadata to the callback. Blocks until the stream is complete
// or the context is cancelled.
func (s *sseReader) Process(ctx context.Context, onChunk provider.ChunkFunc) error {
	for s.scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var resp streamResponse
		if err := json.Unmarshal([]byte(payload), &resp); err != nil {
			// Skip malformed fragments rather than killing the stream.
			continue
		}

		delta, meta := resp.extract()
		if delta == "" && meta == nil {
			continue
		}
		s.accumulator.WriteString(delta)
		onChunk(delta, meta)
	}

	if err := s.scanner.Err(); err != nil {
		return err
	}
	return nil
}

// Accumulated returns all delta text received so far.
func (s *sseReader) Accumulated() string {
	return s.accumulator.String()
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type streamResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		GroundingMetadata *wireGrounding `json:"groundingMetadata"`
	} `json:"candidates"`
}

type wireGrounding struct {
	GroundingChunks []struct {
		Web *struct {
			URI   string `json:"uri"`
			Title string `json:"title"`
		} `json:"web"`
	} `json:"groundingChunks"`
	WebSearchQueries []string `json:"webSearchQueries"`
}

// extract pulls the delta text and converted grounding metadata out of a
// response fragment.
func (r *streamResponse) extract() (string, *model.GroundingMetadata) {
	if len(r.Candidates) == 0 {
		return "", nil
	}
	cand := r.Candidates[0]

	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}

	return sb.String(), cand.GroundingMetadata.toModel()
}

// toModel converts wire-format grounding into the domain type.
func (w *wireGrounding) toModel() *model.GroundingMetadata {
	if w == nil {
		return nil
	}

	meta := &model.GroundingMetadata{WebSearchQueries: w.WebSearchQueries}
	for _, c := range w.GroundingChunks {
		if c.Web == nil {
			continue
		}
		meta.Chunks = append(meta.Chunks, model.GroundingChunk{
			Web: &model.WebSource{URI: c.Web.URI, Title: c.Web.Title},
		})
	}
	if meta.IsEmpty() {
		return nil
	}
	return meta
}
