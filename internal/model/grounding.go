// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
package model

// =============================================================================
// GROUNDING METADATA
// =============================================================================

// WebSource identifies a web page cited by a grounded response.
type WebSource struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// GroundingChunk is a single grounding source. Only web sources are surfaced.
type GroundingChunk struct {
	Web *WebSource `json:"web,omitempty"`
}

// GroundingMetadata holds search-grounding information attached to a model
// message. It is produced only by providers with a search capability.
type GroundingMetadata struct {
	Chunks           []GroundingChunk `json:"grounding_chunks,omitempty"`
	WebSearchQueries []string         `json:"web_search_queries,omitempty"`
}

// Merge folds other into m. Later chunks may add sources not present in
// earlier ones, so merging is additive: existing sources are kept and new
// ones appended. Duplicate web sources (same URI) are skipped.
func (g *GroundingMetadata) Merge(other *GroundingMetadata) {
	if other == nil {
		return
	}

	seen := make(map[string]bool, len(g.Chunks))
	for _, c := range g.Chunks {
		if c.Web != nil {
			seen[c.Web.URI] = true
		}
	}
	for _, c := range other.Chunks {
		if c.Web != nil && seen[c.Web.URI] {
			continue
		}
		if c.Web != nil {
			seen[c.Web.URI] = true
		}
		g.Chunks = append(g.Chunks, c)
	}

	seenQ := make(map[string]bool, len(g.WebSearchQueries))
	for _, q := range g.WebSearchQueries {
		seenQ[q] = true
	}
	for _, q := range other.WebSearchQueries {
		if !seenQ[q] {
			seenQ[q] = true
			g.WebSearchQueries = append(g.WebSearchQueries, q)
		}
	}
}

// IsEmpty returns true if no sources or queries are recorded.
func (g *GroundingMetadata) IsEmpty() bool {
	return g == nil || (len(g.Chunks) == 0 && len(g.WebSearchQueries) == 0)
}
