// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jeranaias/ember-tui/internal/model"
	"github.com/jeranaias/ember-tui/internal/provider"
)

func sseBody(events ...string) string {
	var sb strings.Builder
	for _, event := range events {
		sb.WriteString("data: ")
		sb.WriteString(event)
		sb.WriteString("\n\n")
	}
	return sb.String()
}

func textEvent(text string) string {
	payload, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
	return string(payload)
}

func TestStreamAccumulatesDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseBody(textEvent("Hello"), textEvent(", "), textEvent("world")))
	}))
	defer server.Close()

	client := New(&Config{BaseURL: server.URL, APIKey: "test-key"})

	var chunks []string
	final, err := client.Stream(context.Background(), nil, "greet me", nil, provider.Flags{}, func(fragment string, meta *model.GroundingMetadata) {
		chunks = append(chunks, fragment)
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if final != "Hello, world" {
		t.Errorf("final = %q", final)
	}
	if len(chunks) != 3 {
		t.Errorf("got %d chunks, want 3", len(chunks))
	}
	if joined := strings.Join(chunks, ""); joined != final {
		t.Errorf("joined chunks = %q, want %q", joined, final)
	}
}

func TestStreamSkipsMalformedFragments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data: {not json}\n\n")
		io.WriteString(w, sseBody(textEvent("kept")))
		io.WriteString(w, ": comment line\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := New(&Config{BaseURL: server.URL, APIKey: "test-key"})
	final, err := client.Stream(context.Background(), nil, "hi", nil, provider.Flags{}, func(string, *model.GroundingMetadata) {})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if final != "kept" {
		t.Errorf("final = %q, want %q", final, "kept")
	}
}

func TestStreamDeliversGrounding(t *testing.T) {
	grounded, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{"parts": []map[string]string{{"text": "Paris."}}},
			"groundingMetadata": map[string]any{
				"groundingChunks": []map[string]any{
					{"web": map[string]string{"uri": "https://example.com/a", "title": "Source A"}},
				},
				"webSearchQueries": []string{"capital of France"},
			},
		}},
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseBody(string(grounded)))
	}))
	defer server.Close()

	client := New(&Config{BaseURL: server.URL, APIKey: "test-key"})

	var meta *model.GroundingMetadata
	_, err := client.Stream(context.Background(), nil, "capital of France?", nil, provider.Flags{UseSearch: true}, func(fragment string, m *model.GroundingMetadata) {
		if m != nil {
			meta = m
		}
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if meta == nil {
		t.Fatal("expected grounding metadata")
	}
	if len(meta.Chunks) != 1 || meta.Chunks[0].Web == nil || meta.Chunks[0].Web.URI != "https://example.com/a" {
		t.Errorf("chunks = %+v", meta.Chunks)
	}
	if len(meta.WebSearchQueries) != 1 || meta.WebSearchQueries[0] != "capital of France" {
		t.Errorf("queries = %v", meta.WebSearchQueries)
	}
}

func TestRequestPayload(t *testing.T) {
	var captured generateRequest
	var gotPath, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		io.WriteString(w, sseBody(textEvent("ok")))
	}))
	defer server.Close()

	client := New(&Config{BaseURL: server.URL, APIKey: "test-key", Model: "gemini-2.5-flash", ThinkingBudget: 512})

	history := []*model.Message{
		model.NewUserMessage("earlier question", nil),
		func() *model.Message {
			m := model.NewModelMessage("gemini")
			m.AppendChunk("earlier answer")
			m.FinalizeStream()
			return m
		}(),
	}
	attachments := []model.Attachment{{MIMEType: "image/png", Data: "aGVsbG8="}}

	_, err := client.Stream(context.Background(), history, "what is in this image?", attachments,
		provider.Flags{UseSearch: true, UseDeepThink: true}, func(string, *model.GroundingMetadata) {})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if gotPath != "/v1beta/models/gemini-2.5-flash:streamGenerateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if !strings.Contains(gotQuery, "alt=sse") || !strings.Contains(gotQuery, "key=test-key") {
		t.Errorf("query = %q", gotQuery)
	}

	if len(captured.Contents) != 3 {
		t.Fatalf("got %d contents, want 3", len(captured.Contents))
	}
	if captured.Contents[0].Role != "user" || captured.Contents[1].Role != "model" {
		t.Errorf("history roles = %q, %q", captured.Contents[0].Role, captured.Contents[1].Role)
	}
	live := captured.Contents[2]
	if live.Role != "user" || len(live.Parts) != 2 {
		t.Fatalf("live turn = %+v", live)
	}
	if live.Parts[0].Text != "what is in this image?" {
		t.Errorf("live text = %q", live.Parts[0].Text)
	}
	if live.Parts[1].InlineData == nil || live.Parts[1].InlineData.MIMEType != "image/png" || live.Parts[1].InlineData.Data != "aGVsbG8=" {
		t.Errorf("live attachment = %+v", live.Parts[1].InlineData)
	}

	if captured.SystemInstruction == nil || len(captured.SystemInstruction.Parts) != 1 ||
		!strings.Contains(captured.SystemInstruction.Parts[0].Text, "Ember") {
		t.Error("system instruction missing or without persona")
	}
	if len(captured.Tools) != 1 || captured.Tools[0].GoogleSearch == nil {
		t.Errorf("tools = %+v", captured.Tools)
	}
	if captured.GenerationConfig == nil || captured.GenerationConfig.ThinkingConfig == nil ||
		captured.GenerationConfig.ThinkingConfig.ThinkingBudget != 512 {
		t.Errorf("generation config = %+v", captured.GenerationConfig)
	}
}

func TestRequestPayloadWithoutFlags(t *testing.T) {
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		io.WriteString(w, sseBody(textEvent("ok")))
	}))
	defer server.Close()

	client := New(&Config{BaseURL: server.URL, APIKey: "test-key"})
	_, err := client.Stream(context.Background(), nil, "plain question", nil, provider.Flags{}, func(string, *model.GroundingMetadata) {})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if captured.Tools != nil {
		t.Errorf("tools should be absent, got %+v", captured.Tools)
	}
	if captured.GenerationConfig != nil {
		t.Errorf("generation config should be absent, got %+v", captured.GenerationConfig)
	}
}

func TestMissingAPIKey(t *testing.T) {
	client := New(&Config{BaseURL: "http://unused"})
	_, err := client.Stream(context.Background(), nil, "hi", nil, provider.Flags{}, func(string, *model.GroundingMetadata) {})
	if !errors.Is(err, provider.ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestAPIErrorDecoded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error": {"code": 429, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"}}`)
	}))
	defer server.Close()

	client := New(&Config{BaseURL: server.URL, APIKey: "test-key"})
	_, err := client.Stream(context.Background(), nil, "hi", nil, provider.Flags{}, func(string, *model.GroundingMetadata) {})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	var provErr *provider.Error
	if !errors.As(err, &provErr) {
		t.Fatalf("expected *provider.Error, got %T", err)
	}
	if provErr.Type != provider.ErrTypeHTTPStatus || provErr.Message != "quota exceeded" {
		t.Errorf("got %+v", provErr)
	}
}

func TestStreamCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseBody(textEvent("never seen")))
	}))
	defer server.Close()

	client := New(&Config{BaseURL: server.URL, APIKey: "test-key"})
	_, err := client.Stream(ctx, nil, "hi", nil, provider.Flags{}, func(string, *model.GroundingMetadata) {})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if !provider.IsCancelled(err) {
		t.Errorf("expected cancellation error, got %v", err)
	}
}

func TestCapabilities(t *testing.T) {
	client := New(nil)
	if client.Name() != provider.Gemini {
		t.Errorf("Name() = %v", client.Name())
	}
	if !client.SupportsSearch() || !client.SupportsAttachments() {
		t.Error("expected full multimodal capability set")
	}
}
