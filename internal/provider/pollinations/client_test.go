// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pollinations

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jeranaias/ember-tui/internal/model"
	"github.com/jeranaias/ember-tui/internal/provider"
)

// chunkedReader yields its payload in fixed-size byte slices, so tests can
// force multi-byte runes to straddle read boundaries.
type chunkedReader struct {
	data []byte
	size int
	pos  int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	end := r.pos + r.size
	if end > len(r.data) {
		end = len(r.data)
	}
	n := copy(p, r.data[r.pos:end])
	r.pos += n
	return n, nil
}

func TestReadStreamRuneBoundaries(t *testing.T) {
	text := "héllo wörld 你好 🚀 done"

	for size := 1; size <= 5; size++ {
		var chunks []string
		final, err := readStream(context.Background(), &chunkedReader{data: []byte(text), size: size}, func(fragment string, meta *model.GroundingMetadata) {
			chunks = append(chunks, fragment)
		})
		if err != nil {
			t.Fatalf("size %d: readStream failed: %v", size, err)
		}
		if final != text {
			t.Errorf("size %d: final = %q, want %q", size, final, text)
		}
		for _, fragment := range chunks {
			if !utf8.ValidString(fragment) {
				t.Errorf("size %d: fragment %q is not valid UTF-8", size, fragment)
			}
		}
		if joined := strings.Join(chunks, ""); joined != text {
			t.Errorf("size %d: joined chunks = %q, want %q", size, joined, text)
		}
	}
}

func TestStreamForwardsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "The answer is 42.")
	}))
	defer server.Close()

	client := New(&Config{Endpoint: server.URL})

	var got strings.Builder
	final, err := client.Stream(context.Background(), nil, "question", nil, provider.Flags{}, func(fragment string, meta *model.GroundingMetadata) {
		got.WriteString(fragment)
		if meta != nil {
			t.Error("expected no grounding metadata from this backend")
		}
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if final != "The answer is 42." {
		t.Errorf("final = %q", final)
	}
	if got.String() != final {
		t.Errorf("chunks = %q, want %q", got.String(), final)
	}
}

func TestRequestShape(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		io.WriteString(w, "ok")
	}))
	defer server.Close()

	client := New(&Config{Endpoint: server.URL, Model: "openai", Seed: 7})

	history := []*model.Message{
		model.NewUserMessage("first question", nil),
		func() *model.Message {
			m := model.NewModelMessage("pollinations")
			m.AppendChunk("first answer")
			m.FinalizeStream()
			return m
		}(),
	}

	_, err := client.Stream(context.Background(), history, "second question", nil, provider.Flags{}, func(string, *model.GroundingMetadata) {})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if captured.Model != "openai" || captured.Seed != 7 || captured.JSONMode {
		t.Errorf("request envelope = %+v", captured)
	}
	if len(captured.Messages) != 4 {
		t.Fatalf("got %d messages, want 4", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || captured.Messages[0].Content == "" {
		t.Errorf("first message should be the system instruction, got %+v", captured.Messages[0])
	}
	if captured.Messages[1].Role != "user" || captured.Messages[1].Content != "first question" {
		t.Errorf("history user turn = %+v", captured.Messages[1])
	}
	if captured.Messages[2].Role != "assistant" || captured.Messages[2].Content != "first answer" {
		t.Errorf("history model turn = %+v", captured.Messages[2])
	}
	if captured.Messages[3].Role != "user" || captured.Messages[3].Content != "second question" {
		t.Errorf("live turn = %+v", captured.Messages[3])
	}
}

// The search flag must not change the request payload for a backend that
// cannot search.
func TestSearchFlagDoesNotAlterPayload(t *testing.T) {
	var payloads []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		payloads = append(payloads, string(body))
		io.WriteString(w, "ok")
	}))
	defer server.Close()

	client := New(&Config{Endpoint: server.URL})
	noop := func(string, *model.GroundingMetadata) {}

	if _, err := client.Stream(context.Background(), nil, "same prompt", nil, provider.Flags{UseSearch: false}, noop); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if _, err := client.Stream(context.Background(), nil, "same prompt", nil, provider.Flags{UseSearch: true}, noop); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	if len(payloads) != 2 {
		t.Fatalf("got %d payloads, want 2", len(payloads))
	}
	if payloads[0] != payloads[1] {
		t.Errorf("payload differs with search flag:\n  off: %s\n  on:  %s", payloads[0], payloads[1])
	}
}

func TestAPIKeyQueryParameter(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		io.WriteString(w, "ok")
	}))
	defer server.Close()

	client := New(&Config{Endpoint: server.URL, APIKey: "secret-token"})
	if _, err := client.Stream(context.Background(), nil, "hi", nil, provider.Flags{}, func(string, *model.GroundingMetadata) {}); err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if gotKey != "secret-token" {
		t.Errorf("key query parameter = %q", gotKey)
	}
}

func TestHTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(&Config{Endpoint: server.URL})
	_, err := client.Stream(context.Background(), nil, "hi", nil, provider.Flags{}, func(string, *model.GroundingMetadata) {})
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
	var provErr *provider.Error
	if !errors.As(err, &provErr) || provErr.Type != provider.ErrTypeHTTPStatus {
		t.Errorf("expected HTTP status error, got %v", err)
	}
}

func TestStreamCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "never seen")
	}))
	defer server.Close()

	client := New(&Config{Endpoint: server.URL})
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
	if client.Name() != provider.Pollinations {
		t.Errorf("Name() = %v", client.Name())
	}
	if client.SupportsSearch() {
		t.Error("backend should not report search support")
	}
	if client.SupportsAttachments() {
		t.Error("backend should not report attachment support")
	}
}
