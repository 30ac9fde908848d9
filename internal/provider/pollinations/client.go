// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pollinations implements the plain HTTP streaming text driver.
//
// The API has no structured framing at all: the response body is the
// generated text itself, streamed as raw bytes and decoded incrementally as
// UTF-8. The driver supports neither attachments nor search nor grounding
// metadata; it forwards decoded fragments verbatim as text-only chunks.
package pollinations

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jeranaias/ember-tui/internal/model"
	"github.com/jeranaias/ember-tui/internal/provider"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config holds configuration options for the Pollinations client.
type Config struct {
	// Endpoint is the streaming completion URL.
	Endpoint string

	// APIKey is optional; when set it is passed as a query parameter.
	APIKey string

	// Model is the backend model identifier.
	Model string

	// Seed makes generations reproducible across retries of the same turn.
	Seed int

	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:       "https://text.pollinations.ai/",
		Model:          "openai",
		Seed:           42,
		ConnectTimeout: 15 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client streams chat completions from the Pollinations text API.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// New creates a Pollinations client. Zero values in cfg fall back to defaults.
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}

	return &Client{
		config: cfg,
		// No overall timeout: streams are long-lived and cancelled via context.
		httpClient: &http.Client{},
	}
}

// Name implements provider.Provider.
func (c *Client) Name() provider.Name { return provider.Pollinations }

// SupportsSearch implements provider.Provider. The search flag is silently
// ignored: request payloads are identical with it set or cleared.
func (c *Client) SupportsSearch() bool { return false }

// SupportsAttachments implements provider.Provider.
func (c *Client) SupportsAttachments() bool { return false }

// =============================================================================
// REQUEST TYPES
// =============================================================================

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
	Model    string        `json:"model"`
	Seed     int           `json:"seed"`
	JSONMode bool          `json:"jsonMode"`
}

// =============================================================================
// STREAMING
// =============================================================================

// Stream implements provider.Provider. Attachments are not supported by this
// backend and are dropped; only message text travels.
func (c *Client) Stream(ctx context.Context, history []*model.Message, text string,
	_ []model.Attachment, flags provider.Flags, onChunk provider.ChunkFunc) (string, error) {

	reqBody := c.buildRequest(history, text, flags)
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &provider.Error{Provider: provider.Pollinations, Type: provider.ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	endpoint := c.config.Endpoint
	if c.config.APIKey != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + "key=" + url.QueryEscape(c.config.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &provider.Error{Provider: provider.Pollinations, Type: provider.ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", &provider.Error{Provider: provider.Pollinations, Type: provider.ErrTypeCancelled, Message: "request cancelled", Cause: err}
		}
		return "", &provider.Error{Provider: provider.Pollinations, Type: provider.ErrTypeConnection, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &provider.Error{Provider: provider.Pollinations, Type: provider.ErrTypeHTTPStatus, Message: "stream request failed: " + resp.Status}
	}
	if resp.Body == nil {
		return "", &provider.Error{Provider: provider.Pollinations, Type: provider.ErrTypeInvalidResponse, Message: "empty response", Cause: provider.ErrEmptyBody}
	}

	final, err := readStream(ctx, resp.Body, onChunk)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return final, &provider.Error{Provider: provider.Pollinations, Type: provider.ErrTypeCancelled, Message: "stream cancelled", Cause: err}
		}
		return final, &provider.Error{Provider: provider.Pollinations, Type: provider.ErrTypeConnection, Message: "stream failed", Cause: err}
	}
	return final, nil
}

// buildRequest maps history into a flat role/content list prefixed by the
// system instruction, with the new user turn as the final entry. The search
// capability is never advertised here, so the payload cannot vary with the
// search flag.
func (c *Client) buildRequest(history []*model.Message, text string, flags provider.Flags) chatRequest {
	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{
		Role:    "system",
		Content: provider.BuildSystemInstruction(flags, false),
	})

	for _, msg := range history {
		content := msg.DisplayText()
		if content == "" {
			continue
		}
		role := "user"
		if msg.Role == model.RoleModel {
			role = "assistant"
		}
		messages = append(messages, chatMessage{Role: role, Content: content})
	}

	messages = append(messages, chatMessage{Role: "user", Content: text})

	return chatRequest{
		Messages: messages,
		Model:    c.config.Model,
		Seed:     c.config.Seed,
		JSONMode: false,
	}
}

// =============================================================================
// RAW BYTE STREAM DECODING
// =============================================================================

// readStream decodes the body incrementally as UTF-8, forwarding each
// decoded fragment verbatim. Multi-byte runes split across read boundaries
// are held back until their continuation bytes arrive.
func readStream(ctx context.Context, r io.Reader, onChunk provider.ChunkFunc) (string, error) {
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	var accumulator strings.Builder
	var carry []byte
	buf := make([]byte, 4096)

	for {
		select {
		case <-ctx.Done():
			return accumulator.String(), ctx.Err()
		default:
		}

		n, err := r.Read(buf)
		if n > 0 {
			carry = append(carry, buf[:n]...)
			cut := len(carry) - incompleteTail(carry)
			if cut > 0 {
				fragment := string(carry[:cut])
				accumulator.WriteString(fragment)
				onChunk(fragment, nil)
				carry = append(carry[:0:0], carry[cut:]...)
			}
		}

		if err == io.EOF {
			if len(carry) > 0 {
				fragment := string(carry)
				accumulator.WriteString(fragment)
				onChunk(fragment, nil)
			}
			return accumulator.String(), nil
		}
		if err != nil {
			return accumulator.String(), err
		}
	}
}

// incompleteTail returns how many bytes at the end of b belong to a UTF-8
// sequence still waiting for its continuation bytes.
func incompleteTail(b []byte) int {
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		c := b[len(b)-i]
		if utf8.RuneStart(c) {
			if utf8.FullRune(b[len(b)-i:]) {
				return 0
			}
			return i
		}
	}
	return 0
}
