// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini implements the multimodal streaming driver against the
// Generative Language REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/jeranaias/ember-tui/internal/model"
	"github.com/jeranaias/ember-tui/internal/provider"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// Config holds configuration options for the Gemini client.
type Config struct {
	// BaseURL of the Generative Language API.
	BaseURL string

	// APIKey authenticates every request.
	APIKey string

	// Model is the model identifier (default: "gemini-2.5-flash").
	Model string

	// ConnectTimeout bounds connection establishment; the stream itself is
	// bounded only by the request context.
	ConnectTimeout time.Duration

	// ThinkingBudget is the bounded reasoning resource hint, in tokens,
	// attached when the deep-think flag is set.
	ThinkingBudget int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://generativelanguage.googleapis.com",
		Model:          "gemini-2.5-flash",
		ConnectTimeout: 15 * time.Second,
		ThinkingBudget: 2048,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client streams chat completions from the Gemini API.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// New creates a Gemini client. Zero values in cfg fall back to defaults.
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.ThinkingBudget == 0 {
		cfg.ThinkingBudget = def.ThinkingBudget
	}

	return &Client{
		config: cfg,
		// No overall timeout: streams are long-lived and cancelled via context.
		httpClient: &http.Client{},
	}
}

// Name implements provider.Provider.
func (c *Client) Name() provider.Name { return provider.Gemini }

// SupportsSearch implements provider.Provider.
func (c *Client) SupportsSearch() bool { return true }

// SupportsAttachments implements provider.Provider.
func (c *Client) SupportsAttachments() bool { return true }

// =============================================================================
// REQUEST TYPES
// =============================================================================

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type tool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generationConfig struct {
	ThinkingConfig *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Tools             []tool            `json:"tools,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// =============================================================================
// STREAMING
// =============================================================================

// Stream implements provider.Provider. History entries that would produce no
// parts (empty text, no attachments) are excluded from the outbound payload;
// the new user turn is sent as the final content entry.
func (c *Client) Stream(ctx context.Context, history []*model.Message, text string,
	attachments []model.Attachment, flags provider.Flags, onChunk provider.ChunkFunc) (string, error) {

	if c.config.APIKey == "" {
		return "", &provider.Error{
			Provider: provider.Gemini,
			Type:     provider.ErrTypeMissingKey,
			Message:  "missing API key",
			Cause:    provider.ErrMissingAPIKey,
		}
	}

	reqBody := c.buildRequest(history, text, attachments, flags)
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &provider.Error{Provider: provider.Gemini, Type: provider.ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	endpoint := c.config.BaseURL + "/v1beta/models/" + url.PathEscape(c.config.Model) +
		":streamGenerateContent?alt=sse&key=" + url.QueryEscape(c.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &provider.Error{Provider: provider.Gemini, Type: provider.ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", &provider.Error{Provider: provider.Gemini, Type: provider.ErrTypeCancelled, Message: "request cancelled", Cause: err}
		}
		return "", &provider.Error{Provider: provider.Gemini, Type: provider.ErrTypeConnection, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return "", &provider.Error{Provider: provider.Gemini, Type: provider.ErrTypeHTTPStatus, Message: apiErr.Error.Message}
		}
		return "", &provider.Error{Provider: provider.Gemini, Type: provider.ErrTypeHTTPStatus, Message: "stream request failed: " + resp.Status}
	}
	if resp.Body == nil {
		return "", &provider.Error{Provider: provider.Gemini, Type: provider.ErrTypeInvalidResponse, Message: "empty response", Cause: provider.ErrEmptyBody}
	}

	reader := newSSEReader(resp.Body)
	if err := reader.Process(ctx, onChunk); err != nil {
		if errors.Is(err, context.Canceled) {
			return reader.Accumulated(), &provider.Error{Provider: provider.Gemini, Type: provider.ErrTypeCancelled, Message: "stream cancelled", Cause: err}
		}
		return reader.Accumulated(), &provider.Error{Provider: provider.Gemini, Type: provider.ErrTypeInvalidResponse, Message: "stream failed", Cause: err}
	}

	return reader.Accumulated(), nil
}

// buildRequest maps the conversation into the API's role/part structure.
func (c *Client) buildRequest(history []*model.Message, text string,
	attachments []model.Attachment, flags provider.Flags) generateRequest {

	contents := make([]content, 0, len(history)+1)
	for _, msg := range history {
		entry := content{Role: roleFor(msg.Role), Parts: partsFor(msg)}
		if len(entry.Parts) == 0 {
			continue
		}
		contents = append(contents, entry)
	}

	// The live user turn: text plus its attachments.
	live := content{Role: "user"}
	if text != "" {
		live.Parts = append(live.Parts, part{Text: text})
	}
	for _, att := range attachments {
		live.Parts = append(live.Parts, part{InlineData: &inlineData{MIMEType: att.MIMEType, Data: att.Data}})
	}
	contents = append(contents, live)

	req := generateRequest{
		Contents: contents,
		SystemInstruction: &content{
			Parts: []part{{Text: provider.BuildSystemInstruction(flags, true)}},
		},
	}

	if flags.UseSearch {
		req.Tools = []tool{{GoogleSearch: &struct{}{}}}
	}
	if flags.UseDeepThink {
		req.GenerationConfig = &generationConfig{
			ThinkingConfig: &thinkingConfig{ThinkingBudget: c.config.ThinkingBudget},
		}
	}

	return req
}

func roleFor(r model.Role) string {
	if r == model.RoleModel {
		return "model"
	}
	return "user"
}

func partsFor(msg *model.Message) []part {
	var parts []part
	if t := msg.DisplayText(); t != "" {
		parts = append(parts, part{Text: t})
	}
	for _, att := range msg.Attachments {
		parts = append(parts, part{InlineData: &inlineData{MIMEType: att.MIMEType, Data: att.Data}})
	}
	return parts
}
