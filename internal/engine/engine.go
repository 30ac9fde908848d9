// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine orchestrates the send lifecycle of a chat turn.
//
// A turn appends the user message and an empty streaming reply to the
// session, invokes the active provider with the prior history, and funnels
// incremental chunks into the reply message. The session history is
// append-only: a failed stream replaces only the reply's text with a fixed
// apology, never rolling back the user message.
//
// # Usage
//
//	eng := engine.New(engine.Config{
//	    Providers: []provider.Provider{gemini.New(cfg), pollinations.New(nil)},
//	    OnUpdate:  func(messageID string) { program.Send(chat.StreamChunkMsg{MessageID: messageID}) },
//	    OnPersist: func(sess *model.ChatSession) { store.Save(sess) },
//	})
//	sess, err := eng.Send(ctx, nil, "hello", nil, provider.Flags{})
package engine

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"github.com/jeranaias/ember-tui/internal/model"
	"github.com/jeranaias/ember-tui/internal/provider"
)

// ErrorFallbackText replaces the reply text when a stream fails. The user
// message stays in history so the turn can be retried by resending.
const ErrorFallbackText = "I'm sorry, something went wrong while generating a response. Please try again."

var (
	// ErrSessionBusy is returned when a session already has a stream in flight.
	ErrSessionBusy = errors.New("session already has a response in flight")

	// ErrUnknownProvider is returned when no driver matches the active name.
	ErrUnknownProvider = errors.New("no such provider")
)

// =============================================================================
// ENGINE
// =============================================================================

// Config holds configuration for the engine.
type Config struct {
	// Providers are the available backend drivers. The first entry is the
	// initially active provider.
	Providers []provider.Provider

	// RequestsPerMinute caps how often streams may start. Zero disables
	// pacing.
	RequestsPerMinute int

	// OnUpdate is called after every visible change to a message, with the
	// changed message's ID. Called from the streaming goroutine.
	OnUpdate func(messageID string)

	// OnPersist is called once a turn reaches a terminal state, so the
	// caller can save the session.
	OnPersist func(sess *model.ChatSession)
}

// Engine coordinates providers, per-session stream state, and request pacing.
type Engine struct {
	mu        sync.Mutex
	providers map[provider.Name]provider.Provider
	active    provider.Name
	busy      map[string]bool
	cancels   map[string]context.CancelFunc
	limiter   *rate.Limiter

	onUpdate  func(messageID string)
	onPersist func(sess *model.ChatSession)
}

// New creates an engine from the given configuration.
func New(cfg Config) *Engine {
	e := &Engine{
		providers: make(map[provider.Name]provider.Provider),
		busy:      make(map[string]bool),
		cancels:   make(map[string]context.CancelFunc),
		onUpdate:  cfg.OnUpdate,
		onPersist: cfg.OnPersist,
	}
	for i, p := range cfg.Providers {
		e.providers[p.Name()] = p
		if i == 0 {
			e.active = p.Name()
		}
	}
	if cfg.RequestsPerMinute > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}
	return e
}

// =============================================================================
// PROVIDER SELECTION
// =============================================================================

// ActiveProvider returns the name of the provider used for new turns.
func (e *Engine) ActiveProvider() provider.Name {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// SetActiveProvider switches the driver used for new turns. In-flight
// streams keep the provider they started with.
func (e *Engine) SetActiveProvider(name provider.Name) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.providers[name]; !ok {
		return ErrUnknownProvider
	}
	e.active = name
	return nil
}

// Provider returns the driver registered under name, if any.
func (e *Engine) Provider(name provider.Name) (provider.Provider, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.providers[name]
	return p, ok
}

// ProviderNames returns the registered drivers in a stable order, the
// active one first.
func (e *Engine) ProviderNames() []provider.Name {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := []provider.Name{e.active}
	for name := range e.providers {
		if name != e.active {
			names = append(names, name)
		}
	}
	return names
}

// =============================================================================
// SEND LIFECYCLE
// =============================================================================

// Send runs one full chat turn and blocks until the stream reaches a
// terminal state. When sess is nil, a new session is created; the (possibly
// new) session is always returned, even on failure, so the caller keeps the
// appended messages.
//
// Callers run Send on their own goroutine; chunk updates arrive through the
// OnUpdate callback.
func (e *Engine) Send(ctx context.Context, sess *model.ChatSession, text string,
	attachments []model.Attachment, flags provider.Flags) (*model.ChatSession, error) {

	if sess == nil {
		sess = model.NewChatSession()
	}

	e.mu.Lock()
	p, ok := e.providers[e.active]
	if !ok {
		e.mu.Unlock()
		return sess, ErrUnknownProvider
	}
	if e.busy[sess.ID] {
		e.mu.Unlock()
		return sess, ErrSessionBusy
	}
	streamCtx, cancel := context.WithCancel(ctx)
	e.busy[sess.ID] = true
	e.cancels[sess.ID] = cancel
	e.mu.Unlock()

	defer func() {
		cancel()
		e.mu.Lock()
		delete(e.busy, sess.ID)
		delete(e.cancels, sess.ID)
		e.mu.Unlock()
	}()

	// Snapshot history before this turn's messages join the session: the
	// provider receives prior turns plus the new text, never the empty reply.
	history := sess.History()

	userMsg := model.NewUserMessage(text, attachments)
	sess.AddMessage(userMsg)

	reply := model.NewModelMessage(p.Name().String())
	sess.AddMessage(reply)
	e.notify(reply.ID)

	if e.limiter != nil {
		if err := e.limiter.Wait(streamCtx); err != nil {
			e.fail(sess, reply)
			return sess, &provider.Error{Provider: p.Name(), Type: provider.ErrTypeCancelled, Message: "cancelled before stream start", Cause: err}
		}
	}

	final, err := p.Stream(streamCtx, history, text, attachments, flags, func(delta string, meta *model.GroundingMetadata) {
		reply.AppendChunk(delta)
		reply.MergeGrounding(meta)
		e.notify(reply.ID)
	})

	if err != nil {
		// A user-cancelled stream keeps whatever arrived; every other
		// failure shows the apology.
		if provider.IsCancelled(err) && reply.DisplayText() != "" {
			reply.FinalizeStream()
		} else {
			e.fail(sess, reply)
			return sess, err
		}
		e.notify(reply.ID)
		e.persist(sess)
		return sess, err
	}

	reply.FinalizeStream()
	// The provider's accumulated text is ground truth if chunk delivery and
	// finalization ever disagree.
	reply.EnsureFinalText(final)
	e.notify(reply.ID)
	e.persist(sess)
	return sess, nil
}

// fail settles the reply into the apology state and persists.
func (e *Engine) fail(sess *model.ChatSession, reply *model.Message) {
	reply.FailStream(ErrorFallbackText)
	e.notify(reply.ID)
	e.persist(sess)
}

func (e *Engine) notify(messageID string) {
	if e.onUpdate != nil {
		e.onUpdate(messageID)
	}
}

func (e *Engine) persist(sess *model.ChatSession) {
	if e.onPersist != nil {
		e.onPersist(sess)
	}
}

// =============================================================================
// STREAM STATE
// =============================================================================

// Busy reports whether the session has a stream in flight.
func (e *Engine) Busy(sessionID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy[sessionID]
}

// Cancel aborts the session's in-flight stream, if any. Returns whether a
// stream was cancelled.
func (e *Engine) Cancel(sessionID string) bool {
	e.mu.Lock()
	cancel, ok := e.cancels[sessionID]
	e.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// CancelAll aborts every in-flight stream. Used on shutdown.
func (e *Engine) CancelAll() {
	e.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(e.cancels))
	for _, cancel := range e.cancels {
		cancels = append(cancels, cancel)
	}
	e.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}
