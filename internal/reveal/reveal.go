// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal decouples the rate at which streamed text becomes visible
// from the rate at which it arrives.
//
// Network chunks land in bursts at a cadence set by the remote service. A
// Pacer owns a visible prefix of the latest known text and advances it in
// bounded increments on a fixed short timer tick, producing a smooth typing
// effect that always converges to the full text. The increment scales with
// the backlog so the visible text never lags unboundedly behind a fast
// stream, with a small random jitter per tick for a natural feel.
//
// The owning view drives the tick loop and must stop ticking once Done
// reports convergence, and tear the pacer down with the view so no timer
// outlives the message it animates.
package reveal

import (
	"math/rand"
	"sync"
	"time"
)

// TickInterval is the pacing timer period used by the UI tick loop.
const TickInterval = 33 * time.Millisecond

// Default pacing configuration.
const (
	defaultBaseStep = 2  // runes revealed per tick with no backlog pressure
	defaultJitter   = 3  // upper bound (exclusive) of per-tick random extra
	catchUpDivisor  = 16 // one extra rune per this many runes of backlog
)

// =============================================================================
// PACER
// =============================================================================

// Pacer maintains the visible prefix of a growing target text.
//
// Thread-safety: all operations are mutex-protected since targets are set
// from stream callbacks while ticks run in the render loop.
type Pacer struct {
	mu      sync.Mutex
	target  []rune
	visible int

	baseStep int
	jitter   int
	rng      *rand.Rand
}

// NewPacer creates a pacer with default settings.
func NewPacer() *Pacer {
	return NewPacerWithConfig(defaultBaseStep, defaultJitter)
}

// NewPacerWithConfig creates a pacer with a custom base step and jitter
// bound. Zero or negative values fall back to the defaults.
func NewPacerWithConfig(baseStep, jitter int) *Pacer {
	if baseStep <= 0 {
		baseStep = defaultBaseStep
	}
	if jitter <= 0 {
		jitter = defaultJitter
	}
	return &Pacer{
		baseStep: baseStep,
		jitter:   jitter,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetTarget updates the text the visible prefix converges toward.
// The visible prefix never regresses on growth; if the target itself shrank
// (a defensive correction path, not expected during a well-behaved stream)
// the prefix is clamped to the new length.
func (p *Pacer) SetTarget(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.target = []rune(text)
	if p.visible > len(p.target) {
		p.visible = len(p.target)
	}
}

// Tick advances the visible prefix by one bounded increment.
// Returns true if the prefix moved, false when already converged.
func (p *Pacer) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	gap := len(p.target) - p.visible
	if gap <= 0 {
		return false
	}

	step := p.baseStep + gap/catchUpDivisor + p.rng.Intn(p.jitter)
	if step > gap {
		step = gap
	}
	p.visible += step
	return true
}

// Finish snaps the visible prefix to the full target. Called when the stream
// ends so no partial reveal dangles.
func (p *Pacer) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = len(p.target)
}

// Visible returns the currently revealed prefix.
func (p *Pacer) Visible() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.target[:p.visible])
}

// Done reports whether the visible prefix has reached the target. The tick
// loop goes quiet (no polling) while Done is true.
func (p *Pacer) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible >= len(p.target)
}
