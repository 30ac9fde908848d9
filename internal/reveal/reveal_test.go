// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"strings"
	"testing"
)

// =============================================================================
// CONVERGENCE
// =============================================================================

// TestRevealConvergence verifies the visible prefix reaches a static target
// in bounded ticks and never exceeds it.
func TestRevealConvergence(t *testing.T) {
	target := strings.Repeat("lorem ipsum ", 40) // 480 runes
	p := NewPacer()
	p.SetTarget(target)

	ticks := 0
	for !p.Done() {
		if !p.Tick() {
			t.Fatal("Tick returned false before convergence")
		}
		ticks++
		if ticks > len(target) {
			t.Fatal("pacer failed to converge in bounded ticks")
		}

		visible := p.Visible()
		if len(visible) > len(target) {
			t.Fatalf("visible prefix exceeded target: %d > %d", len(visible), len(target))
		}
		if !strings.HasPrefix(target, visible) {
			t.Fatalf("visible text %q is not a prefix of target", visible)
		}
	}

	if p.Visible() != target {
		t.Error("converged pacer should reveal the full target")
	}
	if p.Tick() {
		t.Error("Tick after convergence should report no movement")
	}
}

func TestRevealNeverRegressesOnGrowth(t *testing.T) {
	p := NewPacer()
	p.SetTarget("hello")
	for !p.Done() {
		p.Tick()
	}

	p.SetTarget("hello world")
	if got := p.Visible(); got != "hello" {
		t.Errorf("growth must not move the visible prefix, got %q", got)
	}
	if p.Done() {
		t.Error("pacer should not be done after target grew")
	}
}

func TestRevealCatchUpScalesWithBacklog(t *testing.T) {
	small := NewPacerWithConfig(2, 1)
	small.SetTarget(strings.Repeat("a", 20))
	large := NewPacerWithConfig(2, 1)
	large.SetTarget(strings.Repeat("a", 2000))

	small.Tick()
	large.Tick()

	if len(large.Visible()) <= len(small.Visible()) {
		t.Errorf("large backlog should advance faster: %d vs %d",
			len(large.Visible()), len(small.Visible()))
	}
}

// =============================================================================
// TERMINAL BEHAVIOR
// =============================================================================

func TestRevealFinishSnapsToTarget(t *testing.T) {
	p := NewPacer()
	p.SetTarget("a complete answer that arrived all at once")
	p.Tick()

	p.Finish()
	if !p.Done() {
		t.Error("Finish should converge the pacer")
	}
	if p.Visible() != "a complete answer that arrived all at once" {
		t.Errorf("Finish left partial reveal: %q", p.Visible())
	}
}

func TestRevealShrinkCorrection(t *testing.T) {
	p := NewPacer()
	p.SetTarget("a long provisional text")
	p.Finish()

	// Target shrinks: the defensive path clamps the prefix.
	p.SetTarget("short")
	if got := p.Visible(); got != "short" {
		t.Errorf("shrunk target should clamp visible prefix, got %q", got)
	}
	if !p.Done() {
		t.Error("clamped pacer should report done")
	}
}

func TestRevealEmptyTarget(t *testing.T) {
	p := NewPacer()
	if !p.Done() {
		t.Error("fresh pacer with empty target should be done")
	}
	if p.Tick() {
		t.Error("Tick on empty target should not move")
	}
	if p.Visible() != "" {
		t.Errorf("Visible = %q, want empty", p.Visible())
	}
}

// TestRevealUnicodeSafety verifies prefixes never split multi-byte runes.
func TestRevealUnicodeSafety(t *testing.T) {
	target := strings.Repeat("héllo wörld 日本語 ", 10)
	p := NewPacerWithConfig(1, 1)
	p.SetTarget(target)

	for !p.Done() {
		p.Tick()
		visible := p.Visible()
		if !strings.HasPrefix(target, visible) {
			t.Fatalf("visible %q is not a valid rune prefix", visible)
		}
	}
}
