package playback

import (
	"testing"
	"time"
)

func TestGatePauseFor(t *testing.T) {
	g := NewGate()

	if g.Active() {
		t.Error("new gate must not be active")
	}

	g.PauseFor(100 * time.Millisecond)
	if !g.Active() {
		t.Error("gate must be active after PauseFor")
	}

	remaining := g.Remaining()
	if remaining <= 0 || remaining > 100*time.Millisecond {
		t.Errorf("expected remaining in (0, 100ms], got %v", remaining)
	}
}

func TestGateCombinesViaMax(t *testing.T) {
	g := NewGate()

	g.PauseFor(500 * time.Millisecond)
	g.PauseFor(100 * time.Millisecond)

	// The shorter request must not cut the longer one, and the two must
	// not stack.
	remaining := g.Remaining()
	if remaining <= 300*time.Millisecond {
		t.Errorf("short request shortened the deadline: remaining %v", remaining)
	}
	if remaining > 500*time.Millisecond {
		t.Errorf("requests stacked: remaining %v", remaining)
	}
}

func TestGateExtendsViaMax(t *testing.T) {
	g := NewGate()

	g.PauseFor(100 * time.Millisecond)
	g.PauseFor(400 * time.Millisecond)

	remaining := g.Remaining()
	if remaining <= 200*time.Millisecond {
		t.Errorf("longer request did not extend the deadline: remaining %v", remaining)
	}
}

func TestGateIgnoresNonPositive(t *testing.T) {
	g := NewGate()

	g.PauseFor(0)
	g.PauseFor(-time.Second)

	if g.Active() {
		t.Error("non-positive durations must not activate the gate")
	}
}

func TestGateExpires(t *testing.T) {
	g := NewGate()

	g.PauseFor(30 * time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	if g.Active() {
		t.Error("gate must clear after the deadline passes")
	}
	if g.Remaining() != 0 {
		t.Errorf("expected zero remaining, got %v", g.Remaining())
	}
}

func TestGateReset(t *testing.T) {
	g := NewGate()

	g.PauseFor(time.Hour)
	g.Reset()

	if g.Active() {
		t.Error("gate must be clear after Reset")
	}

	// Reusable after reset.
	g.PauseFor(100 * time.Millisecond)
	if !g.Active() {
		t.Error("gate must activate again after Reset")
	}
}
