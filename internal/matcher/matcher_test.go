package matcher

import (
	"testing"
	"time"

	"affectengine/internal/affect"
	"affectengine/internal/buffer"
	"affectengine/internal/pattern"
)

func pushJoy(t *testing.T, r *buffer.Ring, n int, base time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		var e affect.Vector24
		e[affect.IdxJoy] = 0.8
		if err := r.Push(affect.TimestampedState{E: e, Timestamp: base.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
}

func TestMatchFallsBackToSerenityWithoutSignature(t *testing.T) {
	cfg := DefaultConfig()
	r := buffer.New(buffer.DefaultConfig())
	s := pattern.New(pattern.DefaultConfig())
	m := New(cfg, r, s)

	res := m.Match(time.Now())
	if res.PatternID != pattern.IDSerenity {
		t.Fatalf("expected SERENITY fallback, got %s", res.PatternID)
	}
}

func TestHysteresisRequiresMinFramesBeforeSwitch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinFramesBeforeSwitch = 100
	cfg.MinPhaseDuration = 0
	r := buffer.New(buffer.DefaultConfig())
	s := pattern.New(pattern.DefaultConfig())
	m := New(cfg, r, s)

	base := time.Now()
	pushJoy(t, r, 10, base)

	res := m.Match(base.Add(10 * time.Second))
	if res.PatternID != pattern.IDSerenity {
		t.Fatalf("expected hysteresis to hold current pattern, switched to %s", res.PatternID)
	}
}

func TestMatchSwitchesAfterFramesAndDuration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinFramesBeforeSwitch = 1
	cfg.MinPhaseDuration = 0
	r := buffer.New(buffer.DefaultConfig())
	s := pattern.New(pattern.DefaultConfig())
	m := New(cfg, r, s)

	base := time.Now()
	pushJoy(t, r, 10, base)

	first := m.Match(base.Add(10 * time.Second))
	_ = first
	second := m.Match(base.Add(11 * time.Second))
	if second.PatternID != "base_joy" {
		t.Fatalf("expected switch to base_joy after frame gate clears, got %s (decision=%s)", second.PatternID, second.Decision)
	}
}

func TestConfirmOnBasePatternIsNoOp(t *testing.T) {
	cfg := DefaultConfig()
	r := buffer.New(buffer.DefaultConfig())
	s := pattern.New(pattern.DefaultConfig())
	m := New(cfg, r, s)

	before, _ := s.Get(pattern.IDSerenity)
	if err := m.Confirm(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = before // base pattern: AdjustCoefficients is a no-op, confirm should not error
}
