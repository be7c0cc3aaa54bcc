package engine

import (
	"context"
	"testing"
	"time"

	"affectengine/internal/affect"
	"affectengine/internal/config"
	"affectengine/internal/decision"
)

func testConfig(t *testing.T) config.EngineConfig {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func TestRuntimePushAffectDrivesATick(t *testing.T) {
	r := New(testConfig(t), nil, nil, nil)

	var e affect.Vector24
	e[affect.IdxJoy] = 0.6
	r.PushAffect(context.Background(), e)

	// runTick normally runs off the tickLoop goroutine; exercise it
	// directly here since Run isn't started in this test.
	r.runTick(e, time.Now())

	state, ok := r.LatestState()
	if !ok {
		t.Fatal("expected a state snapshot after a tick")
	}
	if state.Emotions["Joy"] <= 0 {
		t.Fatalf("expected nonzero Joy in the published state, got %+v", state.Emotions)
	}

	consc, ok := r.LatestConsciousness()
	if !ok {
		t.Fatal("expected a consciousness snapshot after a tick")
	}
	if consc.Timestamp.IsZero() {
		t.Fatal("expected a nonzero consciousness timestamp")
	}
}

func TestEnqueueTickDropsOldestWhenFull(t *testing.T) {
	r := New(testConfig(t), nil, nil, nil)
	r.affectCh = make(chan affect.Vector24, 2)

	var a, b, c affect.Vector24
	a[affect.IdxJoy] = 0.1
	b[affect.IdxJoy] = 0.2
	c[affect.IdxJoy] = 0.3

	r.enqueueTick(a)
	r.enqueueTick(b)
	r.enqueueTick(c) // channel full at this point; a should be dropped

	first := <-r.affectCh
	second := <-r.affectCh
	if first[affect.IdxJoy] != 0.2 || second[affect.IdxJoy] != 0.3 {
		t.Fatalf("expected oldest entry dropped, got %v then %v", first, second)
	}
}

func TestDecideFillsInFromLatestTick(t *testing.T) {
	r := New(testConfig(t), nil, nil, nil)

	var e affect.Vector24
	e[affect.IdxFear] = 0.2
	r.runTick(e, time.Now())

	result := r.Decide(context.Background(), decision.Input{ContextType: "meeting"})
	if result.ChosenOption.Name == "" {
		t.Fatal("expected Decide to return a chosen option once Affect/Ct/Ft are filled in from the latest tick")
	}
}

func TestDecideReturnsZeroValueOnCancelledContext(t *testing.T) {
	r := New(testConfig(t), nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := r.Decide(ctx, decision.Input{ContextType: "meeting"})
	if result.ChosenOption.Name != "" {
		t.Fatalf("expected a zero-value result for a cancelled context, got %+v", result)
	}
}

func TestFullSnapshotBundlesEveryComponent(t *testing.T) {
	src := New(testConfig(t), nil, nil, nil)

	var e affect.Vector24
	e[affect.IdxJoy] = 0.7
	src.runTick(e, time.Now())

	snap := src.FullSnapshot()
	if snap.ExportedAt.IsZero() {
		t.Fatal("expected a nonzero ExportedAt")
	}
	if len(snap.Patterns) == 0 {
		t.Fatal("expected the base patterns to appear in the bundled snapshot")
	}

	dst := New(testConfig(t), nil, nil, nil)
	result := dst.ImportFullSnapshot(snap)
	if result.PatternsImported != len(snap.Patterns) {
		t.Fatalf("expected %d patterns imported, got %d", len(snap.Patterns), result.PatternsImported)
	}
	if got := dst.ListPatterns(); len(got) != len(snap.Patterns) {
		t.Fatalf("expected the destination's pattern store to match, got %d patterns", len(got))
	}
}
