package amygdala

import (
	"testing"
	"time"

	"affectengine/internal/affect"
)

func TestEvaluateNotTriggeredBelowThreshold(t *testing.T) {
	a := New(Config{OverrideEnabled: true})
	var e affect.Vector24
	e[affect.IdxFear] = 0.3
	resp := a.Evaluate(e, 0.6, nil, time.Now())
	if resp.Triggered {
		t.Fatal("expected no trigger below threshold")
	}
}

func TestEvaluateTriggersOnCriticalEmotionAboveThreshold(t *testing.T) {
	a := New(Config{OverrideEnabled: true})
	var e affect.Vector24
	e[affect.IdxFear] = 0.9
	resp := a.Evaluate(e, 0.6, nil, time.Now())
	if !resp.Triggered {
		t.Fatal("expected trigger")
	}
	if resp.Action != ActionFlight {
		t.Fatalf("expected FUITE action for Fear, got %s", resp.Action)
	}
	if resp.Priority != PriorityCritical {
		t.Fatalf("expected CRITIQUE priority for 0.9, got %s", resp.Priority)
	}
}

func TestEvaluateTriggersOnTraumaAboveThresholdMinusPoint2(t *testing.T) {
	a := New(Config{OverrideEnabled: true})
	var e affect.Vector24 // no critical emotion elevated
	traumas := []ActiveTrauma{{ID: "t1", Activation: 0.5}}
	resp := a.Evaluate(e, 0.6, traumas, time.Now())
	if !resp.Triggered {
		t.Fatal("expected trigger from trauma activation exceeding threshold-0.2")
	}
}

func TestEvaluateHorreurMapsToBlocage(t *testing.T) {
	a := New(Config{OverrideEnabled: true})
	var e affect.Vector24
	e[affect.IdxHorreur] = 0.95
	resp := a.Evaluate(e, 0.5, nil, time.Now())
	if resp.Action != ActionBlock {
		t.Fatalf("expected BLOCAGE for Horreur, got %s", resp.Action)
	}
}
