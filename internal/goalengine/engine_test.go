package goalengine

import (
	"testing"
	"time"

	"affectengine/internal/affect"
	"affectengine/internal/amygdala"
)

func TestTickEmergencyFlagShortCircuits(t *testing.T) {
	e := New(DefaultConfig())
	e.SetEmergency(true, "FLEE_NOW")
	snap := e.Tick(affect.Vector24{}, 0, 1, nil, amygdala.EmergencyResponse{}, true, time.Now())
	if snap.G != 1 || !snap.Emergency || snap.DominantVariable != "FLEE_NOW" {
		t.Fatalf("expected emergency short-circuit, got %+v", snap)
	}
}

func TestTickAmygdalaTriggerShortCircuits(t *testing.T) {
	e := New(DefaultConfig())
	resp := amygdala.EmergencyResponse{Triggered: true, Action: amygdala.ActionFlight}
	snap := e.Tick(affect.Vector24{}, 0, 1, nil, resp, true, time.Now())
	if snap.G != 1 || snap.DominantVariable != string(amygdala.ActionFlight) {
		t.Fatalf("expected amygdala short-circuit, got %+v", snap)
	}
}

func TestTickRespectsEmotionThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StochasticAmplitude = 0
	e := New(cfg)
	var below affect.Vector24
	below[affect.IdxFear] = 0.01 // below the 0.05 threshold
	before := e.Variable(indexOf("Needs")).P
	e.Tick(below, 0, 1, nil, amygdala.EmergencyResponse{}, true, time.Now())
	after := e.Variable(indexOf("Needs")).P
	if before != after {
		t.Fatalf("expected sub-threshold emotion to not move Needs: %f -> %f", before, after)
	}
}

func TestTickAppliesEmotionMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StochasticAmplitude = 0
	e := New(cfg)
	var fear affect.Vector24
	fear[affect.IdxFear] = 0.9
	before := e.Variable(IdxTraumas).P
	e.Tick(fear, 0, 1, nil, amygdala.EmergencyResponse{}, true, time.Now())
	after := e.Variable(IdxTraumas).P
	if after <= before {
		t.Fatalf("expected high fear to raise Traumas.P: %f -> %f", before, after)
	}
}

func TestRecordTraumaLowersResilienceAndFloors(t *testing.T) {
	e := New(DefaultConfig())
	for i := 0; i < 50; i++ {
		e.RecordTrauma()
	}
	if e.Resilience() < 0.1 {
		t.Fatalf("expected resilience floor at 0.1, got %f", e.Resilience())
	}
}

func TestRecordSuccessRaisesResilienceAndCeilings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResilienceMax = 1.0
	e := New(cfg)
	for i := 0; i < 50; i++ {
		e.RecordSuccess()
	}
	if e.Resilience() > cfg.ResilienceMax {
		t.Fatalf("expected resilience ceiling at %f, got %f", cfg.ResilienceMax, e.Resilience())
	}
}

func TestRecomputeMemoryPullNormalizesByTotalWeight(t *testing.T) {
	edges := []CausalEdge{
		{Strength: 1, AffectValence: 0.5, AffectIntensity: 0.8},
		{Strength: 1, AffectValence: -0.5, AffectIntensity: 0.4},
	}
	pull := recomputeMemoryPull(edges, DefaultConfig())
	if pull.Positive <= 0 || pull.Negative <= 0 {
		t.Fatalf("expected both positive and negative pull, got %+v", pull)
	}
}

func TestRecomputeMemoryPullDetectsTrauma(t *testing.T) {
	edges := []CausalEdge{
		{Strength: 1, AffectValence: -0.5, AffectIntensity: 0.8, FearIndex: 0.8, AnxietyIndex: 0.8, ShameIndex: 0.7},
	}
	pull := recomputeMemoryPull(edges, DefaultConfig())
	if pull.Trauma <= 0 {
		t.Fatalf("expected trauma contribution, got %+v", pull)
	}
}

func TestDefaultVariableWeightsSumToOne(t *testing.T) {
	e := New(DefaultConfig())
	sum := 0.0
	for _, v := range e.variables {
		sum += v.W
	}
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("expected default weights to sum to 1, got %f", sum)
	}
}
