package mqtt

import (
	"testing"

	"affectengine/internal/affect"
)

func TestAffectMessageToVector24DefaultsMissingToZero(t *testing.T) {
	msg := AffectMessage{Emotions: map[string]float64{"Joy": 0.7, "Fear": 0.2}}
	v := msg.ToVector24()
	if v[affect.IdxJoy] != 0.7 {
		t.Fatalf("expected Joy 0.7, got %f", v[affect.IdxJoy])
	}
	if v[affect.IdxFear] != 0.2 {
		t.Fatalf("expected Fear 0.2, got %f", v[affect.IdxFear])
	}
	if v[affect.IdxSadness] != 0 {
		t.Fatalf("expected missing emotion to default to 0, got %f", v[affect.IdxSadness])
	}
}

func TestTopicsCarryPrefix(t *testing.T) {
	if got := TopicAffectIn("engine"); got != "engine/affect/in" {
		t.Fatalf("unexpected affect topic: %s", got)
	}
	if got := TopicDecisionOut("engine"); got != "engine/decision/out" {
		t.Fatalf("unexpected decision topic: %s", got)
	}
}
