package pg

import (
	"encoding/json"
	"testing"
)

func TestDecodePayloadFromRawMessage(t *testing.T) {
	raw := json.RawMessage(`{"memory_id":"m1","kind":"episode","weight":0.5}`)
	p, err := decodePayload[memoryPayload](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.MemoryID != "m1" || p.Kind != "episode" || p.Weight != 0.5 {
		t.Fatalf("unexpected decode: %+v", p)
	}
}

func TestDecodePayloadFromConcreteValue(t *testing.T) {
	in := memoryPayload{MemoryID: "m2", Weight: 1.0}
	p, err := decodePayload[memoryPayload](in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.MemoryID != "m2" {
		t.Fatalf("expected passthrough of concrete value, got %+v", p)
	}
}

func TestOrDefault(t *testing.T) {
	if got := orDefault(0, 1.0); got != 1.0 {
		t.Fatalf("expected default 1.0, got %f", got)
	}
	if got := orDefault(0.5, 1.0); got != 0.5 {
		t.Fatalf("expected passthrough 0.5, got %f", got)
	}
}
