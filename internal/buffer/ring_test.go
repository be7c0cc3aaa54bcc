package buffer

import (
	"testing"
	"time"

	"affectengine/internal/affect"
	"affectengine/internal/apperr"
)

func TestPushRejectsNaN(t *testing.T) {
	r := New(DefaultConfig())
	var e affect.Vector24
	e[0] = 0.5
	e[1] = naN()
	err := r.Push(affect.TimestampedState{E: e, Timestamp: time.Now()})
	if err == nil {
		t.Fatal("expected validation error")
	}
	var vErr *apperr.ValidationError
	if !asValidationError(err, &vErr) {
		t.Fatalf("expected *apperr.ValidationError, got %T", err)
	}
	if vErr.Code != apperr.CodeNaNOrInf {
		t.Fatalf("expected CodeNaNOrInf, got %s", vErr.Code)
	}
}

func TestSizeBoundedByMaxSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSize = 3
	r := New(cfg)
	now := time.Now()
	for i := 0; i < 10; i++ {
		var e affect.Vector24
		e[0] = 0.3
		if err := r.Push(affect.TimestampedState{E: e, Timestamp: now.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatalf("push %d failed: %v", i, err)
		}
	}
	if got := r.Size(); got > cfg.MaxSize {
		t.Fatalf("size %d exceeds max_size %d", got, cfg.MaxSize)
	}
}

func TestExtractSignatureAbsentBelowMinSamples(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSamplesForSignature = 4
	r := New(cfg)
	now := time.Now()
	for i := 0; i < 3; i++ {
		var e affect.Vector24
		e[0] = 0.2
		_ = r.Push(affect.TimestampedState{E: e, Timestamp: now.Add(time.Duration(i) * time.Second)})
	}
	if _, ok := r.ExtractSignature(); ok {
		t.Fatal("expected signature to be absent below min_samples_for_signature")
	}
}

func TestExtractSignatureDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSamplesForSignature = 3
	r := New(cfg)
	now := time.Now()
	for i := 0; i < 6; i++ {
		var e affect.Vector24
		e[affect.IdxJoy] = 0.1 * float64(i+1)
		_ = r.Push(affect.TimestampedState{E: e, Timestamp: now.Add(time.Duration(i) * time.Second)})
	}
	sig1, ok1 := r.ExtractSignature()
	sig2, ok2 := r.ExtractSignature()
	if !ok1 || !ok2 {
		t.Fatal("expected signature present")
	}
	if sig1 != sig2 {
		t.Fatal("expected signature extraction to be deterministic without intervening mutation")
	}
}

func naN() float64 {
	var zero float64
	return zero / zero
}

func asValidationError(err error, target **apperr.ValidationError) bool {
	ve, ok := err.(*apperr.ValidationError)
	if !ok {
		return false
	}
	*target = ve
	return true
}
