package circuit

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"affectengine/internal/apperr"
	"affectengine/internal/memory"
)

type flakyStore struct {
	failures int32 // number of calls left that should fail
	calls    int32
}

func (f *flakyStore) Dispatch(ctx context.Context, req memory.Request) (memory.Response, error) {
	atomic.AddInt32(&f.calls, 1)
	if atomic.LoadInt32(&f.failures) > 0 {
		atomic.AddInt32(&f.failures, -1)
		return memory.Response{}, errors.New("boom")
	}
	return memory.Response{RequestID: req.RequestID}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestStoreRetriesThenSucceeds(t *testing.T) {
	inner := &flakyStore{failures: 2}
	b := New(inner, 50*time.Millisecond, 3, 5, 100*time.Millisecond, discardLogger())

	resp, err := b.Dispatch(context.Background(), memory.Request{RequestID: "r1", RequestType: memory.RequestGetMemory})
	if err != nil {
		t.Fatalf("expected eventual success within maxRetries, got %v", err)
	}
	if resp.RequestID != "r1" {
		t.Fatalf("expected response to carry the request id, got %+v", resp)
	}
	if inner.calls != 3 {
		t.Fatalf("expected 2 failures + 1 success = 3 calls, got %d", inner.calls)
	}
}

func TestStoreOpensAfterThreshold(t *testing.T) {
	inner := &flakyStore{failures: 100}
	b := New(inner, 10*time.Millisecond, 0, 2, time.Hour, discardLogger())

	for i := 0; i < 2; i++ {
		if _, err := b.Dispatch(context.Background(), memory.Request{RequestType: memory.RequestGetMemory}); err == nil {
			t.Fatal("expected failure while the flaky store is failing")
		}
	}

	_, err := b.Dispatch(context.Background(), memory.Request{RequestType: memory.RequestGetMemory})
	var notReady *apperr.NotReady
	if !errors.As(err, &notReady) {
		t.Fatalf("expected the breaker to be open after %d consecutive failures, got %v", 2, err)
	}
}

func TestStoreHalfOpensAfterCooldown(t *testing.T) {
	inner := &flakyStore{failures: 2}
	b := New(inner, 10*time.Millisecond, 0, 2, 20*time.Millisecond, discardLogger())

	for i := 0; i < 2; i++ {
		_, _ = b.Dispatch(context.Background(), memory.Request{RequestType: memory.RequestGetMemory})
	}
	if _, err := b.Dispatch(context.Background(), memory.Request{RequestType: memory.RequestGetMemory}); err == nil {
		t.Fatal("expected the breaker open within the cooldown window")
	}

	time.Sleep(25 * time.Millisecond)
	resp, err := b.Dispatch(context.Background(), memory.Request{RequestID: "probe", RequestType: memory.RequestGetMemory})
	if err != nil {
		t.Fatalf("expected the half-open probe to succeed once the store recovers, got %v", err)
	}
	if resp.RequestID != "probe" {
		t.Fatalf("expected the probe response, got %+v", resp)
	}
}
