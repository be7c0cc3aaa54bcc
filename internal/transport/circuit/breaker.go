// Package circuit wraps a memory.ExternalStore with the retry, timeout and
// circuit-breaker policy of spec §5's "Cancellation & timeouts": external
// calls get a deadline, failures retry with exponential backoff up to
// max_retries, and consecutive failures past circuit_breaker_threshold open
// the breaker for circuit_breaker_timeout_s before the next call is allowed
// through as a half-open probe.
//
// No circuit-breaker library appears anywhere in the example pack (the
// teacher included); this is hand-rolled on sync/time per the
// standard-library justification rule.
package circuit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"affectengine/internal/apperr"
	"affectengine/internal/memory"
)

// state enumerates the three states of a classic circuit breaker.
type state int

const (
	closed state = iota
	open
	halfOpen
)

// Store decorates a memory.ExternalStore with the breaker policy, itself
// satisfying memory.ExternalStore so it drops into the engine wherever the
// plain store would.
type Store struct {
	next       memory.ExternalStore
	timeout    time.Duration
	maxRetries int
	threshold  int
	cooldown   time.Duration
	logger     *slog.Logger

	mu          sync.Mutex
	state       state
	consecutive int
	openedAt    time.Time
}

// New wraps next with the breaker policy described in the package doc.
func New(next memory.ExternalStore, timeout time.Duration, maxRetries, threshold int, cooldown time.Duration, logger *slog.Logger) *Store {
	return &Store{next: next, timeout: timeout, maxRetries: maxRetries, threshold: threshold, cooldown: cooldown, logger: logger}
}

func (b *Store) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case open:
		if time.Since(b.openedAt) >= b.cooldown {
			b.state = halfOpen
			return true
		}
		return false
	default:
		return true
	}
}

func (b *Store) recordResult(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.state = closed
		b.consecutive = 0
		return
	}
	b.consecutive++
	if b.state == halfOpen || b.consecutive >= b.threshold {
		b.state = open
		b.openedAt = time.Now()
	}
}

// Dispatch retries req with exponential backoff (base 100ms) up to
// maxRetries, bounding every attempt at timeout; the breaker short-circuits
// new calls while open.
func (b *Store) Dispatch(ctx context.Context, req memory.Request) (memory.Response, error) {
	if !b.allow() {
		return memory.Response{}, &apperr.NotReady{Resource: "external memory store (circuit open)"}
	}

	var lastErr error
	backoff := 100 * time.Millisecond
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, b.timeout)
		resp, err := b.next.Dispatch(callCtx, req)
		cancel()
		if err == nil {
			b.recordResult(nil)
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		b.logger.Warn("external store dispatch failed, retrying", "request_type", req.RequestType, "attempt", attempt, "error", err)
		time.Sleep(backoff)
		backoff *= 2
	}

	b.recordResult(lastErr)
	return memory.Response{}, &apperr.Timeout{Operation: string(req.RequestType)}
}
