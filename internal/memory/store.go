package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RequestType enumerates the external-store request kinds of spec §6.
type RequestType string

const (
	RequestCreateMemory     RequestType = "create_memory"
	RequestCreateTrauma     RequestType = "create_trauma"
	RequestMergeMemory      RequestType = "merge_memory"
	RequestGetMemory        RequestType = "get_memory"
	RequestFindSimilar      RequestType = "find_similar"
	RequestReactivate       RequestType = "reactivate"
	RequestApplyDecay       RequestType = "apply_decay"
	RequestDeleteMemory     RequestType = "delete_memory"
	RequestRecordTransition RequestType = "record_transition"
	RequestGetTransitions   RequestType = "get_transitions"
	RequestCreateSession    RequestType = "create_session"
	RequestUpdateSession    RequestType = "update_session"
	RequestCypherQuery      RequestType = "cypher_query"
)

// Request is dispatched to the external store with a correlation id.
type Request struct {
	RequestID   string
	RequestType RequestType
	Payload     any
}

// Response is matched back to its Request by RequestID.
type Response struct {
	RequestID string
	Payload   any
}

// ExternalStore is the optional persistence adapter of spec §6. Dispatch
// must return promptly or respect ctx's deadline; the manager never
// blocks in-process state on it.
type ExternalStore interface {
	Dispatch(ctx context.Context, req Request) (Response, error)
}

// dispatchTimeout bounds every fire-and-forget external-store call.
const dispatchTimeout = 5 * time.Second

// dispatchAsync fires req at the configured store without blocking the
// caller; failures are logged, never surfaced, and never block in-process
// state (spec §4.6: "failure to persist is logged but never blocks").
func (m *Manager) dispatchAsync(req Request) {
	if m.store == nil {
		return
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if _, err := m.store.Dispatch(ctx, req); err != nil {
			m.logger.Warn("memory store dispatch failed",
				"request_id", req.RequestID, "request_type", req.RequestType, "error", err)
		}
	}()
}
