// Package pg implements memory.ExternalStore against PostgreSQL, the
// optional persistence adapter of spec §6.
package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"affectengine/internal/apperr"
	"affectengine/internal/memory"
)

// Store backs memory.ExternalStore with a connection pool. A nil Store is
// never constructed; callers that have no DSN simply never build one and
// pass a nil ExternalStore to the memory manager, which degrades to
// in-process-only operation (spec §6 "Environment").
type Store struct {
	pool *pgxpool.Pool
}

// New opens a pool against dsn and verifies connectivity.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the schema backing the 13 request types of spec §6.
func (s *Store) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS memories (
			memory_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			context_type TEXT NOT NULL DEFAULT '',
			payload JSONB NOT NULL,
			weight DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			is_trauma BOOLEAN NOT NULL DEFAULT FALSE,
			trauma_kind TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_activated_at TIMESTAMPTZ
		);`,
		`CREATE INDEX IF NOT EXISTS idx_memories_context ON memories(context_type);`,
		`CREATE INDEX IF NOT EXISTS idx_memories_trauma ON memories(is_trauma) WHERE is_trauma;`,
		`CREATE TABLE IF NOT EXISTS transitions (
			id BIGSERIAL PRIMARY KEY,
			from_pattern TEXT NOT NULL,
			to_pattern TEXT NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_occurred ON transitions(occurred_at);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			payload JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	}
	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Dispatch satisfies memory.ExternalStore, routing each of the 13 request
// types of spec §6 to its SQL implementation.
func (s *Store) Dispatch(ctx context.Context, req memory.Request) (memory.Response, error) {
	switch req.RequestType {
	case memory.RequestCreateMemory:
		return s.createMemory(ctx, req, false)
	case memory.RequestCreateTrauma:
		return s.createMemory(ctx, req, true)
	case memory.RequestMergeMemory:
		return s.mergeMemory(ctx, req)
	case memory.RequestGetMemory:
		return s.getMemory(ctx, req)
	case memory.RequestFindSimilar:
		return s.findSimilar(ctx, req)
	case memory.RequestReactivate:
		return s.reactivate(ctx, req)
	case memory.RequestApplyDecay:
		return s.applyDecay(ctx, req)
	case memory.RequestDeleteMemory:
		return s.deleteMemory(ctx, req)
	case memory.RequestRecordTransition:
		return s.recordTransition(ctx, req)
	case memory.RequestGetTransitions:
		return s.getTransitions(ctx, req)
	case memory.RequestCreateSession:
		return s.createSession(ctx, req)
	case memory.RequestUpdateSession:
		return s.updateSession(ctx, req)
	case memory.RequestCypherQuery:
		return s.cypherQuery(ctx, req)
	default:
		return memory.Response{}, fmt.Errorf("pg: unknown request type %q", req.RequestType)
	}
}

type memoryPayload struct {
	MemoryID    string          `json:"memory_id"`
	Kind        string          `json:"kind"`
	ContextType string          `json:"context_type"`
	Weight      float64         `json:"weight"`
	IsTrauma    bool            `json:"is_trauma"`
	TraumaKind  string          `json:"trauma_kind"`
	Body        json.RawMessage `json:"body"`
}

func (s *Store) createMemory(ctx context.Context, req memory.Request, trauma bool) (memory.Response, error) {
	p, err := decodePayload[memoryPayload](req.Payload)
	if err != nil {
		return memory.Response{}, err
	}
	if p.MemoryID == "" {
		return memory.Response{}, errors.New("pg: create_memory requires memory_id")
	}
	body, err := json.Marshal(p.Body)
	if err != nil {
		return memory.Response{}, err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO memories(memory_id, kind, context_type, payload, weight, is_trauma, trauma_kind)
		VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7)
		ON CONFLICT (memory_id) DO UPDATE SET
			kind=EXCLUDED.kind, context_type=EXCLUDED.context_type, payload=EXCLUDED.payload,
			weight=EXCLUDED.weight, is_trauma=EXCLUDED.is_trauma, trauma_kind=EXCLUDED.trauma_kind
	`, p.MemoryID, p.Kind, p.ContextType, string(body), orDefault(p.Weight, 1.0), trauma || p.IsTrauma, p.TraumaKind)
	if err != nil {
		return memory.Response{}, err
	}
	return memory.Response{RequestID: req.RequestID, Payload: p.MemoryID}, nil
}

func (s *Store) mergeMemory(ctx context.Context, req memory.Request) (memory.Response, error) {
	p, err := decodePayload[memoryPayload](req.Payload)
	if err != nil {
		return memory.Response{}, err
	}
	body, err := json.Marshal(p.Body)
	if err != nil {
		return memory.Response{}, err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE memories
		SET payload = payload || $2::jsonb, weight = weight + $3
		WHERE memory_id = $1
	`, p.MemoryID, string(body), p.Weight)
	if err != nil {
		return memory.Response{}, err
	}
	if tag.RowsAffected() == 0 {
		return memory.Response{}, fmt.Errorf("pg: merge_memory: %s not found", p.MemoryID)
	}
	return memory.Response{RequestID: req.RequestID}, nil
}

func (s *Store) getMemory(ctx context.Context, req memory.Request) (memory.Response, error) {
	id, err := decodePayload[string](req.Payload)
	if err != nil {
		return memory.Response{}, err
	}
	var raw []byte
	err = s.pool.QueryRow(ctx, `SELECT payload FROM memories WHERE memory_id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return memory.Response{RequestID: req.RequestID, Payload: nil}, nil
	}
	if err != nil {
		return memory.Response{}, err
	}
	return memory.Response{RequestID: req.RequestID, Payload: json.RawMessage(raw)}, nil
}

type findSimilarQuery struct {
	ContextType string `json:"context_type"`
	Limit       int    `json:"limit"`
}

func (s *Store) findSimilar(ctx context.Context, req memory.Request) (memory.Response, error) {
	q, err := decodePayload[findSimilarQuery](req.Payload)
	if err != nil {
		return memory.Response{}, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.pool.Query(ctx, `
		SELECT memory_id, payload
		FROM memories
		WHERE context_type = $1
		ORDER BY last_activated_at DESC NULLS LAST, created_at DESC
		LIMIT $2
	`, q.ContextType, limit)
	if err != nil {
		return memory.Response{}, err
	}
	defer rows.Close()

	type hit struct {
		MemoryID string          `json:"memory_id"`
		Payload  json.RawMessage `json:"payload"`
	}
	var hits []hit
	for rows.Next() {
		var h hit
		if err := rows.Scan(&h.MemoryID, &h.Payload); err != nil {
			return memory.Response{}, err
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return memory.Response{}, err
	}
	return memory.Response{RequestID: req.RequestID, Payload: hits}, nil
}

func (s *Store) reactivate(ctx context.Context, req memory.Request) (memory.Response, error) {
	id, err := decodePayload[string](req.Payload)
	if err != nil {
		return memory.Response{}, err
	}
	_, err = s.pool.Exec(ctx, `UPDATE memories SET last_activated_at = NOW() WHERE memory_id=$1`, id)
	if err != nil {
		return memory.Response{}, err
	}
	return memory.Response{RequestID: req.RequestID}, nil
}

type decayPayload struct {
	Factor float64 `json:"factor"`
	Floor  float64 `json:"floor"`
}

func (s *Store) applyDecay(ctx context.Context, req memory.Request) (memory.Response, error) {
	p, err := decodePayload[decayPayload](req.Payload)
	if err != nil {
		return memory.Response{}, err
	}
	factor := p.Factor
	if factor <= 0 {
		factor = 1.0
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE memories
		SET weight = GREATEST($2, weight * $1)
		WHERE NOT is_trauma OR weight * $1 >= $2
	`, factor, p.Floor)
	if err != nil {
		return memory.Response{}, err
	}
	return memory.Response{RequestID: req.RequestID}, nil
}

func (s *Store) deleteMemory(ctx context.Context, req memory.Request) (memory.Response, error) {
	id, err := decodePayload[string](req.Payload)
	if err != nil {
		return memory.Response{}, err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM memories WHERE memory_id=$1 AND NOT is_trauma`, id)
	if err != nil {
		return memory.Response{}, err
	}
	if tag.RowsAffected() == 0 {
		return memory.Response{RequestID: req.RequestID, Payload: false}, nil
	}
	return memory.Response{RequestID: req.RequestID, Payload: true}, nil
}

type transitionPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Store) recordTransition(ctx context.Context, req memory.Request) (memory.Response, error) {
	p, err := decodePayload[transitionPayload](req.Payload)
	if err != nil {
		return memory.Response{}, err
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO transitions(from_pattern, to_pattern) VALUES ($1, $2)`, p.From, p.To)
	if err != nil {
		return memory.Response{}, err
	}
	return memory.Response{RequestID: req.RequestID}, nil
}

func (s *Store) getTransitions(ctx context.Context, req memory.Request) (memory.Response, error) {
	limit, _ := decodePayload[int](req.Payload)
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT from_pattern, to_pattern, occurred_at
		FROM transitions ORDER BY occurred_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return memory.Response{}, err
	}
	defer rows.Close()

	type row struct {
		From string    `json:"from"`
		To   string    `json:"to"`
		At   time.Time `json:"at"`
	}
	var out []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.From, &r.To, &r.At); err != nil {
			return memory.Response{}, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return memory.Response{}, err
	}
	return memory.Response{RequestID: req.RequestID, Payload: out}, nil
}

type sessionPayload struct {
	SessionID string          `json:"session_id"`
	Body      json.RawMessage `json:"body"`
}

func (s *Store) createSession(ctx context.Context, req memory.Request) (memory.Response, error) {
	p, err := decodePayload[sessionPayload](req.Payload)
	if err != nil {
		return memory.Response{}, err
	}
	body := p.Body
	if len(body) == 0 {
		body = json.RawMessage(`{}`)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions(session_id, payload) VALUES ($1, $2::jsonb)
		ON CONFLICT (session_id) DO NOTHING
	`, p.SessionID, string(body))
	if err != nil {
		return memory.Response{}, err
	}
	return memory.Response{RequestID: req.RequestID, Payload: p.SessionID}, nil
}

func (s *Store) updateSession(ctx context.Context, req memory.Request) (memory.Response, error) {
	p, err := decodePayload[sessionPayload](req.Payload)
	if err != nil {
		return memory.Response{}, err
	}
	body := p.Body
	if len(body) == 0 {
		body = json.RawMessage(`{}`)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE sessions SET payload = payload || $2::jsonb, updated_at = NOW()
		WHERE session_id=$1
	`, p.SessionID, string(body))
	if err != nil {
		return memory.Response{}, err
	}
	if tag.RowsAffected() == 0 {
		return memory.Response{}, fmt.Errorf("pg: update_session: %s not found", p.SessionID)
	}
	return memory.Response{RequestID: req.RequestID}, nil
}

// cypherQuery has no graph-database backing in this stack (the example
// pack carries no graph-DB driver); it degrades to NotReady rather than
// silently misinterpreting a Cypher string as SQL.
func (s *Store) cypherQuery(_ context.Context, req memory.Request) (memory.Response, error) {
	return memory.Response{}, &apperr.NotReady{Resource: "cypher_query (no graph store configured)"}
}

func decodePayload[T any](payload any) (T, error) {
	var out T
	switch v := payload.(type) {
	case T:
		return v, nil
	case json.RawMessage:
		err := json.Unmarshal(v, &out)
		return out, err
	case []byte:
		err := json.Unmarshal(v, &out)
		return out, err
	case nil:
		return out, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return out, err
		}
		err = json.Unmarshal(raw, &out)
		return out, err
	}
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}
