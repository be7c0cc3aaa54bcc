// Package httpapi exposes the engine's admin/decision-query surface and a
// websocket push feed for state publications (spec §6 outputs, enriched
// with an operator-facing surface the distilled spec leaves implicit).
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"affectengine/internal/affect"
	"affectengine/internal/decision"
	"affectengine/internal/pattern"
	"affectengine/internal/wag"
)

// Runtime is the subset of the engine runtime the HTTP surface depends on.
// Handlers never reach into buffer/pattern/consciousness internals
// directly; everything is mediated through this interface, mirroring the
// teacher's pattern of closing over injected services rather than globals.
type Runtime interface {
	LatestState() (StateSnapshot, bool)
	LatestConsciousness() (ConsciousnessSnapshot, bool)
	Decide(ctx context.Context, in decision.Input) decision.DecisionResult
	PushAffect(ctx context.Context, v affect.Vector24)
	GraphSnapshot() wag.Snapshot
	ImportGraphSnapshot(snap wag.Snapshot) int
	ListPatterns() []pattern.Pattern
	ImportPatterns(patterns []pattern.Pattern) int
	FullSnapshot() EngineSnapshot
	ImportFullSnapshot(snap EngineSnapshot) EngineImportResult
}

// StateSnapshot is the admin-surface projection of the per-tick state
// publication (spec §6 "State publication").
type StateSnapshot struct {
	Emotions  map[string]float64 `json:"emotions"`
	Dominant  string             `json:"dominant_name"`
	Valence   float64            `json:"valence"`
	Intensity float64            `json:"intensity"`
	Pattern   string             `json:"pattern"`
	Timestamp time.Time          `json:"timestamp"`
}

// ConsciousnessSnapshot is the admin-surface projection of the
// consciousness/sentiment publication (spec §6).
type ConsciousnessSnapshot struct {
	Ct        float64   `json:"Ct"`
	Ft        float64   `json:"Ft"`
	Wisdom    float64   `json:"wisdom"`
	HasTrauma bool      `json:"has_trauma"`
	Timestamp time.Time `json:"timestamp"`
}

// Server wires Runtime onto an HTTP mux.
type Server struct {
	rt       Runtime
	logger   *slog.Logger
	upgrader websocket.Upgrader

	streamMu sync.RWMutex
	streams  map[*websocket.Conn]chan []byte
}

// New builds a Server ready to Router().
func New(rt Runtime, logger *slog.Logger) *Server {
	return &Server{
		rt:     rt,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(_ *http.Request) bool { return true },
		},
		streams: make(map[*websocket.Conn]chan []byte),
	}
}

// Router returns the full chi mux for mounting into an *http.Server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/v1/state", s.handleState)
	r.Get("/v1/consciousness", s.handleConsciousness)
	r.Post("/v1/decide", s.handleDecide)
	r.Post("/v1/affect", s.handlePushAffect)
	r.Get("/v1/snapshot", s.handleSnapshotExport)
	r.Post("/v1/snapshot", s.handleSnapshotImport)
	r.Get("/v1/patterns", s.handlePatternList)
	r.Post("/v1/patterns", s.handlePatternImport)
	r.Get("/v1/engine-snapshot", s.handleEngineSnapshotExport)
	r.Post("/v1/engine-snapshot", s.handleEngineSnapshotImport)
	r.Get("/ws/state", s.handleStateStream)
	return r
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.rt.LatestState()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "no state published yet"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleConsciousness(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.rt.LatestConsciousness()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "no consciousness snapshot yet"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDecide(w http.ResponseWriter, req *http.Request) {
	var in decision.Input
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	result := s.rt.Decide(req.Context(), in)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePushAffect(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Emotions map[string]float64 `json:"emotions"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	var v affect.Vector24
	for i, name := range affect.EmotionNames {
		if val, ok := payload.Emotions[name]; ok {
			v[i] = val
		}
	}
	s.rt.PushAffect(req.Context(), v)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleSnapshotExport serves the word-affect graph's current adjacency
// snapshot for "engine-cli snapshot export".
func (s *Server) handleSnapshotExport(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.rt.GraphSnapshot())
}

// handleSnapshotImport restores a previously exported graph snapshot for
// "engine-cli snapshot import".
func (s *Server) handleSnapshotImport(w http.ResponseWriter, req *http.Request) {
	var snap wag.Snapshot
	if err := json.NewDecoder(req.Body).Decode(&snap); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	n := s.rt.ImportGraphSnapshot(snap)
	writeJSON(w, http.StatusOK, map[string]any{"edges_imported": n})
}

// handlePatternList serves the pattern store's full contents for
// "engine-cli pattern list".
func (s *Server) handlePatternList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.rt.ListPatterns())
}

// handlePatternImport restores a previously exported pattern set.
func (s *Server) handlePatternImport(w http.ResponseWriter, req *http.Request) {
	var patterns []pattern.Pattern
	if err := json.NewDecoder(req.Body).Decode(&patterns); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	n := s.rt.ImportPatterns(patterns)
	writeJSON(w, http.StatusOK, map[string]any{"patterns_imported": n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
