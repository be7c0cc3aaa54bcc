package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"affectengine/internal/affect"
	"affectengine/internal/decision"
	"affectengine/internal/memory"
	"affectengine/internal/pattern"
	"affectengine/internal/wag"
)

type fakeRuntime struct {
	state    StateSnapshot
	hasState bool
	lastPush affect.Vector24

	snapshot      wag.Snapshot
	importedEdges wag.Snapshot
	patterns      []pattern.Pattern
	importedPatts []pattern.Pattern

	full         EngineSnapshot
	importedFull EngineSnapshot
}

func (f *fakeRuntime) LatestState() (StateSnapshot, bool) { return f.state, f.hasState }
func (f *fakeRuntime) LatestConsciousness() (ConsciousnessSnapshot, bool) {
	return ConsciousnessSnapshot{}, false
}
func (f *fakeRuntime) Decide(_ context.Context, in decision.Input) decision.DecisionResult {
	return decision.DecisionResult{ChosenOption: decision.ActionOption{Name: "observe"}}
}
func (f *fakeRuntime) PushAffect(_ context.Context, v affect.Vector24) { f.lastPush = v }
func (f *fakeRuntime) GraphSnapshot() wag.Snapshot                     { return f.snapshot }
func (f *fakeRuntime) ImportGraphSnapshot(snap wag.Snapshot) int {
	f.importedEdges = snap
	return len(snap.Adjacency)
}
func (f *fakeRuntime) ListPatterns() []pattern.Pattern { return f.patterns }
func (f *fakeRuntime) ImportPatterns(patterns []pattern.Pattern) int {
	f.importedPatts = patterns
	return len(patterns)
}
func (f *fakeRuntime) FullSnapshot() EngineSnapshot { return f.full }
func (f *fakeRuntime) ImportFullSnapshot(snap EngineSnapshot) EngineImportResult {
	f.importedFull = snap
	return EngineImportResult{
		EdgesImported:    len(snap.Graph.Adjacency),
		PatternsImported: len(snap.Patterns),
		MemoriesImported: len(snap.Memories),
	}
}

func newTestServer() (*Server, *fakeRuntime) {
	rt := &fakeRuntime{}
	return New(rt, slog.New(slog.NewTextHandler(io.Discard, nil))), rt
}

func TestHandleStateReturns503WhenAbsent(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/v1/state", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestHandleStateReturnsSnapshot(t *testing.T) {
	s, rt := newTestServer()
	rt.hasState = true
	rt.state = StateSnapshot{Dominant: "Joy", Valence: 0.5}

	req := httptest.NewRequest(http.MethodGet, "/v1/state", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out StateSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Dominant != "Joy" {
		t.Fatalf("expected dominant Joy, got %s", out.Dominant)
	}
}

func TestHandlePushAffectMapsNamedEmotions(t *testing.T) {
	s, rt := newTestServer()
	body := []byte(`{"emotions":{"Joy":0.6}}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/affect", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rt.lastPush[affect.IdxJoy] != 0.6 {
		t.Fatalf("expected Joy pushed through, got %f", rt.lastPush[affect.IdxJoy])
	}
}

func TestHandleSnapshotExportReturnsCurrentSnapshot(t *testing.T) {
	s, rt := newTestServer()
	rt.snapshot = wag.Snapshot{WordCount: 3, EdgeCount: 1}

	req := httptest.NewRequest(http.MethodGet, "/v1/snapshot", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out wag.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.WordCount != 3 {
		t.Fatalf("expected word count 3, got %d", out.WordCount)
	}
}

func TestHandleSnapshotImportForwardsAdjacency(t *testing.T) {
	s, rt := newTestServer()
	body, _ := json.Marshal(wag.Snapshot{Adjacency: []wag.Edge{{Kind: wag.EdgeSemantic, Src: "a", Dst: "b"}}})
	req := httptest.NewRequest(http.MethodPost, "/v1/snapshot", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(rt.importedEdges.Adjacency) != 1 {
		t.Fatalf("expected 1 imported edge, got %d", len(rt.importedEdges.Adjacency))
	}
}

func TestHandlePatternListReturnsStorePatterns(t *testing.T) {
	s, rt := newTestServer()
	rt.patterns = []pattern.Pattern{{ID: "pat_1", Name: "baseline"}}

	req := httptest.NewRequest(http.MethodGet, "/v1/patterns", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out []pattern.Pattern
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 1 || out[0].ID != "pat_1" {
		t.Fatalf("expected 1 pattern pat_1, got %+v", out)
	}
}

func TestHandlePatternImportForwardsPatterns(t *testing.T) {
	s, rt := newTestServer()
	body, _ := json.Marshal([]pattern.Pattern{{ID: "pat_2"}})
	req := httptest.NewRequest(http.MethodPost, "/v1/patterns", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(rt.importedPatts) != 1 || rt.importedPatts[0].ID != "pat_2" {
		t.Fatalf("expected 1 imported pattern pat_2, got %+v", rt.importedPatts)
	}
}

func TestHandleEngineSnapshotExportBundlesEveryComponent(t *testing.T) {
	s, rt := newTestServer()
	rt.full = EngineSnapshot{
		Graph:    wag.Snapshot{WordCount: 2},
		Patterns: []pattern.Pattern{{ID: "pat_1"}},
		Memories: []memory.Memory{{ID: "mem_1"}},
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/engine-snapshot", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out EngineSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Graph.WordCount != 2 || len(out.Patterns) != 1 || len(out.Memories) != 1 {
		t.Fatalf("expected bundled graph/patterns/memories, got %+v", out)
	}
}

func TestHandleEngineSnapshotImportForwardsBundle(t *testing.T) {
	s, rt := newTestServer()
	body, _ := json.Marshal(EngineSnapshot{
		Graph:    wag.Snapshot{Adjacency: []wag.Edge{{Kind: wag.EdgeSemantic, Src: "a", Dst: "b"}}},
		Patterns: []pattern.Pattern{{ID: "pat_1"}},
		Memories: []memory.Memory{{ID: "mem_1"}, {ID: "mem_2"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/engine-snapshot", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out EngineImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.EdgesImported != 1 || out.PatternsImported != 1 || out.MemoriesImported != 2 {
		t.Fatalf("expected counts 1/1/2, got %+v", out)
	}
	if len(rt.importedFull.Memories) != 2 {
		t.Fatalf("expected runtime to receive the full bundle, got %+v", rt.importedFull)
	}
}
