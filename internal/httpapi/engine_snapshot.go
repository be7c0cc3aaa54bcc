package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"affectengine/internal/goalengine"
	"affectengine/internal/memory"
	"affectengine/internal/pattern"
	"affectengine/internal/wag"
)

// EngineSnapshot is the top-level export type bundling every persisted
// component's state for one "engine-cli snapshot export/import" round trip:
// the pattern store, the memory manager, the word-affect graph, and the
// goal-engine's last-computed state. The per-component /v1/snapshot and
// /v1/patterns endpoints remain as finer-grained alternatives for callers
// that only care about one component; this type is for restoring (or
// inspecting) the whole engine at once.
type EngineSnapshot struct {
	Graph      wag.Snapshot        `json:"graph"`
	Patterns   []pattern.Pattern   `json:"patterns"`
	Memories   []memory.Memory     `json:"memories"`
	GoalEngine goalengine.Snapshot `json:"goal_engine"`
	ExportedAt time.Time           `json:"exported_at"`
}

// EngineImportResult reports how many records of each kind an
// ImportFullSnapshot call restored.
type EngineImportResult struct {
	EdgesImported    int `json:"edges_imported"`
	PatternsImported int `json:"patterns_imported"`
	MemoriesImported int `json:"memories_imported"`
}

// handleEngineSnapshotExport serves the whole-engine bundle for
// "engine-cli snapshot export --full".
func (s *Server) handleEngineSnapshotExport(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.rt.FullSnapshot())
}

// handleEngineSnapshotImport restores a previously exported whole-engine
// bundle for "engine-cli snapshot import --full".
func (s *Server) handleEngineSnapshotImport(w http.ResponseWriter, req *http.Request) {
	var snap EngineSnapshot
	if err := json.NewDecoder(req.Body).Decode(&snap); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	writeJSON(w, http.StatusOK, s.rt.ImportFullSnapshot(snap))
}
