package engine

import (
	"time"

	"affectengine/internal/httpapi"
)

// FullSnapshot implements httpapi.Runtime: composes one httpapi.EngineSnapshot
// from every owning component's own read-through accessor, taking no lock
// wider than each component's own (spec §5 "no lock held across an
// external I/O call or another component's lock").
func (r *Runtime) FullSnapshot() httpapi.EngineSnapshot {
	return httpapi.EngineSnapshot{
		Graph:      r.GraphSnapshot(),
		Patterns:   r.pats.All(),
		Memories:   r.mem.All(),
		GoalEngine: r.goals.State(),
		ExportedAt: time.Now(),
	}
}

// ImportFullSnapshot implements httpapi.Runtime: restores graph edges,
// patterns, and memories from a previously exported EngineSnapshot. The
// goal-engine's scalar state is not restored, since it is recomputed fresh
// every tick from the other components rather than persisted.
func (r *Runtime) ImportFullSnapshot(snap httpapi.EngineSnapshot) httpapi.EngineImportResult {
	return httpapi.EngineImportResult{
		EdgesImported:    r.graph.ImportEdges(snap.Graph.Adjacency),
		PatternsImported: r.pats.Import(snap.Patterns),
		MemoriesImported: r.mem.Import(snap.Memories),
	}
}
