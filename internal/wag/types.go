// Package wag implements the word-affect graph (spec §4.5 C6): a bipartite
// graph of word and affect nodes linked by temporal-cooccurrence, semantic,
// causal and lexical edges, with geometric edge decay and rate-limited
// immutable snapshots.
package wag

import (
	"time"

	"affectengine/internal/affect"
)

// WordNode is a lexical node: a lemma observed at least once, with an
// activation counter and last-activation timestamp used for cooccurrence
// and causality detection.
type WordNode struct {
	ID            string
	Lemma         string
	POS           string
	SentenceID    string
	Original      string
	FirstSeen     time.Time
	Activations   int
	LastActivation time.Time
}

// AffectNode is an affect snapshot node, only inserted once its
// persistence meets the configured threshold.
type AffectNode struct {
	ID                string
	E                 affect.Vector24
	Valence           float64
	Intensity         float64
	PersistenceDuration time.Duration
	BirthTime         time.Time
}

// EdgeKind enumerates the four edge kinds of spec §3.
type EdgeKind string

const (
	EdgeTemporalCooccurrence EdgeKind = "temporal-cooccurrence"
	EdgeSemantic             EdgeKind = "semantic"
	EdgeCausal               EdgeKind = "causal"
	EdgeLexical              EdgeKind = "lexical"
)

// Edge is a single weighted, decaying link between two node ids.
type Edge struct {
	Kind          EdgeKind
	Src, Dst      string
	RelationType  string // only meaningful for EdgeSemantic
	Strength      float64
	LastReinforced time.Time
}

func edgeKey(kind EdgeKind, src, dst string) string {
	return string(kind) + "|" + src + "|" + dst
}

// CausalFinding is one row of analyze_causality's result.
type CausalFinding struct {
	WordID          string
	TriggeredAffectIDs []string
	CausalStrength  float64
}

// Snapshot is a timestamped, immutable view of the graph's size and a
// flattened adjacency list, rate-limited to once per
// snapshot_interval_seconds.
type Snapshot struct {
	Timestamp    time.Time
	WordCount    int
	AffectCount  int
	EdgeCount    int
	CausalEdgeCount int
	Density      float64
	Adjacency    []Edge
}
