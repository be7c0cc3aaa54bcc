package wag

import (
	"testing"
	"time"

	"affectengine/internal/affect"
)

func TestAddWordReinforcesExisting(t *testing.T) {
	g := New(DefaultConfig())
	now := time.Now()
	id1 := g.AddWord("run", "VERB", "s1", "running", now)
	id2 := g.AddWord("run", "VERB", "s1", "ran", now.Add(time.Second))
	if id1 != id2 {
		t.Fatalf("expected reinforcement of same node, got %s vs %s", id1, id2)
	}
}

func TestAddAffectRespectsPersistenceThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EmotionPersistenceThreshold = 2 * time.Second
	g := New(cfg)
	var e affect.Vector24
	e[affect.IdxJoy] = 0.5

	if _, ok := g.AddAffectWithContext(e, time.Second, 0.5, 0.5, time.Now()); ok {
		t.Fatal("expected affect below persistence threshold to be rejected")
	}
	if _, ok := g.AddAffectWithContext(e, 3*time.Second, 0.5, 0.5, time.Now()); !ok {
		t.Fatal("expected affect above persistence threshold to be accepted")
	}
}

func TestDetectCausalityUsesSlowThresholdForLowArousal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CausalityThreshold = 1 * time.Second
	cfg.SlowEmotionCausalityThreshold = 20 * time.Second
	cfg.LowArousalThreshold = 0.3
	g := New(cfg)

	now := time.Now()
	wordID := g.AddWord("calm", "ADJ", "s1", "calm", now)

	var lowArousal affect.Vector24
	lowArousal[affect.IdxSerenity] = 0.6
	affectID, ok := g.AddAffectWithContext(lowArousal, cfg.EmotionPersistenceThreshold+time.Second, 0.5, 0.5, now.Add(10*time.Second))
	if !ok {
		t.Fatal("expected affect node to be created")
	}

	count := g.DetectCausality(affectID, now.Add(15*time.Second))
	if count == 0 {
		t.Fatal("expected causal edge using the slow-emotion threshold window")
	}
	strength, ok := g.EffectiveStrength(EdgeCausal, wordID, affectID)
	if !ok || strength <= 0 {
		t.Fatalf("expected positive causal strength, got %f ok=%v", strength, ok)
	}
}

func TestApplyEdgeDecayDropsWeakEdges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EdgeDecayPerSecond = 0.5
	cfg.EdgeFloor = 0.1
	g := New(cfg)

	now := time.Now()
	w1 := g.AddWord("a", "N", "s", "a", now)
	w2 := g.AddWord("b", "N", "s", "b", now)
	g.AddSemanticEdge(w1, w2, "related", now)

	dropped := g.ApplyEdgeDecay(now.Add(10 * time.Second))
	if dropped != 1 {
		t.Fatalf("expected the semantic edge to decay below floor and be dropped, got dropped=%d", dropped)
	}
}

func TestCreateSnapshotRateLimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SnapshotInterval = 5 * time.Second
	g := New(cfg)
	now := time.Now()

	_, fresh1 := g.CreateSnapshot(now)
	_, fresh2 := g.CreateSnapshot(now.Add(time.Second))
	_, fresh3 := g.CreateSnapshot(now.Add(6 * time.Second))

	if !fresh1 {
		t.Fatal("expected first snapshot to be fresh")
	}
	if fresh2 {
		t.Fatal("expected snapshot within interval to be served from cache")
	}
	if !fresh3 {
		t.Fatal("expected snapshot past interval to be fresh again")
	}
}

func TestSnapshotExportImportExportRoundTrips(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SnapshotInterval = 0
	src := New(cfg)
	now := time.Now()
	w1 := src.AddWord("alpha", "N", "s", "alpha", now)
	w2 := src.AddWord("beta", "N", "s", "beta", now)
	src.AddSemanticEdge(w1, w2, "related", now)

	first, _ := src.CreateSnapshot(now)

	dst := New(cfg)
	dst.ImportEdges(first.Adjacency)
	second, _ := dst.CreateSnapshot(now)

	if second.EdgeCount != first.EdgeCount || second.CausalEdgeCount != first.CausalEdgeCount {
		t.Fatalf("expected matching counts after import, got %+v vs %+v", first, second)
	}
	if len(second.Adjacency) != len(first.Adjacency) {
		t.Fatalf("expected matching adjacency length after import, got %d vs %d", len(second.Adjacency), len(first.Adjacency))
	}
}

func TestImportEdgesRestoresAdjacency(t *testing.T) {
	g := New(DefaultConfig())
	n := g.ImportEdges([]Edge{
		{Kind: EdgeSemantic, Src: "w1", Dst: "w2", RelationType: "related", Strength: 0.7},
		{Kind: EdgeCausal, Src: "w2", Dst: "a1", Strength: 0.5},
	})
	if n != 2 {
		t.Fatalf("expected 2 edges imported, got %d", n)
	}
	words, affects, edges, causalEdges, _ := g.Counts()
	if words != 0 || affects != 0 {
		t.Fatalf("expected no nodes reconstructed from adjacency alone, got words=%d affects=%d", words, affects)
	}
	if edges != 2 || causalEdges != 1 {
		t.Fatalf("expected 2 edges (1 causal) imported, got edges=%d causal=%d", edges, causalEdges)
	}
}
