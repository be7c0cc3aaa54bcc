package wag

import (
	"math"
	"sort"
	"sync"
	"time"

	"affectengine/internal/affect"
	"github.com/google/uuid"
)

// Config bundles the graph's tunable thresholds (spec §4.5).
type Config struct {
	EmotionPersistenceThreshold    time.Duration
	TemporalCooccurrenceWindow     time.Duration
	CausalityThreshold             time.Duration
	SlowEmotionCausalityThreshold  time.Duration
	LowArousalThreshold            float64
	NodeTTL                        time.Duration
	MinActivationToSurvive         int
	EdgeDecayPerSecond             float64
	EdgeFloor                      float64
	SnapshotInterval                time.Duration
}

// DefaultConfig returns the graph's default tuning.
func DefaultConfig() Config {
	return Config{
		EmotionPersistenceThreshold:   2 * time.Second,
		TemporalCooccurrenceWindow:    5 * time.Second,
		CausalityThreshold:            3 * time.Second,
		SlowEmotionCausalityThreshold: 10 * time.Second,
		LowArousalThreshold:           0.3,
		NodeTTL:                       30 * time.Minute,
		MinActivationToSurvive:        1,
		EdgeDecayPerSecond:            0.9995,
		EdgeFloor:                     0.02,
		SnapshotInterval:              10 * time.Second,
	}
}

// Graph is the mutex-guarded C6 component. Grounded on the teacher's MQTT
// hub's map-registries-plus-mutex-plus-periodic-emission shape.
type Graph struct {
	cfg Config

	mu          sync.Mutex
	words       map[string]WordNode
	lemmaIndex  map[string][]string // lemma -> word ids
	affects     map[string]AffectNode
	edges       map[string]Edge

	lastSnapshot     Snapshot
	lastSnapshotAt   time.Time
}

// New builds an empty graph.
func New(cfg Config) *Graph {
	return &Graph{
		cfg:        cfg,
		words:      make(map[string]WordNode),
		lemmaIndex: make(map[string][]string),
		affects:    make(map[string]AffectNode),
		edges:      make(map[string]Edge),
	}
}

// AddWord upserts a word node, reinforcing an existing one in place.
func (g *Graph) AddWord(lemma, pos, sentenceID, original string, now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range g.lemmaIndex[lemma] {
		w := g.words[id]
		if w.POS == pos {
			w.Activations++
			w.LastActivation = now
			g.words[id] = w
			return id
		}
	}

	id := uuid.NewString()
	g.words[id] = WordNode{
		ID: id, Lemma: lemma, POS: pos, SentenceID: sentenceID, Original: original,
		FirstSeen: now, Activations: 1, LastActivation: now,
	}
	g.lemmaIndex[lemma] = append(g.lemmaIndex[lemma], id)
	return id
}

// AddAffectWithContext inserts an affect node if persistence meets the
// configured threshold, returning ("", false) otherwise.
func (g *Graph) AddAffectWithContext(e affect.Vector24, persistence time.Duration, valence, intensity float64, now time.Time) (string, bool) {
	if persistence < g.cfg.EmotionPersistenceThreshold {
		return "", false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	id := uuid.NewString()
	g.affects[id] = AffectNode{
		ID: id, E: e, Valence: valence, Intensity: intensity,
		PersistenceDuration: persistence, BirthTime: now,
	}
	return id, true
}

// DetectTemporalCooccurrences reinforces (or creates) a temporal edge
// between wordID and every other word last activated within the
// configured temporal window.
func (g *Graph) DetectTemporalCooccurrences(wordID string, now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	w, ok := g.words[wordID]
	if !ok {
		return 0
	}
	count := 0
	for otherID, other := range g.words {
		if otherID == wordID {
			continue
		}
		if now.Sub(other.LastActivation) > g.cfg.TemporalCooccurrenceWindow {
			continue
		}
		g.reinforceEdgeLocked(EdgeTemporalCooccurrence, w.ID, otherID, "", 0.2, now)
		count++
	}
	return count
}

// AddSemanticEdge records a labelled undirected edge between two words.
// It is stored once, keyed by the lexicographically smaller id first, so
// reinforcement from either direction lands on the same edge.
func (g *Graph) AddSemanticEdge(srcWord, dstWord, relationType string, now time.Time) {
	a, b := srcWord, dstWord
	if b < a {
		a, b = b, a
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reinforceEdgeLocked(EdgeSemantic, a, b, relationType, 0.3, now)
}

// DetectCausality creates/reinforces causal edges from every word
// activated recently enough to have plausibly triggered affectID, with
// strength proportional to temporal proximity and the affect's intensity.
func (g *Graph) DetectCausality(affectID string, now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	a, ok := g.affects[affectID]
	if !ok {
		return 0
	}
	threshold := g.cfg.CausalityThreshold
	if a.E.Arousal() < g.cfg.LowArousalThreshold {
		threshold = g.cfg.SlowEmotionCausalityThreshold
	}

	count := 0
	for wordID, w := range g.words {
		elapsed := now.Sub(w.LastActivation)
		if elapsed < 0 || elapsed > threshold {
			continue
		}
		proximity := 1 - elapsed.Seconds()/threshold.Seconds()
		strength := affect.Clamp01(proximity * a.Intensity)
		g.reinforceEdgeLocked(EdgeCausal, wordID, affectID, "", strength, now)
		count++
	}
	return count
}

// AnalyzeCausality aggregates causal edges per word.
func (g *Graph) AnalyzeCausality() []CausalFinding {
	g.mu.Lock()
	defer g.mu.Unlock()

	byWord := map[string]*CausalFinding{}
	for _, e := range g.edges {
		if e.Kind != EdgeCausal {
			continue
		}
		f, ok := byWord[e.Src]
		if !ok {
			f = &CausalFinding{WordID: e.Src}
			byWord[e.Src] = f
		}
		f.TriggeredAffectIDs = append(f.TriggeredAffectIDs, e.Dst)
		f.CausalStrength += e.Strength
	}
	out := make([]CausalFinding, 0, len(byWord))
	for _, f := range byWord {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CausalStrength > out[j].CausalStrength })
	return out
}

// CausalEdgeView pairs a causal edge's strength with the valence/intensity
// and critical-emotion weights of the affect node it targets, the shape
// the goal engine's memory-pull recompute needs (spec §4.9 step 4).
type CausalEdgeView struct {
	Strength        float64
	AffectValence   float64
	AffectIntensity float64
	FearIndex       float64
	AnxietyIndex    float64
	ShameIndex      float64
}

// CausalEdgesForGoalEngine returns a value-copy view of every live causal
// edge, decayed to now, for the goal engine's recompute_memory_pull.
func (g *Graph) CausalEdgesForGoalEngine(now time.Time) []CausalEdgeView {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]CausalEdgeView, 0, len(g.edges))
	for _, e := range g.edges {
		if e.Kind != EdgeCausal {
			continue
		}
		a, ok := g.affects[e.Dst]
		if !ok {
			continue
		}
		strength := g.effectiveStrengthLocked(e, now)
		if strength < g.cfg.EdgeFloor {
			continue
		}
		out = append(out, CausalEdgeView{
			Strength:        strength,
			AffectValence:   a.Valence,
			AffectIntensity: a.Intensity,
			FearIndex:       a.E[affect.IdxFear],
			AnxietyIndex:    a.E[affect.IdxAnxiety],
			ShameIndex:      a.E[affect.IdxShame],
		})
	}
	return out
}

// PruneExpiredNodes drops word nodes whose TTL has elapsed and whose
// activation count is still below the survival floor.
func (g *Graph) PruneExpiredNodes(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for id, w := range g.words {
		if now.Sub(w.LastActivation) > g.cfg.NodeTTL && w.Activations < g.cfg.MinActivationToSurvive+1 {
			delete(g.words, id)
			idx := g.lemmaIndex[w.Lemma]
			for i, cand := range idx {
				if cand == id {
					g.lemmaIndex[w.Lemma] = append(idx[:i], idx[i+1:]...)
					break
				}
			}
			g.dropEdgesTouchingLocked(id)
			removed++
		}
	}
	return removed
}

// ApplyEdgeDecay bakes the age-scaled decay of every edge into its stored
// strength and drops edges that fall below the floor (spec open-question
// decision: cron-tick commit, on top of the lazy per-read decay applied by
// EffectiveStrength).
func (g *Graph) ApplyEdgeDecay(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	dropped := 0
	for key, e := range g.edges {
		eff := g.effectiveStrengthLocked(e, now)
		if eff < g.cfg.EdgeFloor {
			delete(g.edges, key)
			dropped++
			continue
		}
		e.Strength = eff
		e.LastReinforced = now
		g.edges[key] = e
	}
	return dropped
}

// EffectiveStrength returns an edge's current, age-scaled strength
// without mutating the stored value (the lazy half of the decay design).
func (g *Graph) EffectiveStrength(kind EdgeKind, src, dst string) (float64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.edges[edgeKey(kind, src, dst)]
	if !ok {
		return 0, false
	}
	return g.effectiveStrengthLocked(e, time.Now()), true
}

func (g *Graph) effectiveStrengthLocked(e Edge, now time.Time) float64 {
	elapsed := now.Sub(e.LastReinforced).Seconds()
	if elapsed <= 0 {
		return e.Strength
	}
	return e.Strength * math.Pow(g.cfg.EdgeDecayPerSecond, elapsed)
}

// WordLemmas returns every distinct lemma currently tracked, for the
// periodic snapshot publication's node listing.
func (g *Graph) WordLemmas() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.lemmaIndex))
	for lemma := range g.lemmaIndex {
		out = append(out, lemma)
	}
	sort.Strings(out)
	return out
}

// Counts returns the current word/affect/edge/causal-edge counts and
// density without the rate-limiting CreateSnapshot applies, for cheap
// per-tick reporting (spec §6's state publication "graph metrics" block).
func (g *Graph) Counts() (words, affects, edges, causalEdges int, density float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	words, affects, edges = len(g.words), len(g.affects), len(g.edges)
	for _, e := range g.edges {
		if e.Kind == EdgeCausal {
			causalEdges++
		}
	}
	nodes := words + affects
	if possiblePairs := float64(nodes * (nodes - 1) / 2); possiblePairs > 0 {
		density = float64(edges) / possiblePairs
	}
	return
}

// CreateSnapshot returns an immutable view, rate-limited to at most once
// per snapshot_interval_seconds; returns the cached snapshot and false
// when called again before the interval elapses.
func (g *Graph) CreateSnapshot(now time.Time) (Snapshot, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.lastSnapshotAt.IsZero() && now.Sub(g.lastSnapshotAt) < g.cfg.SnapshotInterval {
		return g.lastSnapshot, false
	}

	adjacency := make([]Edge, 0, len(g.edges))
	causalCount := 0
	for _, e := range g.edges {
		e.Strength = g.effectiveStrengthLocked(e, now)
		adjacency = append(adjacency, e)
		if e.Kind == EdgeCausal {
			causalCount++
		}
	}

	nodes := len(g.words) + len(g.affects)
	possiblePairs := float64(nodes * (nodes - 1) / 2)
	density := 0.0
	if possiblePairs > 0 {
		density = float64(len(g.edges)) / possiblePairs
	}

	snap := Snapshot{
		Timestamp:       now,
		WordCount:       len(g.words),
		AffectCount:     len(g.affects),
		EdgeCount:       len(g.edges),
		CausalEdgeCount: causalCount,
		Density:         density,
		Adjacency:       adjacency,
	}
	g.lastSnapshot = snap
	g.lastSnapshotAt = now
	return snap, true
}

// ImportEdges seeds the graph's edge table from a previously exported
// Snapshot's adjacency list, for restoring state into a freshly started
// engine (cmd/engine-cli's "snapshot import"). Word and affect nodes are
// not reconstructed from a snapshot alone, since the adjacency list carries
// only edge endpoints by id, not full node bodies; edges referencing ids
// not yet known to this graph still import, and resolve once those nodes
// reappear on later ticks. Existing edges sharing a key are overwritten.
func (g *Graph) ImportEdges(edges []Edge) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range edges {
		g.edges[edgeKey(e.Kind, e.Src, e.Dst)] = e
	}
	return len(edges)
}

func (g *Graph) reinforceEdgeLocked(kind EdgeKind, src, dst, relation string, bump float64, now time.Time) {
	key := edgeKey(kind, src, dst)
	e, ok := g.edges[key]
	if !ok {
		e = Edge{Kind: kind, Src: src, Dst: dst, RelationType: relation}
	}
	current := e.Strength
	if ok {
		current = g.effectiveStrengthLocked(e, now)
	}
	e.Strength = affect.Clamp01(current + bump*(1-current))
	e.LastReinforced = now
	if relation != "" {
		e.RelationType = relation
	}
	g.edges[key] = e
}

func (g *Graph) dropEdgesTouchingLocked(nodeID string) {
	for key, e := range g.edges {
		if e.Src == nodeID || e.Dst == nodeID {
			delete(g.edges, key)
		}
	}
}
