// Package engine supervises the whole per-tick pipeline (spec §5): a tick
// consumer fed by the ingestion callbacks, a periodic snapshot task, a
// periodic pattern-prune job and the word-affect graph's decay loop, all
// coordinated through golang.org/x/sync/errgroup the way the rest of the
// example pack uses it for goroutine-group supervision. Decision queries
// are served on demand by Decide, outside the group.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"affectengine/internal/affect"
	"affectengine/internal/amygdala"
	"affectengine/internal/apperr"
	"affectengine/internal/buffer"
	"affectengine/internal/config"
	"affectengine/internal/consciousness"
	"affectengine/internal/decision"
	"affectengine/internal/goalengine"
	"affectengine/internal/httpapi"
	"affectengine/internal/matcher"
	"affectengine/internal/memory"
	"affectengine/internal/pattern"
	"affectengine/internal/transport/circuit"
	"affectengine/internal/transport/mqtt"
	"affectengine/internal/wag"
)

// Publisher is the subset of the mqtt Hub the runtime needs to emit
// outputs; narrowed to an interface so the runtime can be exercised
// without a live broker.
type Publisher interface {
	PublishState(mqtt.StateMessage)
	PublishSnapshot(mqtt.SnapshotMessage)
	PublishDecision(any)
	PublishConsciousness(mqtt.ConsciousnessMessage)
}

type noopPublisher struct{}

func (noopPublisher) PublishState(mqtt.StateMessage)               {}
func (noopPublisher) PublishSnapshot(mqtt.SnapshotMessage)         {}
func (noopPublisher) PublishDecision(any)                          {}
func (noopPublisher) PublishConsciousness(mqtt.ConsciousnessMessage) {}

// traumaDominanceThreshold mirrors spec §3's "dominant iff intensity >=
// trauma_dominance_threshold (default 0.7)".
const traumaDominanceThreshold = 0.7

// pendingUtterance is the latest utterance triple awaiting attachment to
// the next buffer push (spec §4.1 push_with_utterance).
type pendingUtterance struct {
	sentiment  float64
	arousal    float64
	text       string
	confidence float64
	have       bool
}

// Runtime wires every component of spec §2 into the single-writer tick
// pipeline of spec §5: C2→C4→C7→C5→C2→C8→C9→C10, with C6 fed independently
// off the token stream and DE served on demand outside the tick lock.
type Runtime struct {
	cfg    config.EngineConfig
	logger *slog.Logger
	pub    Publisher

	buf     *buffer.Ring
	pats    *pattern.Store
	match   *matcher.Matcher
	updater *affect.Updater
	graph   *wag.Graph
	mem     *memory.Manager
	cons    *consciousness.Engine
	goals   *goalengine.Engine
	amyg    *amygdala.Amygdala
	dec     *decision.Engine

	tickMu     sync.Mutex // serializes the C2..C10 pipeline: one logical tick owner
	lastTickAt time.Time

	pendingMu sync.Mutex
	pending   pendingUtterance

	stateMu      sync.RWMutex
	lastState    httpapi.StateSnapshot
	haveState    bool
	lastConsc    httpapi.ConsciousnessSnapshot
	haveConsc    bool
	lastGoal     goalengine.Snapshot
	lastTrauma   float64
	lastCt       float64
	lastFt       float64
	lastAffect   affect.Vector24

	affectCh chan affect.Vector24

	emergencyTriggers int
	transitions       int
	matches           int
	patternsCreated   int
}

// New builds a Runtime and every component it owns, ready for Run.
// store may be nil (persistence disabled); pub may be nil (publication
// disabled, useful for tests and for running the HTTP surface standalone).
func New(cfg config.EngineConfig, store memory.ExternalStore, pub Publisher, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	if pub == nil {
		pub = noopPublisher{}
	}
	if store != nil {
		store = circuit.New(store, cfg.DispatchTimeout, cfg.MaxRetries, cfg.CircuitBreakerN, cfg.CircuitBreakerCool, logger)
	}

	buf := buffer.New(bufferConfigFrom(cfg.Buffer))
	pats := pattern.New(patternConfigFrom(cfg.Pattern))
	r := &Runtime{
		cfg:     cfg,
		logger:  logger,
		pub:     pub,
		buf:     buf,
		pats:    pats,
		match:   matcher.New(matcherConfigFrom(cfg.Matcher), buf, pats),
		updater: affect.NewUpdater(),
		graph:   wag.New(wagConfigFrom(cfg.WordAffect)),
		mem:     memory.New(memoryConfigFrom(cfg.Memory), store, logger),
		cons:    consciousness.New(consciousnessConfigFrom(cfg.Consciousness)),
		goals:   goalengine.New(goalEngineConfigFrom(cfg.GoalEngine)),
		amyg:    amygdala.New(amygdalaConfigFrom(cfg.Amygdala)),
		dec:     decision.New(decisionConfigFrom(cfg.Decision)),
		affectCh: make(chan affect.Vector24, 16),
	}

	pats.OnEvent(func(ev pattern.Event) {
		if ev.Kind == pattern.EventCreated {
			r.patternsCreated++
		}
	})

	return r
}

// SetPublisher swaps the runtime's output publisher, letting the caller
// break the constructor-order cycle between Runtime (which mqtt.Hub
// needs as an Ingestor) and Hub (which Runtime needs as a Publisher).
// Call before Run; not safe to call concurrently with a running tick.
func (r *Runtime) SetPublisher(pub Publisher) {
	if pub == nil {
		pub = noopPublisher{}
	}
	r.pub = pub
}

// Run starts the tick consumer, the periodic snapshot task, the
// pattern-prune cron job and the word-affect graph's decay loop (at the
// snapshot interval), blocking until ctx is cancelled or a task fails
// (spec §5's three task kinds: ingestion, periodic snapshot, and this
// runtime's own pipeline consumer in place of a fourth "request" task,
// since decision queries are served synchronously by Decide).
func (r *Runtime) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return r.tickLoop(ctx) })
	g.Go(func() error { return r.snapshotLoop(ctx) })
	g.Go(func() error { return r.pruneLoop(ctx) })
	g.Go(func() error {
		r.graph.RunDecayLoop(ctx, r.cfg.SnapshotInterval)
		return ctx.Err()
	})

	return g.Wait()
}

func (r *Runtime) tickLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-r.affectCh:
			r.runTick(e, time.Now())
		}
	}
}

// IngestAffect implements mqtt.Ingestor: decodes the wire message and
// enqueues a tick, dropping the oldest queued sample rather than blocking
// the mqtt callback goroutine if the consumer is behind.
func (r *Runtime) IngestAffect(_ context.Context, msg mqtt.AffectMessage) {
	r.enqueueTick(msg.ToVector24())
}

// IngestUtterance implements mqtt.Ingestor: stashes the triple so the next
// buffer push attaches it (spec §4.1 push_with_utterance), and primes the
// external-feedback term the next tick's update law consumes.
func (r *Runtime) IngestUtterance(_ context.Context, msg mqtt.UtteranceMessage) {
	r.pendingMu.Lock()
	r.pending = pendingUtterance{
		sentiment:  utteranceSentiment(msg),
		arousal:    msg.Confidence,
		text:       msg.Text,
		confidence: msg.Confidence,
		have:       true,
	}
	r.pendingMu.Unlock()
}

// utteranceSentiment returns zero (neutral): the utterance stream carries
// no sentiment field of its own (spec §6), and per-token sentiments from
// the token stream are not folded in.
func utteranceSentiment(_ mqtt.UtteranceMessage) float64 { return 0 }

// IngestTokens implements mqtt.Ingestor: feeds the word-affect graph (C6),
// which runs independently of the affect tick pipeline (spec §2: "C6 runs
// on the token stream in parallel").
func (r *Runtime) IngestTokens(_ context.Context, msg mqtt.TokenMessage) {
	now := time.Now()
	var wordIDs []string
	for _, tok := range msg.Tokens {
		id := r.graph.AddWord(tok.Lemma, tok.POS, msg.SentenceID, tok.Text, now)
		wordIDs = append(wordIDs, id)
		r.graph.DetectTemporalCooccurrences(id, now)
	}
	for _, rel := range msg.Relations {
		r.graph.AddSemanticEdge(rel.Source, rel.Target, rel.Type, now)
	}

	r.stateMu.RLock()
	snap := r.lastState
	have := r.haveState
	r.stateMu.RUnlock()
	if !have {
		return
	}
	var e affect.Vector24
	for i, name := range affect.EmotionNames {
		e[i] = snap.Emotions[name]
	}
	if affectID, ok := r.graph.AddAffectWithContext(e, 3*time.Second, snap.Valence, snap.Intensity, now); ok {
		r.graph.DetectCausality(affectID, now)
	}
}

// PushAffect implements httpapi.Runtime: manual affect injection, used by
// the admin HTTP surface and by tests.
func (r *Runtime) PushAffect(_ context.Context, v affect.Vector24) {
	r.enqueueTick(v)
}

func (r *Runtime) enqueueTick(v affect.Vector24) {
	select {
	case r.affectCh <- v:
	default:
		select {
		case <-r.affectCh:
		default:
		}
		r.affectCh <- v
	}
}

// runTick executes one pass of the C2→C4→C7→C5→C2→C8→C9→C10 pipeline
// (spec §2, §5) under the runtime's single tick lock: one logical agent
// owns every component mutation for the duration of a tick, so no
// component is touched by two ticks concurrently.
func (r *Runtime) runTick(e affect.Vector24, now time.Time) {
	r.tickMu.Lock()
	defer r.tickMu.Unlock()

	dt := now.Sub(r.lastTickAt).Seconds()
	if r.lastTickAt.IsZero() || dt <= 0 || dt > 3600 {
		dt = 1
	}
	r.lastTickAt = now

	r.pendingMu.Lock()
	pending := r.pending
	r.pending = pendingUtterance{}
	r.pendingMu.Unlock()

	// C2: push the observed state into the short-term buffer.
	var pushErr error
	if pending.have {
		pushErr = r.buf.PushWithUtterance(e, now, pending.sentiment, pending.arousal, pending.text)
	} else {
		pushErr = r.buf.Push(affect.TimestampedState{E: e, Timestamp: now})
	}
	if pushErr != nil {
		var verr *apperr.ValidationError
		if errors.As(pushErr, &verr) {
			r.logger.Warn("buffer rejected affect state", "code", verr.Code, "index", verr.OffendingIndex)
		}
		return
	}

	// C4: match the current signature onto a pattern.
	mr := r.match.Match(now)
	r.matches++
	if mr.IsNewPattern {
		r.patternsCreated++
	}
	if mr.IsTransition {
		r.transitions++
		r.pats.RecordTransition(mr.PreviousPatternID, mr.PatternID)
	}
	r.pats.RecordActivation(mr.PatternID, now)

	// C7: pull relevant memories, trauma state, and the memory-influence
	// vector the update law needs.
	relevant := r.mem.QueryRelevant(mr.PatternName, e, 8)
	memInfluence := memory.ComputeMemoryInfluences(relevant, 1.0)
	traumas := r.mem.ActiveTraumas()
	if _, created := r.mem.CreatePotentialTrauma(e, now); created {
		r.logger.Info("trauma recorded", "dominant", e.DominantName())
	}
	if len(traumas) > 0 {
		dominant := traumas[0].Activation >= traumaDominanceThreshold
		r.cons.SetTrauma(&consciousness.Trauma{Kind: consciousness.TraumaEmotional, Intensity: traumas[0].Activation, Dominant: dominant})
	} else {
		r.cons.SetTrauma(nil)
	}

	// C5: advance the affect vector under the matched pattern's law.
	next := r.updater.Next(affect.UpdateInput{
		Current:                  e,
		Coeffs:                   mr.Coefficients,
		DeltaSeconds:             dt,
		FeedbackExternal:         pending.sentiment,
		FeedbackInternal:         0,
		MemoryInfluence:          memInfluence,
		Wisdom:                   r.cons.Wisdom(),
		MatchConfidence:          mr.Confidence,
		ApplyConfidenceWeighting: true,
	})

	// C2 again: push the updated state back.
	_ = r.buf.Push(affect.TimestampedState{E: next, Timestamp: now})
	integ := r.buf.Integrate()

	if mr.Confidence > 0.6 && mr.Similarity > 0.7 {
		r.mem.RecordMemory(next, mr.PatternName, "", now)
	}

	// C10 (evaluated ahead of C9 since goalengine.Tick consumes its
	// result directly): watch for a critical-affect or trauma emergency.
	activeTraumas := make([]amygdala.ActiveTrauma, len(traumas))
	traumaLevel := 0.0
	for i, t := range traumas {
		activeTraumas[i] = amygdala.ActiveTrauma{ID: t.ID, Activation: t.Activation}
		if t.Activation > traumaLevel {
			traumaLevel = t.Activation
		}
	}
	emg := r.amyg.Evaluate(next, r.cfg.Amygdala.PhaseThreshold, activeTraumas, now)
	if emg.Triggered {
		r.emergencyTriggers++
	}

	// C8: consciousness and sentiment.
	memAct := memoryActivationFrom(relevant, traumas)
	csSnap := r.cons.Tick(next, memAct, consciousness.FeedbackState{
		Valence:     pending.sentiment,
		Intensity:   pending.confidence,
		Credibility: pending.confidence,
	}, consciousness.EnvironmentState{}, mr.PatternName, now)

	// C9: goal engine, consuming C8's Ft/wisdom and C10's emergency flag.
	causalEdges := toGoalEdges(r.graph.CausalEdgesForGoalEngine(now))
	r.goals.SetEmergency(emg.Triggered, string(emg.Action))
	geSnap := r.goals.Tick(next, csSnap.Ft, r.cons.Wisdom(), causalEdges, emg, r.cfg.Amygdala.OverrideEnabled, now)

	r.publishTick(next, mr, integ, csSnap, geSnap, emg, traumaLevel, now)
}

func memoryActivationFrom(relevant []memory.Memory, traumas []memory.Memory) consciousness.MemoryActivation {
	var ma consciousness.MemoryActivation
	if len(traumas) > 0 {
		ma.MCT = traumas[0].Activation
	}
	if len(relevant) == 0 {
		return ma
	}
	sum := 0.0
	for _, m := range relevant {
		sum += m.Activation
	}
	avg := sum / float64(len(relevant))
	ma.MLT = avg
	ma.ME = avg
	ma.MS = avg * 0.5
	ma.MA = avg * 0.5
	ma.MP = avg * 0.3
	return ma
}

func toGoalEdges(views []wag.CausalEdgeView) []goalengine.CausalEdge {
	out := make([]goalengine.CausalEdge, len(views))
	for i, v := range views {
		out[i] = goalengine.CausalEdge{
			Strength:        v.Strength,
			AffectValence:   v.AffectValence,
			AffectIntensity: v.AffectIntensity,
			FearIndex:       v.FearIndex,
			AnxietyIndex:    v.AnxietyIndex,
			ShameIndex:      v.ShameIndex,
		}
	}
	return out
}

func (r *Runtime) publishTick(next affect.Vector24, mr matcher.Result, integ buffer.Integration, cs consciousness.Snapshot, ge goalengine.Snapshot, emg amygdala.EmergencyResponse, traumaLevel float64, now time.Time) {
	words, affects, edges, causalEdges, density := r.graph.Counts()
	emotions := make(map[string]float64, affect.Dimensions)
	for i, name := range affect.EmotionNames {
		emotions[name] = next[i]
	}
	dominantIdx, dominantVal := next.Dominant()

	state := mqtt.StateMessage{
		Emotions:       emotions,
		EGlobal:        next.Global(),
		VarianceGlobal: next.VarianceGlobal(),
		Valence:        next.Valence(),
		Intensity:      next.Intensity(),
		DominantName:   affect.EmotionNames[dominantIdx],
		DominantValue:  dominantVal,
		Pattern: mqtt.StatePatternBlock{
			ID: mr.PatternID, Name: mr.PatternName, Similarity: mr.Similarity,
			Confidence: mr.Confidence, IsNew: mr.IsNewPattern, IsTransition: mr.IsTransition,
		},
		Coefficients: mqtt.StateCoefficientBlock{
			Alpha: mr.Coefficients.AlphaFeedbackExt, Beta: mr.Coefficients.BetaFeedbackInt,
			Gamma: mr.Coefficients.GammaDecay, Delta: mr.Coefficients.DeltaMemory,
			Theta: mr.Coefficients.ThetaWisdom, EmergencyThreshold: mr.EmergencyThreshold,
		},
		PhaseLabel:    string(emg.Action),
		PhaseDuration: now.Sub(r.lastTickAt).Seconds(),
		Buffer: mqtt.StateBufferMetrics{
			Size: r.buf.Size(), Stability: integ.Stability, Volatility: integ.Volatility, Trend: integ.Trend,
		},
		Graph: mqtt.StateGraphMetrics{
			WordCount: words, AffectCount: affects, EdgeCount: edges,
			CausalEdgeCount: causalEdges, Density: density,
		},
		Statistics: mqtt.StateStatistics{
			Transitions: r.transitions, EmergencyTriggers: r.emergencyTriggers,
			Wisdom: r.cons.Wisdom(), TotalPatterns: r.pats.Len(), TotalMatches: r.matches,
			PatternsCreated: r.patternsCreated,
		},
	}

	consMsg := mqtt.ConsciousnessMessage{
		Ct: cs.Ct,
		Components: mqtt.ConsciousnessComponents{
			Emotion: cs.Components.Emotion, Memory: cs.Components.Memory,
			Trauma: cs.Components.Trauma, Feedback: cs.Components.Feedback,
			Environment: cs.Components.Environment, WisdomFactor: cs.Components.WisdomFactor,
		},
		ActivePattern: cs.ActivePattern, HasTrauma: cs.HasTrauma || traumaLevel > 0.1,
		Ft: cs.Ft, FtRaw: cs.FtRaw, AccumulatedConscience: cs.AccumulatedConscience,
		FeedbackInfluence: cs.FeedbackInfluence, HistoryDepth: cs.HistoryDepth,
		AffectiveBackground: cs.AffectiveBackground, Wisdom: cs.Wisdom,
	}

	r.stateMu.Lock()
	r.lastState = httpapi.StateSnapshot{
		Emotions: emotions, Dominant: state.DominantName, Valence: state.Valence,
		Intensity: state.Intensity, Pattern: mr.PatternName, Timestamp: now,
	}
	r.haveState = true
	r.lastConsc = httpapi.ConsciousnessSnapshot{
		Ct: cs.Ct, Ft: cs.Ft, Wisdom: cs.Wisdom, HasTrauma: consMsg.HasTrauma, Timestamp: now,
	}
	r.haveConsc = true
	r.lastGoal = ge
	r.lastTrauma = traumaLevel
	r.lastCt = cs.Ct
	r.lastFt = cs.Ft
	r.lastAffect = next
	r.stateMu.Unlock()

	r.pub.PublishState(state)
	r.pub.PublishConsciousness(consMsg)
	// ge has no publication of its own (spec §6 lists only state/snapshot/
	// decision/consciousness); it is folded into the next on-demand Decide
	// call's Input via the lastGoal/lastTrauma snapshot above.
}

func (r *Runtime) emitSnapshot(now time.Time) {
	snap, ok := r.graph.CreateSnapshot(now)
	if !ok {
		return
	}
	nodes := r.graph.WordLemmas()
	adjacency := make(map[string][]string, len(snap.Adjacency))
	for _, edge := range snap.Adjacency {
		adjacency[edge.Src] = append(adjacency[edge.Src], edge.Dst)
	}
	r.pub.PublishSnapshot(mqtt.SnapshotMessage{
		WordCount: snap.WordCount, AffectCount: snap.AffectCount, EdgeCount: snap.EdgeCount,
		Nodes: nodes, Adjacency: adjacency, Timestamp: now.Unix(),
	})
}

// LatestState implements httpapi.Runtime.
func (r *Runtime) LatestState() (httpapi.StateSnapshot, bool) {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.lastState, r.haveState
}

// LatestConsciousness implements httpapi.Runtime.
func (r *Runtime) LatestConsciousness() (httpapi.ConsciousnessSnapshot, bool) {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.lastConsc, r.haveConsc
}

// GraphSnapshot implements httpapi.Runtime: the admin "snapshot export"
// surface. now is forced through so repeated exports within
// snapshot_interval_seconds return the same cached view the periodic
// publisher just emitted, rather than racing it.
func (r *Runtime) GraphSnapshot() wag.Snapshot {
	snap, fresh := r.graph.CreateSnapshot(time.Now())
	if !fresh && snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}
	return snap
}

// ImportGraphSnapshot implements httpapi.Runtime: the admin "snapshot
// import" surface, restoring a previously exported adjacency list.
func (r *Runtime) ImportGraphSnapshot(snap wag.Snapshot) int {
	return r.graph.ImportEdges(snap.Adjacency)
}

// ListPatterns implements httpapi.Runtime: the admin "pattern list"
// surface (spec §4.2's pattern store contents).
func (r *Runtime) ListPatterns() []pattern.Pattern {
	return r.pats.All()
}

// ImportPatterns implements httpapi.Runtime: restores a previously
// exported pattern set, overwriting any pattern sharing an id.
func (r *Runtime) ImportPatterns(patterns []pattern.Pattern) int {
	return r.pats.Import(patterns)
}

// Decide implements httpapi.Runtime: the on-demand DE path of spec §2's
// data flow, served outside the tick lock since deliberation reads a
// snapshot of state rather than mutating the pipeline. Any field the
// caller left zero-valued is filled in from the latest tick's state, so
// an HTTP caller can submit a partial Input (e.g. just ContextType) and
// still get deliberation grounded in the engine's current affect, Ct/Ft,
// dominant goal variable, and trauma level (spec §2: "DE consumes C9's G
// on demand").
func (r *Runtime) Decide(ctx context.Context, in decision.Input) decision.DecisionResult {
	if ctx.Err() != nil {
		return decision.DecisionResult{}
	}
	r.fillFromLatestTick(&in)
	r.enrichMemoryContext(ctx, &in)
	result := r.dec.Decide(in, time.Now())
	r.pub.PublishDecision(result)
	return result
}

// enrichMemoryContext fills in.Memory.Patterns from in-process memory when
// the caller left it empty, then best-effort supplements it from the
// external store's find_similar lookup; a store miss, timeout, or decode
// mismatch is dropped silently rather than failing the decision.
func (r *Runtime) enrichMemoryContext(ctx context.Context, in *decision.Input) {
	if len(in.Memory.Patterns) > 0 {
		return
	}
	for _, m := range r.mem.QueryRelevant(in.DominantGoalVar, in.Affect, 4) {
		if m.PatternAtCreation != "" {
			in.Memory.Patterns = append(in.Memory.Patterns, m.PatternAtCreation)
		}
	}
	resp, err := r.mem.FindSimilar(ctx, in.DominantGoalVar, in.Affect)
	if err != nil {
		return
	}
	if names, ok := resp.Payload.([]string); ok {
		in.Memory.Patterns = append(in.Memory.Patterns, names...)
	}
}

func (r *Runtime) fillFromLatestTick(in *decision.Input) {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	if in.Affect == (affect.Vector24{}) {
		in.Affect = r.lastAffect
	}
	if in.Ct == 0 {
		in.Ct = r.lastCt
	}
	if in.Ft == 0 {
		in.Ft = r.lastFt
	}
	if in.DominantGoalVar == "" {
		in.DominantGoalVar = r.lastGoal.DominantVariable
	}
	if in.TraumasLevel == 0 {
		in.TraumasLevel = r.lastTrauma
	}
}
