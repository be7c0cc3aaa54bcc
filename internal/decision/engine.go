package decision

import (
	"math"
	"sort"
	"sync"
	"time"

	"affectengine/internal/affect"
)

// Config bundles the engine's tunable thresholds (spec §4.11).
type Config struct {
	TauMaxMs            float64
	ThetaVeto           float64
	ThetaMeta           float64
	ThetaInfo           float64
	ThetaConfidence     float64
	KappaThreshold      float64 // κ_threshold, uncertainty->simulation-depth divisor
	MaxSimulationDepth  int
	MaxMacroOptions     int
	TopKRefinement      int
	MetaActionsEnabled  bool
	ScoreWeights        [5]float64 // w1..w5
	FtBoost             float64
	ThetaAutomate       int
	SuccessPromote      float64
	FailureDemote       float64
	LrMlt               float64
	LrMp                float64
	HistorySize         int
}

// DefaultConfig returns the engine's default tuning.
func DefaultConfig() Config {
	return Config{
		TauMaxMs:           800,
		ThetaVeto:          0.75,
		ThetaMeta:          0.5,
		ThetaInfo:          0.5,
		ThetaConfidence:    0.15,
		KappaThreshold:     0.2,
		MaxSimulationDepth: 5,
		MaxMacroOptions:    8,
		TopKRefinement:     3,
		MetaActionsEnabled: true,
		ScoreWeights:       [5]float64{0.3, 0.25, 0.2, 0.15, 0.1},
		FtBoost:            0.2,
		ThetaAutomate:      5,
		SuccessPromote:     0.8,
		FailureDemote:      0.5,
		LrMlt:              0.2,
		LrMp:               0.2,
		HistorySize:        50,
	}
}

// Engine is the mutex-guarded C11 component. A single lock serializes all
// four phases of a Decide call per spec §4.11's "per-call lock".
type Engine struct {
	cfg Config

	mu         sync.Mutex
	history    []DecisionResult
	lastOption map[string]ActionOption // by option id, for record_outcome
	learning   learningState

	onVeto     func(ActionOption)
	onConflict func(Conflict)
}

// New builds a decision engine with the given config.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, lastOption: make(map[string]ActionOption), learning: newLearningState()}
}

// OnVeto registers a callback fired whenever an option is vetoed.
func (e *Engine) OnVeto(cb func(ActionOption)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onVeto = cb
}

// OnConflict registers a callback fired whenever a goal-variable conflict
// is detected.
func (e *Engine) OnConflict(cb func(Conflict)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onConflict = cb
}

// Input bundles everything Decide needs from the rest of the engine for a
// single call: current affect/consciousness/sentiment, the active context
// label, extra alerts beyond the auto-derived ones, the goal engine's
// dominant variable and Traumas level for conflict detection, and the
// already-assembled memory context from Phase 2's data sources.
type Input struct {
	Affect            affect.Vector24
	Ct                float64
	Ft                float64
	ContextType       string
	ExtraAlerts       []Alert
	DominantGoalVar   string
	TraumasLevel      float64
	Memory            MemoryContext
}

func emotionIdx(name string) int {
	for i, n := range affect.EmotionNames {
		if n == name {
			return i
		}
	}
	panic("decision: unknown emotion name " + name)
}

var idxSurprise = emotionIdx("Surprise")

// Decide runs the full four-phase pipeline (spec §4.11).
func (e *Engine) Decide(in Input, now time.Time) DecisionResult {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	frame := e.buildSituationFrame(in, now)

	if frame.Urgency >= 0.9 {
		result := e.reflex(in.Memory, frame, now)
		result.TauElapsedMs = msSince(start)
		e.appendHistoryLocked(result)
		return result
	}

	currentEmotion := [6]float64{
		in.Affect[affect.IdxJoy], in.Affect[affect.IdxFear], in.Affect[affect.IdxAnger],
		in.Affect[affect.IdxSadness], in.Affect[idxSurprise], in.Affect[affect.IdxDisgust],
	}
	scoredEpisodes := ScoreEpisodes(in.ContextType, currentEmotion, in.Memory.Episodes)
	procedures := MatchProcedures(in.ContextType, in.Memory.Procedures)
	concepts := MatchConcepts(in.Memory.Concepts)

	options := e.generateOptions(frame, procedures)
	e.projectOptions(options, scoredEpisodes)

	alerts := append(append([]Alert{}, frame.Alerts...), in.ExtraAlerts...)
	e.vetoOptions(options, alerts)

	nonVetoed := make([]*ActionOption, 0, len(options))
	for i := range options {
		if !options[i].Vetoed {
			nonVetoed = append(nonVetoed, &options[i])
		}
	}
	e.scoreOptions(nonVetoed, in.Ft)

	sort.Slice(nonVetoed, func(i, j int) bool { return nonVetoed[i].Score > nonVetoed[j].Score })

	meta := buildMetaState(nonVetoed, e.cfg.ThetaMeta)

	conflicts := detectConflicts(in.DominantGoalVar, in.TraumasLevel)
	for _, c := range conflicts {
		if e.onConflict != nil {
			e.onConflict(c)
		}
	}

	chosen := selectOption(nonVetoed, meta, e.cfg)

	_ = concepts // matched concepts are not used by option generation, projection or scoring.

	result := DecisionResult{
		ChosenOption: chosen,
		Kappa:        meta.Confidence,
		ReflexMode:   false,
		Conflicts:    conflicts,
		MetaState:    meta,
		AllOptions:   options,
		TauElapsedMs: msSince(start),
		Timestamp:    now,
	}
	e.lastOption[chosen.ID] = chosen
	e.appendHistoryLocked(result)
	return result
}

func (e *Engine) buildSituationFrame(in Input, now time.Time) SituationFrame {
	var alerts []Alert
	fear := in.Affect[affect.IdxFear]
	anger := in.Affect[affect.IdxAnger]
	anxiety := in.Affect[affect.IdxAnxiety]
	if fear > 0.6 {
		alerts = append(alerts, Alert{Type: "danger", Severity: fear})
	}
	if anger > 0.7 {
		alerts = append(alerts, Alert{Type: "escalation", Severity: anger})
	}

	severitySum := 0.0
	for _, a := range alerts {
		severitySum += a.Severity
	}
	urgency := clamp01(0.4*fear + 0.2*anger + 0.2*anxiety + 0.3*severitySum)
	tauDelib := e.cfg.TauMaxMs * (1 - urgency)

	var arr [24]float64 = in.Affect
	return SituationFrame{
		Affect:      arr,
		Ct:          in.Ct,
		Ft:          in.Ft,
		ContextType: in.ContextType,
		Urgency:     urgency,
		Alerts:      alerts,
		TauDelibMs:  tauDelib,
	}
}

func (e *Engine) reflex(mem MemoryContext, frame SituationFrame, now time.Time) DecisionResult {
	for _, p := range mem.Procedures {
		if p.IsReflex {
			opt := ActionOption{ID: "reflex_" + p.ID, Name: p.ActionName, Category: "reflex"}
			return DecisionResult{ChosenOption: opt, Kappa: 0.9, ReflexMode: true, MetaState: MetaState{Confidence: 0.9}, Timestamp: now}
		}
	}
	opt := ActionOption{ID: "reflex_default_protect", Name: "protect", Category: "protective"}
	return DecisionResult{ChosenOption: opt, Kappa: 0.9, ReflexMode: true, MetaState: MetaState{Confidence: 0.9}, Timestamp: now}
}

func (e *Engine) generateOptions(frame SituationFrame, procedures []Procedure) []ActionOption {
	macros := append([]string{}, universalMacros...)
	macros = append(macros, contextMacros[frame.ContextType]...)

	type scoredMacro struct {
		name  string
		score float64
	}
	var procedureMacros []string
	for _, p := range procedures {
		if p.SuccessRate > 0.7 && p.ActivationCount > 3 {
			name := "procedure_" + p.ID
			macros = append(macros, name)
			procedureMacros = append(procedureMacros, name)
		}
	}
	if len(macros) > e.cfg.MaxMacroOptions {
		macros = macros[:e.cfg.MaxMacroOptions]
	}

	scored := make([]scoredMacro, len(macros))
	for i, m := range macros {
		scored[i] = scoredMacro{m, macroScore(m, frame.Urgency, frame.Ft, frame.Ct)}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > e.cfg.TopKRefinement {
		scored = scored[:e.cfg.TopKRefinement]
	}

	var options []ActionOption
	isProcedureMacro := func(name string) bool {
		for _, pm := range procedureMacros {
			if pm == name {
				return true
			}
		}
		return false
	}
	for _, sm := range scored {
		if isProcedureMacro(sm.name) {
			options = append(options, ActionOption{ID: sm.name, Name: sm.name, Category: "procedural"})
			continue
		}
		actions, ok := macroToActions[sm.name]
		if !ok || len(actions) == 0 {
			options = append(options, ActionOption{ID: "act_" + sm.name, Name: "act_" + sm.name, Category: actionCategory(sm.name)})
			continue
		}
		for _, a := range actions {
			options = append(options, ActionOption{ID: a, Name: a, Category: actionCategory(a)})
		}
	}

	if e.cfg.MetaActionsEnabled {
		options = append(options,
			ActionOption{ID: "meta_observe", Name: "observe", Category: "meta", MetaKind: MetaObserve},
			ActionOption{ID: "meta_question", Name: "question", Category: "meta", MetaKind: MetaQuestion},
			ActionOption{ID: "meta_defer", Name: "defer", Category: "meta", MetaKind: MetaDefer},
		)
	}
	return options
}

func (e *Engine) projectOptions(options []ActionOption, episodes []Episode) {
	for i := range options {
		forecast, risk := categoryForecast(options[i].Category)

		uncertainty := 0.5
		matchCount := 0
		product := 1.0
		for _, ep := range episodes {
			product *= 1 - 0.3*ep.Similarity
			matchCount++
		}
		if matchCount > 0 {
			uncertainty = 0.5 * product
		}
		uncertainty = clamp01(uncertainty)

		outcome := "uncertain"
		if len(episodes) > 0 {
			outcome = episodes[0].Outcome
		}

		depth := 1
		if uncertainty > 0 {
			depth = 1 + int(math.Floor(e.cfg.KappaThreshold/uncertainty))
		}
		if depth < 1 {
			depth = 1
		}
		if depth > e.cfg.MaxSimulationDepth {
			depth = e.cfg.MaxSimulationDepth
		}

		options[i].Projection = Projection{
			OutcomeExpected:   outcome,
			EmotionalForecast: forecast,
			GoalAlignment:     0.5,
			Uncertainty:       uncertainty,
			Risk:              risk,
			SimulationDepth:   depth,
		}
	}
}

func (e *Engine) vetoOptions(options []ActionOption, alerts []Alert) {
	escalationSeverity, reputationSeverity := 0.0, 0.0
	for _, a := range alerts {
		switch a.Type {
		case "escalation":
			escalationSeverity = a.Severity
		case "reputation":
			reputationSeverity = a.Severity
		}
	}
	for i := range options {
		inflation := 0.0
		cat := options[i].Category
		if cat == "aggressive" {
			inflation += 0.3 * escalationSeverity
		}
		if cat == "impulsive" {
			inflation += 0.2 * reputationSeverity
		}
		if options[i].Projection.Risk+inflation > e.cfg.ThetaVeto {
			options[i].Vetoed = true
			options[i].VetoReason = "risk_plus_alert_inflation_exceeds_threshold"
			if e.onVeto != nil {
				e.onVeto(options[i])
			}
		}
	}
}

func (e *Engine) scoreOptions(options []*ActionOption, ft float64) {
	w := e.cfg.ScoreWeights
	w1, w2, w3, w4, w5 := w[0], w[1], w[2], w[3], w[4]
	if ft > 0 {
		w4 -= e.cfg.FtBoost * ft
		w3 += e.cfg.FtBoost * ft
	} else if ft < 0 {
		w5 += e.cfg.FtBoost * -ft
	}
	if w4 < 0 {
		w4 = 0
	}
	total := w1 + w2 + w3 + w4 + w5
	if total > 0 {
		scale := (w[0] + w[1] + w[2] + w[3] + w[4]) / total
		w1 *= scale
		w2 *= scale
		w3 *= scale
		w4 *= scale
		w5 *= scale
	}
	for _, opt := range options {
		p := opt.Projection
		opt.Score = w1*p.GoalAlignment + w2*p.EmotionalForecast + w3*(1-p.Uncertainty) - w4*p.Uncertainty - w5*p.Risk
	}
}

func buildMetaState(ranked []*ActionOption, thetaMeta float64) MetaState {
	if len(ranked) == 0 {
		return MetaState{}
	}
	best := ranked[0].Score
	second := 0.0
	if len(ranked) > 1 {
		second = ranked[1].Score
	}
	sumUncertainty := 0.0
	for _, o := range ranked {
		sumUncertainty += o.Projection.Uncertainty
	}
	uncertaintyGlobal := sumUncertainty / float64(len(ranked))
	return MetaState{
		Confidence:        best - second,
		UncertaintyGlobal: uncertaintyGlobal,
		KnowUnknown:       uncertaintyGlobal > thetaMeta,
	}
}

func detectConflicts(dominantGoalVar string, traumasLevel float64) []Conflict {
	var conflicts []Conflict
	if dominantGoalVar == "Surpassing" && traumasLevel > 0.5 {
		conflicts = append(conflicts, Conflict{
			Description: "Surpassing dominant while Traumas elevated",
			Intensity:   traumasLevel,
			Resolution:  "extend_delib",
		})
	}
	return conflicts
}

func selectOption(ranked []*ActionOption, meta MetaState, cfg Config) ActionOption {
	if len(ranked) == 0 {
		return ActionOption{ID: "act_protect", Name: "act_protect", Category: "protective"}
	}
	if cfg.MetaActionsEnabled && meta.UncertaintyGlobal > cfg.ThetaInfo && meta.Confidence < cfg.ThetaConfidence {
		for _, o := range ranked {
			if o.MetaKind != MetaNone {
				return *o
			}
		}
	}
	return *ranked[0]
}

func (e *Engine) appendHistoryLocked(result DecisionResult) {
	e.history = append(e.history, result)
	if len(e.history) > e.cfg.HistorySize {
		e.history = e.history[len(e.history)-e.cfg.HistorySize:]
	}
}

// History returns a copy of the bounded decision history.
func (e *Engine) History() []DecisionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]DecisionResult, len(e.history))
	copy(out, e.history)
	return out
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
