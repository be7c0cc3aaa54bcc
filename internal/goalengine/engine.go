package goalengine

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"affectengine/internal/affect"
	"affectengine/internal/amygdala"
)

// Config bundles the engine's tunable knobs (spec §4.9).
type Config struct {
	AttenuationFactor     float64 // 0.3 in step 2
	EmotionThreshold      float64 // 0.05 minimum intensity to apply step 2
	FeelingsOverride      bool
	WisdomModulation      bool
	WeightAdaptationRate  float64
	SigmoidOutput         bool
	SigmoidSteepness      float64
	StochasticBias        float64
	StochasticAmplitude   float64
	MemoryPullAlpha       float64
	MemoryPullGamma       float64
	ResilienceMax         float64
	FearTraumaThreshold   float64
	AnxietyTraumaThreshold float64
	ShameTraumaThreshold  float64
	SuccessGain           float64
	FailureGain           float64
	TraumaGain            float64
}

// DefaultConfig returns the engine's default tuning.
func DefaultConfig() Config {
	return Config{
		AttenuationFactor:      0.3,
		EmotionThreshold:       0.05,
		FeelingsOverride:       true,
		WisdomModulation:       true,
		WeightAdaptationRate:   0.02,
		SigmoidOutput:          true,
		SigmoidSteepness:       6.0,
		StochasticBias:         0.0,
		StochasticAmplitude:    0.02,
		MemoryPullAlpha:        0.2,
		MemoryPullGamma:        0.3,
		ResilienceMax:          1.0,
		FearTraumaThreshold:    0.7,
		AnxietyTraumaThreshold: 0.7,
		ShameTraumaThreshold:   0.6,
		SuccessGain:            0.03,
		FailureGain:            0.03,
		TraumaGain:             0.08,
	}
}

// Engine is the mutex-guarded C9 component.
type Engine struct {
	cfg Config

	mu          sync.Mutex
	variables   [NumVariables]Variable
	defaults    [NumVariables]Variable
	resilience  float64
	memoryPull  MemoryPull
	posInteract interactionMatrix
	negInteract interactionMatrix

	emergencyFlag  bool
	emergencyLabel string

	history      []float64
	lastG        float64
	lastSnapshot Snapshot

	onChange func(g float64)
	rng      *rand.Rand
}

// interactionMatrix is a thin same-package wrapper so engine.go does not
// need to import gonum's mat package directly in its hot loop.
type interactionMatrix struct {
	sym interface {
		At(i, j int) float64
	}
}

// New builds an engine at its default (P,w,L) table and neutral
// resilience.
func New(cfg Config) *Engine {
	defaults := defaultVariables()
	pos, neg := buildInteractionMatrices()
	return &Engine{
		cfg:         cfg,
		variables:   defaults,
		defaults:    defaults,
		resilience:  0.5,
		posInteract: interactionMatrix{sym: pos},
		negInteract: interactionMatrix{sym: neg},
		rng:         rand.New(rand.NewSource(1)),
	}
}

// OnChange registers a callback fired whenever |ΔG| exceeds 0.1 between
// ticks (spec §4.9 step 7).
func (e *Engine) OnChange(cb func(g float64)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onChange = cb
}

// SetRNG installs a pluggable RNG so tests can make the stochastic term
// deterministic (spec §9 design note "Stochasticity must be injectable").
func (e *Engine) SetRNG(r *rand.Rand) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng = r
}

// SetEmergency installs or clears the stored emergency label consulted by
// the tick's emergency path (spec §4.9 step 1).
func (e *Engine) SetEmergency(flag bool, label string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emergencyFlag = flag
	e.emergencyLabel = label
}

// Tick advances the goal model by one step (spec §4.9 steps 1-7). emg is
// the amygdala's most recent response; when Triggered and override is
// enabled, the emergency path short-circuits the rest of the tick.
func (e *Engine) Tick(es affect.Vector24, ft, wisdom float64, edges []CausalEdge, emg amygdala.EmergencyResponse, overrideEnabled bool, now time.Time) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.emergencyFlag && overrideEnabled {
		e.lastG = 1.0
		e.lastSnapshot = Snapshot{G: 1, DominantVariable: e.emergencyLabel, Emergency: true, EmergencyLabel: e.emergencyLabel, Resilience: e.resilience, MemoryPull: e.memoryPull}
		return e.lastSnapshot
	}
	if emg.Triggered && overrideEnabled {
		label := string(emg.Action)
		e.lastG = 1.0
		e.lastSnapshot = Snapshot{G: 1, DominantVariable: label, Emergency: true, EmergencyLabel: label, Resilience: e.resilience, MemoryPull: e.memoryPull}
		return e.lastSnapshot
	}

	// Step 2: emotion -> variable mapping.
	for i := 0; i < affect.Dimensions; i++ {
		intensity := es[i]
		if intensity < e.cfg.EmotionThreshold {
			continue
		}
		for j := 0; j < NumVariables; j++ {
			w := emotionToVariable[i][j]
			if w == 0 {
				continue
			}
			e.variables[j].P = clamp01(e.variables[j].P + e.cfg.AttenuationFactor*intensity*w)
		}
	}

	// Step 3: direct overrides.
	if e.cfg.FeelingsOverride {
		e.variables[IdxFeelings].P = clamp01((ft + 1) / 2)
	}
	e.variables[IdxEmotionalMemories].P = clamp01((es.Valence() + 1) / 2)

	// Step 4: memory-graph pull.
	if len(edges) > 0 {
		e.memoryPull = recomputeMemoryPull(edges, e.cfg)
	}

	// Step 5: wisdom-gated weight adaptation.
	if e.cfg.WisdomModulation {
		sum := 0.0
		for i := range e.variables {
			target := e.defaults[i].W * wisdom
			e.variables[i].W += (target - e.variables[i].W) * e.cfg.WeightAdaptationRate
			if e.variables[i].W < 0 {
				e.variables[i].W = 0
			}
			sum += e.variables[i].W
		}
		if sum > 0 {
			for i := range e.variables {
				e.variables[i].W /= sum
			}
		}
	}

	// Step 6: combine.
	weightedSum := 0.0
	for _, v := range e.variables {
		weightedSum += v.W * v.P * v.L
	}

	posInteractions := 0.0
	for i := 0; i < NumVariables; i++ {
		for j := i + 1; j < NumVariables; j++ {
			c := e.posInteract.sym.At(i, j)
			if c == 0 {
				continue
			}
			posInteractions += c * e.variables[i].P * e.variables[j].P
		}
	}
	posInteractions *= scalePos

	negInteractions := 0.0
	for i := 0; i < NumVariables; i++ {
		for j := i + 1; j < NumVariables; j++ {
			c := e.negInteract.sym.At(i, j)
			if c == 0 {
				continue
			}
			negInteractions += c * e.variables[i].P * e.variables[j].P
		}
	}
	negInteractions *= scaleNeg

	resilienceTerm := 0.1 * e.resilience * (1 - (e.variables[IdxRegrets].P + e.variables[IdxTraumas].P))
	stochasticTerm := e.rng.NormFloat64()*e.cfg.StochasticAmplitude + e.cfg.StochasticBias
	memoryTerm := e.cfg.MemoryPullAlpha*(e.memoryPull.Positive-e.memoryPull.Negative) - e.cfg.MemoryPullGamma*e.memoryPull.Trauma

	gRaw := weightedSum + posInteractions - negInteractions + resilienceTerm + stochasticTerm + memoryTerm

	var g float64
	if e.cfg.SigmoidOutput {
		g = sigmoid(e.cfg.SigmoidSteepness * (gRaw - 0.5))
	} else {
		g = clamp01(gRaw)
	}

	// Step 7: dominant variable + change callback.
	dominantIdx, dominantVal := 0, -math.MaxFloat64
	for i, v := range e.variables {
		score := v.W * v.P * v.L
		if score > dominantVal {
			dominantVal = score
			dominantIdx = i
		}
	}

	delta := g - e.lastG
	e.lastG = g
	e.history = append(e.history, g)
	if len(e.history) > 200 {
		e.history = e.history[len(e.history)-200:]
	}
	if math.Abs(delta) > 0.1 && e.onChange != nil {
		e.onChange(g)
	}

	e.lastSnapshot = Snapshot{
		G:                g,
		DominantVariable: VariableNames[dominantIdx],
		Emergency:        false,
		Resilience:       e.resilience,
		MemoryPull:       e.memoryPull,
	}
	return e.lastSnapshot
}

// State returns the most recently computed Snapshot without advancing the
// engine, for read-only callers (the admin export surface) that need the
// current goal-engine state alongside a tick.
func (e *Engine) State() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSnapshot
}

// RecordSuccess nudges resilience, self-knowledge and motivations upward
// by the configured fixed gain (spec §4.9 "Success/failure/trauma APIs").
func (e *Engine) RecordSuccess() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resilience = clampRange(e.resilience+e.cfg.SuccessGain, 0.1, e.cfg.ResilienceMax)
	e.variables[IdxSelfKnowledge].P = clamp01(e.variables[IdxSelfKnowledge].P + e.cfg.SuccessGain)
	e.variables[IdxMotivations].P = clamp01(e.variables[IdxMotivations].P + e.cfg.SuccessGain)
}

// RecordFailure nudges resilience down and regrets/motivations by the
// configured fixed gain.
func (e *Engine) RecordFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resilience = clampRange(e.resilience-e.cfg.FailureGain, 0.1, e.cfg.ResilienceMax)
	e.variables[IdxRegrets].P = clamp01(e.variables[IdxRegrets].P + e.cfg.FailureGain)
	e.variables[IdxMotivations].P = clamp01(e.variables[IdxMotivations].P - e.cfg.FailureGain)
}

// RecordTrauma nudges resilience down and traumas up by the configured
// fixed gain, and regrets up by half that gain.
func (e *Engine) RecordTrauma() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resilience = clampRange(e.resilience-e.cfg.TraumaGain, 0.1, e.cfg.ResilienceMax)
	e.variables[IdxTraumas].P = clamp01(e.variables[IdxTraumas].P + e.cfg.TraumaGain)
	e.variables[IdxRegrets].P = clamp01(e.variables[IdxRegrets].P + e.cfg.TraumaGain/2)
}

// Resilience returns the current resilience scalar Rs.
func (e *Engine) Resilience() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resilience
}

// Variable returns a copy of one (P,w,L) triple by index.
func (e *Engine) Variable(idx int) Variable {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.variables[idx]
}

func recomputeMemoryPull(edges []CausalEdge, cfg Config) MemoryPull {
	var pos, neg, trauma, totalWeight float64
	for _, ed := range edges {
		contribution := ed.Strength * ed.AffectIntensity
		totalWeight += ed.Strength
		switch {
		case ed.AffectValence > 0.2:
			pos += contribution
		case ed.AffectValence < -0.2:
			neg += contribution
		}
		if ed.FearIndex > cfg.FearTraumaThreshold || ed.AnxietyIndex > cfg.AnxietyTraumaThreshold || ed.ShameIndex > cfg.ShameTraumaThreshold {
			trauma += ed.Strength * math.Max(ed.FearIndex, math.Max(ed.AnxietyIndex, ed.ShameIndex))
		}
	}
	if totalWeight == 0 {
		return MemoryPull{}
	}
	return MemoryPull{Positive: pos / totalWeight, Negative: neg / totalWeight, Trauma: trauma / totalWeight}
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func clamp01(x float64) float64 { return clampRange(x, 0, 1) }

func clampRange(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
