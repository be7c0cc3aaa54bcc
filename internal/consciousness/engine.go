package consciousness

import (
	"math"
	"sync"
	"time"

	"affectengine/internal/affect"
)

// Config bundles the engine's tunable bounds (spec §4.8).
type Config struct {
	WisdomInit        float64
	WisdomMax         float64
	WisdomGrowthRate  float64
	SentimentGamma    float64 // γ, history-weighting decay
	SentimentLambda   float64 // λ, feedback term weight
	SentimentHistory  int     // bounded Ct history depth
	BackgroundEMARate float64 // affective-background EMA smoothing
}

// DefaultConfig returns the engine's default tuning.
func DefaultConfig() Config {
	return Config{
		WisdomInit:        1.0,
		WisdomMax:         2.0,
		WisdomGrowthRate:  0.1,
		SentimentGamma:    0.9,
		SentimentLambda:   0.3,
		SentimentHistory:  10,
		BackgroundEMARate: 0.1,
	}
}

// Engine is the mutex-guarded C8 component: per-tick consciousness level
// Ct, a smoothed sentiment Ft over bounded Ct history, a wisdom scalar
// gated by cumulative experience, and an affective background EMA.
type Engine struct {
	cfg Config

	mu                  sync.Mutex
	alphaMod            [affect.Dimensions]float64
	memoryWeights       [6]float64 // MCT, MLT, MP, ME, MS, MA, in that order
	trauma              *Trauma
	wisdom              float64
	ctHistory           []float64
	affectiveBackground float64
	lastSnapshot        Snapshot
}

// New builds an engine at its initial wisdom and neutral modulation.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:           cfg,
		alphaMod:      newAlphaModulation(),
		memoryWeights: [6]float64{weightMCT, weightMLT, weightMP, weightME, weightMS, weightMA},
		wisdom:        cfg.WisdomInit,
	}
}

// SetTrauma installs or clears the tracked trauma. Passing nil clears it.
func (e *Engine) SetTrauma(t *Trauma) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.trauma = t
}

// ModulateAlpha multiplies the runtime modulation for one emotion index by
// factor, clamped to [0, 3] to keep a single feedback event from blowing up
// emotion_sum.
func (e *Engine) ModulateAlpha(idx int, factor float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx < 0 || idx >= affect.Dimensions {
		return
	}
	e.alphaMod[idx] = clampRange(e.alphaMod[idx]*factor, 0, 3)
}

// ModulateMemoryWeight nudges one of the six memory weights by delta and
// renormalizes the set back to sum 1, mirroring pattern.AdjustCoefficients'
// nudge-then-renormalize shape.
func (e *Engine) ModulateMemoryWeight(which int, delta float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if which < 0 || which >= len(e.memoryWeights) {
		return
	}
	e.memoryWeights[which] = math.Max(0, e.memoryWeights[which]+delta)
	sum := 0.0
	for _, w := range e.memoryWeights {
		sum += w
	}
	if sum <= 0 {
		return
	}
	for i := range e.memoryWeights {
		e.memoryWeights[i] /= sum
	}
}

// Tick computes Ct from the current affect, memory activations, feedback
// and environment state, folds it into the bounded history, derives Ft,
// and grows wisdom from the tick's magnitude (spec §4.8 full equation).
func (e *Engine) Tick(es affect.Vector24, mem MemoryActivation, fb FeedbackState, env EnvironmentState, activePattern string, now time.Time) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	emotionSum := 0.0
	for i := 0; i < affect.Dimensions; i++ {
		emotionSum += baseAlpha[i] * e.alphaMod[i] * es[i]
	}

	memorySum := e.memoryWeights[0]*mem.MCT + e.memoryWeights[1]*mem.MLT +
		e.memoryWeights[2]*mem.MP + e.memoryWeights[3]*mem.ME +
		e.memoryWeights[4]*mem.MS + e.memoryWeights[5]*mem.MA

	traumaSum := 0.0
	hasTrauma := e.trauma != nil
	if hasTrauma {
		if e.trauma.Dominant {
			traumaSum = weightTrauma * e.trauma.Intensity
		} else {
			traumaSum = 0.5 * weightTrauma * e.trauma.Intensity
		}
	}

	feedbackSum := weightFeedback * fb.Score()
	envSum := weightEnv * (env.Hostility + env.Noise - env.Familiarity + env.SocialDensity) / 4

	wisdomFactor := e.wisdom
	ctRaw := wisdomFactor * (emotionSum + memorySum + traumaSum + feedbackSum + envSum)
	ct := tanhOrClip(ctRaw)

	e.ctHistory = append(e.ctHistory, ct)
	if len(e.ctHistory) > e.cfg.SentimentHistory {
		e.ctHistory = e.ctHistory[len(e.ctHistory)-e.cfg.SentimentHistory:]
	}

	weighted := 0.0
	weightTotal := 0.0
	// most recent entry gets γ^0, next γ^1, ... (reverse-chronological decay)
	for i := 0; i < len(e.ctHistory); i++ {
		age := len(e.ctHistory) - 1 - i
		w := math.Pow(e.cfg.SentimentGamma, float64(age))
		weighted += w * e.ctHistory[i]
		weightTotal += w
	}
	accumulated := 0.0
	if weightTotal > 0 {
		accumulated = weighted / weightTotal
	}
	ftRaw := accumulated + e.cfg.SentimentLambda*fb.Score()
	ft := tanhOrClip(ftRaw)

	e.affectiveBackground = e.cfg.BackgroundEMARate*ft + (1-e.cfg.BackgroundEMARate)*e.affectiveBackground

	e.wisdom = math.Min(e.cfg.WisdomMax, e.wisdom+e.cfg.WisdomGrowthRate*math.Log(1+math.Abs(ctRaw)))

	snap := Snapshot{
		Ct: ct,
		Components: Components{
			Emotion:      emotionSum,
			Memory:       memorySum,
			Trauma:       traumaSum,
			Feedback:     feedbackSum,
			Environment:  envSum,
			WisdomFactor: wisdomFactor,
		},
		ActivePattern:         activePattern,
		HasTrauma:             hasTrauma,
		Ft:                    ft,
		FtRaw:                 ftRaw,
		AccumulatedConscience: accumulated,
		FeedbackInfluence:     e.cfg.SentimentLambda * fb.Score(),
		HistoryDepth:          len(e.ctHistory),
		AffectiveBackground:   e.affectiveBackground,
		Wisdom:                e.wisdom,
		Timestamp:             now,
	}
	e.lastSnapshot = snap
	return snap
}

// AddExperience grows wisdom directly from an external experience
// magnitude x, independent of a Tick (spec §8 scenario 4: add_experience).
func (e *Engine) AddExperience(x float64) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wisdom = math.Min(e.cfg.WisdomMax, e.wisdom+e.cfg.WisdomGrowthRate*math.Log(1+math.Abs(x)))
	return e.wisdom
}

// ResetWisdom restores wisdom to its configured initial value.
func (e *Engine) ResetWisdom() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wisdom = e.cfg.WisdomInit
}

// Wisdom returns the current wisdom scalar.
func (e *Engine) Wisdom() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wisdom
}

// Last returns the most recently computed snapshot.
func (e *Engine) Last() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSnapshot
}

func tanhOrClip(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return clampRange(x, -1, 1)
	}
	return math.Tanh(x)
}

func clampRange(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
