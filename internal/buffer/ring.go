// Package buffer implements the short-term affect buffer (spec §4.1 C2):
// a time-windowed ring of timestamped affect states that validates input,
// integrates a stabilised estimate, and extracts matching signatures.
//
// Follows the same mutex-guarded registry shape and clamp/EMA numerics
// style used elsewhere in this codebase.
package buffer

import (
	"math"
	"sync"
	"time"

	"affectengine/internal/affect"
	"affectengine/internal/apperr"
)

// Config holds every threshold and window parameter of the buffer,
// individually overridable (spec §6 Config).
type Config struct {
	MaxSize                  int
	TimeWindowSeconds        float64
	MinSamplesForSignature   int
	MinNonzeroEmotions       int
	MaxJumpThreshold         float64
	EmotionMin               float64
	EmotionMax               float64
	RejectOnFailure          bool
	ExponentialWeighting     bool
}

// DefaultConfig returns the buffer defaults used across the pack's example
// engines: a 64-sample, 120s window, requiring at least 4 samples before a
// signature is meaningful.
func DefaultConfig() Config {
	return Config{
		MaxSize:                64,
		TimeWindowSeconds:      120,
		MinSamplesForSignature: 4,
		MinNonzeroEmotions:     1,
		MaxJumpThreshold:       0.6,
		EmotionMin:             0,
		EmotionMax:             1,
		RejectOnFailure:        true,
		ExponentialWeighting:   true,
	}
}

// StabilityCallback fires whenever the buffer holds at least two samples
// after a push, carrying the freshly computed integration.
type StabilityCallback func(Integration)

// Ring is the short-term affect buffer. All mutation is serialised under mu;
// callers receive value copies, never internal slice/array aliases.
type Ring struct {
	cfg Config

	mu      sync.Mutex
	entries []affect.TimestampedState
	cache   *Integration
	onStable StabilityCallback
}

// New constructs a Ring with cfg, falling back to DefaultConfig for zero
// values so a caller can partially override.
func New(cfg Config) *Ring {
	d := DefaultConfig()
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = d.MaxSize
	}
	if cfg.TimeWindowSeconds <= 0 {
		cfg.TimeWindowSeconds = d.TimeWindowSeconds
	}
	if cfg.MinSamplesForSignature <= 0 {
		cfg.MinSamplesForSignature = d.MinSamplesForSignature
	}
	if cfg.MaxJumpThreshold <= 0 {
		cfg.MaxJumpThreshold = d.MaxJumpThreshold
	}
	if cfg.EmotionMax <= cfg.EmotionMin {
		cfg.EmotionMin, cfg.EmotionMax = d.EmotionMin, d.EmotionMax
	}
	return &Ring{cfg: cfg, entries: make([]affect.TimestampedState, 0, cfg.MaxSize)}
}

// OnStable registers the stability callback (spec §9: explicit callback
// fields rather than dynamic dispatch).
func (r *Ring) OnStable(cb StabilityCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onStable = cb
}

// Push validates and inserts state, evicting by size/age, and invalidates
// the integration cache. When validation fails and RejectOnFailure is set,
// it returns a *apperr.ValidationError and leaves the buffer untouched.
func (r *Ring) Push(state affect.TimestampedState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushLocked(state)
}

// PushWithUtterance is Push plus an attached utterance triple.
func (r *Ring) PushWithUtterance(e affect.Vector24, ts time.Time, sentiment, arousal float64, text string) error {
	return r.Push(affect.TimestampedState{
		E:         e,
		Timestamp: ts,
		Utterance: &affect.Utterance{Sentiment: sentiment, Arousal: arousal, Text: text},
	})
}

func (r *Ring) pushLocked(state affect.TimestampedState) error {
	var prev *affect.Vector24
	if len(r.entries) > 0 {
		p := r.entries[len(r.entries)-1].E
		prev = &p
	}

	if vErr := validate(state.E, prev, r.cfg); vErr != nil {
		if r.cfg.RejectOnFailure {
			return vErr
		}
		state.E = sanitize(state.E, prev, r.cfg)
	}

	r.entries = append(r.entries, state)
	r.evictLocked(state.Timestamp)
	r.cache = nil

	if len(r.entries) >= 2 && r.onStable != nil {
		integration := r.integrateLocked()
		cb := r.onStable
		// Never hold the lock across a callback to user code (spec §9).
		r.mu.Unlock()
		cb(integration)
		r.mu.Lock()
	}
	return nil
}

func (r *Ring) evictLocked(now time.Time) {
	for len(r.entries) > r.cfg.MaxSize {
		r.entries = r.entries[1:]
	}
	cutoff := now.Add(-time.Duration(r.cfg.TimeWindowSeconds * float64(time.Second)))
	start := 0
	for start < len(r.entries) && r.entries[start].Timestamp.Before(cutoff) {
		start++
	}
	if start > 0 {
		r.entries = append([]affect.TimestampedState{}, r.entries[start:]...)
	}
}

// Clear empties the buffer and invalidates the cache.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.entries[:0]
	r.cache = nil
}

// Size returns the current sample count.
func (r *Ring) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Snapshot returns a value copy of the buffer's current contents.
func (r *Ring) Snapshot() []affect.TimestampedState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]affect.TimestampedState, len(r.entries))
	copy(out, r.entries)
	return out
}

// Integration is the result of Integrate(): a stabilised estimate of the
// buffer window plus volatility/trend/per-emotion-velocity summaries.
type Integration struct {
	Integrated   affect.Vector24
	Stability    float64
	Volatility   float64
	Trend        float64
	Velocity     affect.Vector24
	SampleCount  int
	TimeSpanSecs float64
}

// Integrate returns the memoised integration, recomputing it if the cache
// was invalidated since the last call.
func (r *Ring) Integrate() Integration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.integrateLocked()
}

func (r *Ring) integrateLocked() Integration {
	if r.cache != nil {
		return *r.cache
	}
	result := r.computeIntegration()
	r.cache = &result
	return result
}

func (r *Ring) computeIntegration() Integration {
	n := len(r.entries)
	if n == 0 {
		return Integration{}
	}
	if n == 1 {
		return Integration{Integrated: r.entries[0].E, Stability: 1, Volatility: 0, SampleCount: 1}
	}

	weights := make([]float64, n)
	if r.cfg.ExponentialWeighting {
		halfLife := r.cfg.TimeWindowSeconds / 3
		if halfLife <= 0 {
			halfLife = 1
		}
		lambda := math.Ln2 / halfLife
		latest := r.entries[n-1].Timestamp
		for i, e := range r.entries {
			age := latest.Sub(e.Timestamp).Seconds()
			if age < 0 {
				age = 0
			}
			weights[i] = math.Exp(-lambda * age)
		}
	} else {
		for i := range weights {
			weights[i] = 1
		}
	}

	var totalW float64
	var integrated affect.Vector24
	for i, e := range r.entries {
		w := weights[i]
		totalW += w
		for d := 0; d < affect.Dimensions; d++ {
			integrated[d] += w * e.E[d]
		}
	}
	if totalW > 0 {
		for d := range integrated {
			integrated[d] /= totalW
		}
	}

	var stdSum float64
	var perEmotionStd [affect.Dimensions]float64
	for d := 0; d < affect.Dimensions; d++ {
		var sum float64
		for i, e := range r.entries {
			diff := e.E[d] - integrated[d]
			sum += weights[i] * diff * diff
		}
		variance := 0.0
		if totalW > 0 {
			variance = sum / totalW
		}
		perEmotionStd[d] = math.Sqrt(math.Max(0, variance))
		stdSum += perEmotionStd[d]
	}
	meanStd := stdSum / float64(affect.Dimensions)
	stability := math.Max(0, 1-2*meanStd)
	volatility := 1 - stability

	firstGlobal := r.entries[0].E.Global()
	lastGlobal := r.entries[n-1].E.Global()
	span := r.entries[n-1].Timestamp.Sub(r.entries[0].Timestamp).Seconds()
	trend := 0.0
	if span > 0 {
		slope := (lastGlobal - firstGlobal) / span
		trend = affect.Clamp(slope*10, -1, 1) // normalise to a per-10s slope, clipped
	}

	var velocity affect.Vector24
	if n >= 2 && span > 0 {
		for d := 0; d < affect.Dimensions; d++ {
			velocity[d] = (r.entries[n-1].E[d] - r.entries[n-2].E[d]) /
				math.Max(0.001, r.entries[n-1].Timestamp.Sub(r.entries[n-2].Timestamp).Seconds())
		}
	}

	return Integration{
		Integrated:   integrated,
		Stability:    affect.Clamp01(stability),
		Volatility:   affect.Clamp01(volatility),
		Trend:        trend,
		Velocity:     velocity,
		SampleCount:  n,
		TimeSpanSecs: span,
	}
}

// ExtractSignature returns (Signature{}, false) when the window holds fewer
// than MinSamplesForSignature states (spec §4.1: EmptySignature is not an
// error, callers fall back).
func (r *Ring) ExtractSignature() (Signature, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.extractSignatureLocked()
}

func (r *Ring) extractSignatureLocked() (Signature, bool) {
	n := len(r.entries)
	if n < r.cfg.MinSamplesForSignature {
		return Signature{}, false
	}

	var sig Signature
	thirdLen := n / 3
	if thirdLen == 0 {
		thirdLen = 1
	}
	firstThird := r.entries[:thirdLen]
	lastThird := r.entries[n-thirdLen:]

	for d := 0; d < affect.Dimensions; d++ {
		var sum, sumSq float64
		peakVal := r.entries[0].E[d]
		peakIdx := 0
		for i, e := range r.entries {
			v := e.E[d]
			sum += v
			if v > peakVal {
				peakVal, peakIdx = v, i
			}
		}
		mean := sum / float64(n)
		for _, e := range r.entries {
			diff := e.E[d] - mean
			sumSq += diff * diff
		}
		sig.Mean[d] = mean
		sig.Std[d] = math.Sqrt(sumSq / float64(n))
		sig.PeakPosition[d] = float64(peakIdx) / float64(maxInt(1, n-1))

		firstMean := meanAtDim(firstThird, d)
		lastMean := meanAtDim(lastThird, d)
		sig.Trend[d] = lastMean - firstMean

		midStart := thirdLen
		midEnd := n - thirdLen
		if midEnd > midStart {
			midThird := r.entries[midStart:midEnd]
			midMean := meanAtDim(midThird, d)
			firstTrend := midMean - firstMean
			secondTrend := lastMean - midMean
			sig.Accel[d] = secondTrend - firstTrend
		}

		oscillations := 0
		var prevDiff float64
		hasPrevDiff := false
		for i := 1; i < n; i++ {
			diff := r.entries[i].E[d] - r.entries[i-1].E[d]
			if math.Abs(diff) <= 0.01 {
				continue
			}
			if hasPrevDiff && sign(diff) != sign(prevDiff) {
				oscillations++
			}
			prevDiff = diff
			hasPrevDiff = true
		}
		sig.OscillationCount[d] = oscillations
	}

	integration := r.computeIntegration()
	sig.Intensity = sig.Mean.Intensity()
	sig.Valence = sig.Mean.Valence()
	sig.Arousal = sig.Mean.Arousal()
	sig.Stability = integration.Stability

	totalOscillations := 0
	for _, c := range sig.OscillationCount {
		totalOscillations += c
	}
	windowSeconds := r.entries[n-1].Timestamp.Sub(r.entries[0].Timestamp).Seconds()
	if windowSeconds > 0 {
		sig.DominantFrequency = float64(totalOscillations) / windowSeconds
	}

	return sig, true
}

func meanAtDim(entries []affect.TimestampedState, d int) float64 {
	if len(entries) == 0 {
		return 0
	}
	sum := 0.0
	for _, e := range entries {
		sum += e.E[d]
	}
	return sum / float64(len(entries))
}

func sign(x float64) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SimilarityWith extracts the current signature (if any) and compares it to
// sig via cosine + bonuses. Returns 0 when no signature is available.
func (r *Ring) SimilarityWith(sig Signature) float64 {
	current, ok := r.ExtractSignature()
	if !ok {
		return 0
	}
	return current.SimilarityWith(sig)
}

var _ = apperr.ErrEmptySignature // documents the EmptySignature non-error contract
