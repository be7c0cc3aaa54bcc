package affect

import "math"

// Coefficients are the five per-pattern update-law coefficients consumed
// by the affect updater (spec §4.4 C5): external feedback gain, internal
// feedback gain, decay, memory-influence gain, and wisdom gain.
type Coefficients struct {
	AlphaFeedbackExt float64 // α_fb
	BetaFeedbackInt  float64 // β_fb_int
	GammaDecay       float64 // γ_decay
	DeltaMemory      float64 // δ_mem
	ThetaWisdom      float64 // θ_wisdom
}

// UpdateInput bundles everything the update law needs for one tick, mirroring
// the teacher persona engine's single UpdateInput struct consumed by Update().
type UpdateInput struct {
	Current           Vector24
	Coeffs            Coefficients
	DeltaSeconds      float64
	FeedbackExternal  float64    // fb_ext, typically in [-1,1]
	FeedbackInternal  float64    // fb_int, typically in [-1,1]
	MemoryInfluence   Vector24   // mem_i per emotion, from the memory manager
	Wisdom            float64    // W
	MatchConfidence   float64    // match.confidence in [0,1]; used for optional preprocessing
	ApplyConfidenceWeighting bool
}

// Updater applies the parametric update law of spec §4.4. It holds no
// state of its own; every call is a pure function of its input.
type Updater struct{}

// NewUpdater constructs a stateless Updater.
func NewUpdater() *Updater { return &Updater{} }

// Next computes E(t+Δt) per emotion:
//   E_i(t+Δt) = clip(E_i(t) + α·fb_ext + β·fb_int - γ·Δt + δ·mem_i + θ·W, 0, 1)
// It returns only the next vector; the tanh-smoothed global summary is
// computed separately by NextGlobal.
func (u *Updater) Next(in UpdateInput) Vector24 {
	source := in.Current
	if in.ApplyConfidenceWeighting {
		factor := 0.5 + 0.5*Clamp01(in.MatchConfidence)
		for i := range source {
			source[i] *= factor
		}
	}

	var next Vector24
	c := in.Coeffs
	for i := 0; i < Dimensions; i++ {
		delta := c.AlphaFeedbackExt*in.FeedbackExternal +
			c.BetaFeedbackInt*in.FeedbackInternal -
			c.GammaDecay*in.DeltaSeconds +
			c.DeltaMemory*in.MemoryInfluence[i] +
			c.ThetaWisdom*in.Wisdom
		next[i] = Clamp01(source[i] + delta)
	}
	return next
}

// VariancePerEmotion returns the per-emotion variance of E against a set of
// memory-signature vectors S_j: (1/m) Σ (E_i − S_{i,j})^2, one value per
// emotion index.
func VariancePerEmotion(e Vector24, memorySet []Vector24) [Dimensions]float64 {
	var out [Dimensions]float64
	if len(memorySet) == 0 {
		return out
	}
	m := float64(len(memorySet))
	for i := 0; i < Dimensions; i++ {
		sum := 0.0
		for _, s := range memorySet {
			d := e[i] - s[i]
			sum += d * d
		}
		out[i] = sum / m
	}
	return out
}

// VarianceGlobalAgainst is the mean over the 24 per-emotion variances.
func VarianceGlobalAgainst(e Vector24, memorySet []Vector24) float64 {
	per := VariancePerEmotion(e, memorySet)
	sum := 0.0
	for _, v := range per {
		sum += v
	}
	return math.Max(0, sum/float64(Dimensions))
}

// NextGlobal updates the smoothed global-intensity summary:
//   E_global' = tanh(E_global_prev + (Σ E_i)/24 · (1 - clip(variance_global, 0, 1)))
func NextGlobal(prevGlobal float64, next Vector24, varianceGlobal float64) float64 {
	sum := 0.0
	for _, x := range next {
		sum += x
	}
	mean := sum / float64(Dimensions)
	return math.Tanh(prevGlobal + mean*(1-Clamp01(varianceGlobal)))
}
