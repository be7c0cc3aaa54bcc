package consciousness

import "affectengine/internal/affect"

// baseAlpha is the per-emotion base weight α_i of the emotion_sum term in
// the Ct equation (spec §4.8). Positive-valence, low-arousal emotions
// (serenity, joy, gratitude) carry a smaller base weight than high-arousal
// negative emotions (fear, horror) that must be able to dominate Ct on
// their own — this is the data-driven table decided by Open Question #2;
// it is never inferred at runtime. Built at init time (rather than as a
// composite literal) since the affect package's Idx* constants are
// resolved-at-init variables, not compile-time constants.
var baseAlpha [affect.Dimensions]float64

func init() {
	set := func(idx int, v float64) { baseAlpha[idx] = v }
	set(affect.IdxSerenity, 0.25)
	set(affect.IdxJoy, 0.35)
	set(affect.IdxExploration, 0.3)
	set(affect.IdxAnxiety, 0.5)
	set(affect.IdxFear, 0.7)
	set(affect.IdxSadness, 0.4)
	set(affect.IdxDisgust, 0.35)
	set(affect.IdxConfusion, 0.3)
	set(affect.IdxSatisfaction, 0.3)
	set(affect.IdxExcitation, 0.4)
	set(affect.IdxAnger, 0.45)
	set(affect.IdxHorreur, 0.8)

	named := map[string]float64{
		"Surprise":  0.35,
		"Shame":     0.35,
		"Guilt":     0.35,
		"Pride":     0.3,
		"Hope":      0.3,
		"Gratitude": 0.25,
		"Relief":    0.3,
		"Boredom":   0.2,
		"Trust":     0.25,
		"Envy":      0.35,
		"Contempt":  0.35,
		"Nostalgia": 0.25,
	}
	for i, name := range affect.EmotionNames {
		if v, ok := named[name]; ok {
			baseAlpha[i] = v
		}
	}
}

// newAlphaModulation returns a runtime-mutable multiplier over baseAlpha,
// per emotion, initialised to 1 (no modulation) and nudged by
// feedback/wisdom mutators (spec §4.8 "modulate alpha").
func newAlphaModulation() [affect.Dimensions]float64 {
	var m [affect.Dimensions]float64
	for i := range m {
		m[i] = 1.0
	}
	return m
}

// Fixed memory-sum weights (spec §4.8). ω_MCT, ω_MLT and ω_ME are pinned
// exactly by the worked example in spec §8 scenario 2
// (0.3·0.8 + 0.25·0.6 + 0.15·0.9 = 0.525); the remaining three split the
// leftover 0.3 evenly since the scenario's "others=0" refers to the input
// activations, not the weights.
const (
	weightMCT = 0.3
	weightMLT = 0.25
	weightMP  = 0.1
	weightME  = 0.15
	weightMS  = 0.1
	weightMA  = 0.1
)

// weightTrauma scales the trauma_sum term; halved when a trauma is active
// but not dominant (spec §4.8 trauma_sum branch).
const weightTrauma = 0.6

// weightFeedback and weightEnv scale the feedback_sum and env_sum terms.
const (
	weightFeedback = 0.2
	weightEnv      = 0.15
)
