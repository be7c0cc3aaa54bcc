package pattern

import (
	"time"

	"affectengine/internal/affect"
	"affectengine/internal/buffer"
)

// baseRecord is the declarative shape of a base pattern (spec §9: base
// pattern initialisation must be a static, pinnable table).
type baseRecord struct {
	id, name, description string
	dominant               int
	dominantValue          float64
	coeffs                 affect.Coefficients
	emergency              float64
	memoryTrigger          float64
}

// baseTable is the static table of the eight base patterns installed at
// init (spec §3). Never mutated; never deleted.
var baseTable = []baseRecord{
	{
		id: "base_serenity", name: "SERENITY", description: "calm, low-arousal baseline affective mode",
		dominant: affect.IdxSerenity, dominantValue: 0.6,
		coeffs:        affect.Coefficients{AlphaFeedbackExt: 0.10, BetaFeedbackInt: 0.05, GammaDecay: 0.02, DeltaMemory: 0.05, ThetaWisdom: 0.05},
		emergency:     0.9, memoryTrigger: 0.6,
	},
	{
		id: "base_joy", name: "JOY", description: "high-valence, high-engagement affective mode",
		dominant: affect.IdxJoy, dominantValue: 0.7,
		coeffs:        affect.Coefficients{AlphaFeedbackExt: 0.20, BetaFeedbackInt: 0.10, GammaDecay: 0.04, DeltaMemory: 0.08, ThetaWisdom: 0.06},
		emergency:     0.9, memoryTrigger: 0.5,
	},
	{
		id: "base_exploration", name: "EXPLORATION", description: "curious, moderate-arousal approach mode",
		dominant: affect.IdxExploration, dominantValue: 0.6,
		coeffs:        affect.Coefficients{AlphaFeedbackExt: 0.18, BetaFeedbackInt: 0.12, GammaDecay: 0.05, DeltaMemory: 0.10, ThetaWisdom: 0.08},
		emergency:     0.85, memoryTrigger: 0.5,
	},
	{
		id: "base_anxiety", name: "ANXIETY", description: "elevated-arousal, negative-valence vigilance mode",
		dominant: affect.IdxAnxiety, dominantValue: 0.65,
		coeffs:        affect.Coefficients{AlphaFeedbackExt: 0.22, BetaFeedbackInt: 0.15, GammaDecay: 0.03, DeltaMemory: 0.15, ThetaWisdom: 0.04},
		emergency:     0.7, memoryTrigger: 0.35,
	},
	{
		id: "base_fear", name: "FEAR", description: "high-arousal threat-response mode",
		dominant: affect.IdxFear, dominantValue: 0.75,
		coeffs:        affect.Coefficients{AlphaFeedbackExt: 0.25, BetaFeedbackInt: 0.18, GammaDecay: 0.02, DeltaMemory: 0.20, ThetaWisdom: 0.03},
		emergency:     0.55, memoryTrigger: 0.3,
	},
	{
		id: "base_sadness", name: "SADNESS", description: "low-arousal, negative-valence withdrawal mode",
		dominant: affect.IdxSadness, dominantValue: 0.6,
		coeffs:        affect.Coefficients{AlphaFeedbackExt: 0.15, BetaFeedbackInt: 0.10, GammaDecay: 0.03, DeltaMemory: 0.12, ThetaWisdom: 0.05},
		emergency:     0.75, memoryTrigger: 0.4,
	},
	{
		id: "base_disgust", name: "DISGUST", description: "aversive rejection mode",
		dominant: affect.IdxDisgust, dominantValue: 0.6,
		coeffs:        affect.Coefficients{AlphaFeedbackExt: 0.18, BetaFeedbackInt: 0.12, GammaDecay: 0.04, DeltaMemory: 0.10, ThetaWisdom: 0.05},
		emergency:     0.8, memoryTrigger: 0.45,
	},
	{
		id: "base_confusion", name: "CONFUSION", description: "low-confidence, ambiguous-signal mode",
		dominant: affect.IdxConfusion, dominantValue: 0.55,
		coeffs:        affect.Coefficients{AlphaFeedbackExt: 0.14, BetaFeedbackInt: 0.10, GammaDecay: 0.04, DeltaMemory: 0.08, ThetaWisdom: 0.07},
		emergency:     0.85, memoryTrigger: 0.5,
	},
}

// IDSerenity is exported for callers (e.g. the matcher) that need the
// SERENITY base pattern's id as a fallback identity.
const IDSerenity = "base_serenity"

func newBasePatterns(now time.Time) []Pattern {
	out := make([]Pattern, 0, len(baseTable))
	for _, rec := range baseTable {
		var sig buffer.Signature
		sig.Mean[rec.dominant] = rec.dominantValue
		sig.Intensity = rec.dominantValue
		sig.Valence = signedValence(rec.dominant, rec.dominantValue)
		sig.Stability = 0.8

		out = append(out, Pattern{
			ID:          rec.id,
			Name:        rec.name,
			Description: rec.description,
			Signature:   sig,
			Coeffs:      rec.coeffs,
			Thresholds:  Thresholds{Emergency: rec.emergency, MemoryTrigger: rec.memoryTrigger},
			Meta: Metadata{
				Confidence: 0.8,
				CreatedAt:  now,
			},
			Transitions: map[string]float64{},
			IsBase:      true,
			IsActive:    rec.id == IDSerenity,
			IsLocked:    false,
		})
	}
	return out
}

func signedValence(idx int, value float64) float64 {
	for _, i := range affect.PositiveValenceIndices {
		if i == idx {
			return affect.Clamp01(value)
		}
	}
	for _, i := range affect.NegativeValenceIndices {
		if i == idx {
			return -affect.Clamp01(value)
		}
	}
	return 0
}
