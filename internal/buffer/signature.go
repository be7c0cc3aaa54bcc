package buffer

import "affectengine/internal/affect"

// Signature is the statistical fingerprint of a buffer window (spec §4.1).
// It is only ever produced by Ring.ExtractSignature, which returns ok=false
// when the window holds fewer than MinSamplesForSignature states.
type Signature struct {
	Mean             affect.Vector24
	Std              affect.Vector24
	Trend            affect.Vector24 // (mean of last third) - (mean of first third), per emotion
	Accel            affect.Vector24 // change in trend between third-windows
	OscillationCount [affect.Dimensions]int
	PeakPosition     [affect.Dimensions]float64 // argmax normalised to [0,1]

	Intensity         float64
	Valence           float64
	Arousal           float64
	Stability         float64
	DominantFrequency float64
}

// SimilarityWith computes cosine similarity on the 24-D means plus small
// bonuses (≤0.1 each) for proximity in global valence and global arousal,
// clipped to [0,1] (spec §4.1 similarity_with).
func (s Signature) SimilarityWith(other Signature) float64 {
	base := s.Mean.Cosine(other.Mean)
	valenceBonus := proximityBonus(s.Valence, other.Valence, 0.1)
	arousalBonus := proximityBonus(s.Arousal, other.Arousal, 0.1)
	return affect.Clamp01(base + valenceBonus + arousalBonus)
}

func proximityBonus(a, b, max float64) float64 {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	closeness := 1 - diff/2 // a,b in [-1,1] => diff in [0,2]
	if closeness < 0 {
		closeness = 0
	}
	return max * closeness
}
