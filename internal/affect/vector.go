// Package affect defines the 24-dimensional affect vector (spec §3 C1),
// its derived summaries, and the parametric update law (spec §4.4 C5).
package affect

import (
	"math"
	"time"
)

// Dimensions is the fixed width of an affect vector.
const Dimensions = 24

// Vector24 is an ordered, fixed-length affect vector. Positions carry fixed
// emotion semantics given by EmotionNames; it is backed by a contiguous
// array, never a map, per the design notes on integer-indexed vectors.
type Vector24 [Dimensions]float64

// EmotionNames gives the name carried by each index of a Vector24. The
// first eight follow the base-pattern families from spec §3; the rest
// round out a richer affective palette used by the goal/consciousness
// mapping tables.
var EmotionNames = [Dimensions]string{
	"Serenity", "Joy", "Exploration", "Anxiety", "Fear", "Sadness", "Disgust", "Confusion",
	"Satisfaction", "Excitation", "Surprise", "Anger", "Shame", "Guilt", "Pride", "Hope",
	"Gratitude", "Relief", "Boredom", "Trust", "Envy", "Contempt", "Nostalgia", "Horreur",
}

// indexOf resolves a name to its fixed index; panics on an unknown name
// since EmotionNames is a closed, compile-time table.
func indexOf(name string) int {
	for i, n := range EmotionNames {
		if n == name {
			return i
		}
	}
	panic("affect: unknown emotion name " + name)
}

// Fixed emotion indices referenced by name elsewhere in the engine (matcher
// base patterns, amygdala critical-emotion watch, goal-engine mapping).
var (
	IdxSerenity    = indexOf("Serenity")
	IdxJoy         = indexOf("Joy")
	IdxExploration = indexOf("Exploration")
	IdxAnxiety     = indexOf("Anxiety")
	IdxFear        = indexOf("Fear")
	IdxSadness     = indexOf("Sadness")
	IdxDisgust     = indexOf("Disgust")
	IdxConfusion   = indexOf("Confusion")
	IdxSatisfaction = indexOf("Satisfaction")
	IdxExcitation  = indexOf("Excitation")
	IdxAnger       = indexOf("Anger")
	IdxShame       = indexOf("Shame")
	IdxHorreur     = indexOf("Horreur")
)

// PositiveValenceIndices and NegativeValenceIndices partition the 24
// emotions into positive/negative valence families (spec §3). The
// remainder (Surprise, Confusion) is valence-neutral and excluded from
// both partitions.
var PositiveValenceIndices = []int{
	IdxSerenity, IdxJoy, IdxExploration,
	indexOf("Satisfaction"), indexOf("Excitation"), indexOf("Pride"), indexOf("Hope"),
	indexOf("Gratitude"), indexOf("Relief"), indexOf("Trust"), indexOf("Nostalgia"),
}

var NegativeValenceIndices = []int{
	IdxAnxiety, IdxFear, IdxSadness, IdxDisgust,
	indexOf("Anger"), indexOf("Shame"), indexOf("Guilt"), indexOf("Boredom"),
	indexOf("Envy"), indexOf("Contempt"), IdxHorreur,
}

// Global returns E_global = mean(E).
func (v Vector24) Global() float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(Dimensions)
}

// VarianceGlobal returns the variance of v against its own mean, clipped
// to be non-negative (guards floating-point underflow to small negatives).
func (v Vector24) VarianceGlobal() float64 {
	mean := v.Global()
	sum := 0.0
	for _, x := range v {
		d := x - mean
		sum += d * d
	}
	variance := sum / float64(Dimensions)
	return math.Max(0, variance)
}

// Valence returns mean(positive) - mean(negative) over the fixed partitions,
// clipped to [-1, 1].
func (v Vector24) Valence() float64 {
	pos := meanAt(v, PositiveValenceIndices)
	neg := meanAt(v, NegativeValenceIndices)
	return Clamp(pos-neg, -1, 1)
}

// Arousal approximates arousal as the mean of the high-activation emotions
// (fear, anger, excitation, surprise, anxiety, horreur).
func (v Vector24) Arousal() float64 {
	idx := []int{IdxFear, IdxAnger, IdxExcitation, indexOf("Surprise"), IdxAnxiety, IdxHorreur}
	return meanAt(v, idx)
}

// Dominant returns the index and value of the strongest emotion.
func (v Vector24) Dominant() (int, float64) {
	best, bestVal := 0, v[0]
	for i := 1; i < Dimensions; i++ {
		if v[i] > bestVal {
			best, bestVal = i, v[i]
		}
	}
	return best, bestVal
}

// DominantName is a convenience wrapper around Dominant.
func (v Vector24) DominantName() string {
	i, _ := v.Dominant()
	return EmotionNames[i]
}

// Intensity is the L2 norm of v normalised by sqrt(24), giving a [0,1]-ish
// magnitude summary used by pattern matching and memory scoring.
func (v Vector24) Intensity() float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return Clamp(math.Sqrt(sum/float64(Dimensions)), 0, 1)
}

// Cosine returns the cosine similarity between two vectors, 0 when either
// is the zero vector.
func (v Vector24) Cosine(other Vector24) float64 {
	var dot, na, nb float64
	for i := 0; i < Dimensions; i++ {
		dot += v[i] * other[i]
		na += v[i] * v[i]
		nb += other[i] * other[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return Clamp(dot/(math.Sqrt(na)*math.Sqrt(nb)), -1, 1)
}

func meanAt(v Vector24, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += v[i]
	}
	return sum / float64(len(idx))
}

// Clamp restricts x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Clamp01 is Clamp(x, 0, 1).
func Clamp01(x float64) float64 { return Clamp(x, 0, 1) }

// TimestampedState is an affect vector pinned to a monotonic timestamp,
// with an optional utterance triple attached when it coincides with one.
type TimestampedState struct {
	E         Vector24
	Timestamp time.Time
	Utterance *Utterance
}

// Utterance is the (sentiment, arousal, text) triple attached to a state
// that coincides with a spoken/typed utterance.
type Utterance struct {
	Sentiment float64
	Arousal   float64
	Text      string
}

// Global is a shortcut to s.E.Global().
func (s TimestampedState) Global() float64 { return s.E.Global() }
