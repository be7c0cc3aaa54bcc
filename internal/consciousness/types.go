// Package consciousness implements the consciousness/sentiment engine
// (spec §4.8 C8): a per-tick scalar consciousness level Ct, a smoothed
// sentiment Ft over its history, and a wisdom scalar gated by experience.
package consciousness

import "time"

// MemoryActivation bundles the six memory-subsystem activation scores
// consulted by the per-tick Ct equation.
type MemoryActivation struct {
	MCT float64 // consolidated/core-trauma memory activation
	MLT float64 // long-term episodic memory activation
	MP  float64 // procedural memory activation
	ME  float64 // episodic memory activation
	MS  float64 // semantic memory activation
	MA  float64 // identity/autobiographical memory activation
}

// TraumaKind classifies the nature of an active trauma.
type TraumaKind string

const (
	TraumaPhysical  TraumaKind = "PHYSICAL"
	TraumaEmotional TraumaKind = "EMOTIONAL"
	TraumaSocial    TraumaKind = "SOCIAL"
)

// Trauma is the currently tracked trauma, if any. Dominant marks that it
// is the dominant driver of the current affective state (as opposed to
// merely being active/tracked).
type Trauma struct {
	Kind      TraumaKind
	Intensity float64
	Dominant  bool
}

// FeedbackState is the latest external-feedback triple.
type FeedbackState struct {
	Valence    float64 // [-1, 1]
	Intensity  float64 // [0, 1]
	Credibility float64 // [0, 1]
}

// Score returns valence*intensity*credibility, the quantity both the
// per-tick feedback_sum term and Ft_raw's feedback term are built from.
func (f FeedbackState) Score() float64 { return f.Valence * f.Intensity * f.Credibility }

// EnvironmentState is the latest environment-sensing snapshot.
type EnvironmentState struct {
	Hostility     float64
	Noise         float64
	Familiarity   float64
	SocialDensity float64
}

// Components breaks Ct_raw into its five additive terms plus the wisdom
// factor it was scaled by, for state publication (spec §6).
type Components struct {
	Emotion     float64
	Memory      float64
	Trauma      float64
	Feedback    float64
	Environment float64
	WisdomFactor float64
}

// Snapshot is the consciousness/sentiment publication block of spec §6.
type Snapshot struct {
	Ct                    float64
	Components            Components
	ActivePattern         string
	HasTrauma             bool
	Ft                    float64
	FtRaw                 float64
	AccumulatedConscience float64
	FeedbackInfluence     float64
	HistoryDepth          int
	AffectiveBackground   float64
	Wisdom                float64
	Timestamp             time.Time
}
