// Package amygdala implements the emergency-detection component (spec
// §4.10 C10): it watches current affect and active memories for critical
// emotion/trauma combinations and emits an EmergencyResponse that the goal
// engine and decision engine may consult to short-circuit their normal
// output.
package amygdala

import (
	"sync"
	"time"

	"affectengine/internal/affect"
)

// Action is the emergency action mapped from the dominant critical
// emotion.
type Action string

const (
	ActionFlight       Action = "FUITE"
	ActionBlock        Action = "BLOCAGE"
	ActionAlert        Action = "ALERTE"
	ActionSurveillance Action = "SURVEILLANCE"
)

// Priority buckets the emergency's magnitude.
type Priority string

const (
	PriorityCritical Priority = "CRITIQUE"
	PriorityHigh     Priority = "ELEVEE"
	PriorityMedium   Priority = "MOYENNE"
	PriorityLow      Priority = "BASSE"
)

// EmergencyResponse is the component's single output shape (spec §4.10).
type EmergencyResponse struct {
	Triggered bool
	Action    Action
	Priority  Priority
	Phase     string
	Emotion   string
	Value     float64
	Timestamp time.Time
}

// ActiveTrauma is the minimal shape the amygdala needs from the memory
// manager's trauma records: an identity and its current activation.
type ActiveTrauma struct {
	ID         string
	Activation float64
}

// criticalIndices are the three critical emotions watched for emergency
// detection (spec §4.10: "fear, horror, anxiety").
var criticalIndices = []int{affect.IdxFear, affect.IdxHorreur, affect.IdxAnxiety}

// Config holds the amygdala's override switch. The phase-dependent
// threshold is not part of Config; callers pass it to Evaluate.
type Config struct {
	OverrideEnabled bool
}

// Amygdala is the mutex-guarded C10 component.
type Amygdala struct {
	cfg Config

	mu   sync.Mutex
	last EmergencyResponse
}

// New builds an Amygdala with the given config.
func New(cfg Config) *Amygdala {
	return &Amygdala{cfg: cfg}
}

// Evaluate runs the three-condition emergency test of spec §4.10 against
// the current affect, the phase threshold in force, and the memory
// manager's currently active traumas, stores the result as Last, and
// returns it.
func (a *Amygdala) Evaluate(e affect.Vector24, phaseThreshold float64, traumas []ActiveTrauma, now time.Time) EmergencyResponse {
	a.mu.Lock()
	defer a.mu.Unlock()

	strongestIdx := -1
	strongestVal := 0.0
	for _, idx := range criticalIndices {
		if e[idx] > strongestVal {
			strongestVal = e[idx]
			strongestIdx = idx
		}
	}

	maxTraumaActivation := 0.0
	for _, tr := range traumas {
		if tr.Activation > maxTraumaActivation {
			maxTraumaActivation = tr.Activation
		}
	}

	critExceedsThreshold := strongestIdx >= 0 && strongestVal > phaseThreshold
	traumaExceedsThresholdMinus02 := maxTraumaActivation > phaseThreshold-0.2
	critPlus02AndTraumaAbove06 := strongestIdx >= 0 && strongestVal > phaseThreshold+0.2 && maxTraumaActivation > 0.6

	triggered := critExceedsThreshold || traumaExceedsThresholdMinus02 || critPlus02AndTraumaAbove06

	resp := EmergencyResponse{Triggered: triggered, Timestamp: now}
	if !triggered {
		a.last = resp
		return resp
	}

	if strongestIdx < 0 {
		// The scan above already picks the largest non-zero critical
		// emotion whether or not it crossed the threshold, so strongestIdx
		// is still -1 here only when all three critical emotions are zero
		// (a trauma-only trigger). This rescan then finds nothing either:
		// the emotion label stays empty and the action is SURVEILLANCE.
		for _, idx := range criticalIndices {
			if e[idx] > strongestVal {
				strongestVal = e[idx]
				strongestIdx = idx
			}
		}
	}

	emotionName := ""
	if strongestIdx >= 0 {
		emotionName = affect.EmotionNames[strongestIdx]
	}

	resp.Emotion = emotionName
	resp.Value = strongestVal
	resp.Action = actionFor(emotionName)
	resp.Priority = priorityFor(strongestVal)

	a.last = resp
	return resp
}

// SetPhase records the current decision phase label on the most recent
// response, the one Last returns (kept separate from Evaluate's threshold
// parameter since the phase label is descriptive, not numeric). The next
// Evaluate replaces that response with one whose Phase is empty.
func (a *Amygdala) SetPhase(phase string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last.Phase = phase
}

// Last returns a copy of the most recently computed response.
func (a *Amygdala) Last() EmergencyResponse {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// OverrideEnabled reports whether a triggered response should
// short-circuit consumers' normal output.
func (a *Amygdala) OverrideEnabled() bool {
	return a.cfg.OverrideEnabled
}

func actionFor(emotion string) Action {
	switch emotion {
	case "Fear":
		return ActionFlight
	case "Horreur":
		return ActionBlock
	case "Anxiety":
		return ActionAlert
	default:
		return ActionSurveillance
	}
}

func priorityFor(magnitude float64) Priority {
	switch {
	case magnitude > 0.85:
		return PriorityCritical
	case magnitude > 0.70:
		return PriorityHigh
	case magnitude > 0.50:
		return PriorityMedium
	default:
		return PriorityLow
	}
}
