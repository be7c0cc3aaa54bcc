// Package decision implements the four-phase deliberation engine (spec
// §4.11 C11): perception, memory activation, two-pass option generation
// with simulation, and veto/score/conflict/select.
package decision

import "time"

// Alert is an auto-derived situational flag (e.g. "danger", "escalation").
type Alert struct {
	Type     string
	Severity float64
}

// SituationFrame is built fresh by Phase 1 on every call (spec §3).
type SituationFrame struct {
	Affect      [24]float64
	Ct          float64
	Ft          float64
	ContextType string
	Urgency     float64
	Alerts      []Alert
	TauDelibMs  float64
}

// Episode is a stored past experience scored for relevance in Phase 2.
type Episode struct {
	ID           string
	ContextType  string
	Emotion      [6]float64 // Joy, Fear, Anger, Sadness, Surprise, Disgust
	AgeHours     float64
	Outcome      string
	Lesson       string
	SuccessCount int
	FailureCount int
	Similarity   float64 // filled in by ScoreEpisodes
}

// Procedure is a learned action template, optionally promoted to reflex.
type Procedure struct {
	ID              string
	TriggerContext  string // matches a context type, or "*" for any
	ActionName      string
	IsReflex        bool
	SuccessRate     float64
	ActivationCount int
}

// Concept is a semantic-memory fact with a relevance score.
type Concept struct {
	ID        string
	Relevance float64
}

// MemoryContext is Phase 2's output (spec §3).
type MemoryContext struct {
	Episodes   []Episode
	Concepts   []Concept
	Procedures []Procedure
	Patterns   []string
}

// MetaKind classifies a meta-action option.
type MetaKind string

const (
	MetaNone     MetaKind = "None"
	MetaObserve  MetaKind = "Observe"
	MetaQuestion MetaKind = "Question"
	MetaDefer    MetaKind = "Defer"
)

// Projection is an option's simulated outcome (spec §4.11 phase 3 step 4).
type Projection struct {
	OutcomeExpected    string
	EmotionalForecast  float64
	GoalAlignment      float64
	Uncertainty        float64
	Risk               float64
	SimulationDepth    int
}

// ActionOption is one candidate action under consideration (spec §3).
type ActionOption struct {
	ID         string
	Name       string
	Category   string
	Projection Projection
	MetaKind   MetaKind
	Vetoed     bool
	VetoReason string
	Score      float64
}

// MetaState summarizes the decision's confidence and ambiguity (spec §3).
type MetaState struct {
	Confidence        float64
	UncertaintyGlobal float64
	ConflictLevel     float64
	KnowUnknown       bool
}

// Conflict names a tension between two goal-variable-driven pulls.
type Conflict struct {
	Description string
	Intensity   float64
	Resolution  string
}

// DecisionResult is the engine's single output shape (spec §3).
type DecisionResult struct {
	ChosenOption ActionOption
	Kappa        float64
	ReflexMode   bool
	Conflicts    []Conflict
	MetaState    MetaState
	AllOptions   []ActionOption
	TauElapsedMs float64
	Timestamp    time.Time
}

// Outcome is reported after an action executes, for post-decision
// learning (spec §4.11 "record_outcome").
type Outcome struct {
	OptionID      string
	ActionName    string
	ContextType   string
	Expected      float64
	Actual        float64
	Success       bool
	IdentityDelta string // "value:±delta" impact string
}
