// Package goalengine implements the 16-variable weighted goal model of
// spec §4.9 C9: pairwise interactions, resilience, stochasticity, and
// memory-graph pull combine into a single scalar goal activation G(t).
package goalengine

// NumVariables is the fixed width of the goal-variable model.
const NumVariables = 16

// VariableNames names the 16 goal variables in the fixed table order
// given by spec §3: "Values, Motivations, Experiences, Feelings, Clarity,
// Environment, Competences, Needs, Models, Self-knowledge, Beliefs,
// Surpassing, Circumstances, Emotional-memories, Regrets, Traumas".
var VariableNames = [NumVariables]string{
	"Values", "Motivations", "Experiences", "Feelings",
	"Clarity", "Environment", "Competences", "Needs",
	"Models", "SelfKnowledge", "Beliefs", "Surpassing",
	"Circumstances", "EmotionalMemories", "Regrets", "Traumas",
}

func indexOf(name string) int {
	for i, n := range VariableNames {
		if n == name {
			return i
		}
	}
	panic("goalengine: unknown variable name " + name)
}

// Fixed indices referenced by name in the tick equation and the
// success/failure/trauma nudge APIs.
var (
	IdxFeelings          = indexOf("Feelings")
	IdxEmotionalMemories = indexOf("EmotionalMemories")
	IdxRegrets           = indexOf("Regrets")
	IdxTraumas           = indexOf("Traumas")
	IdxSelfKnowledge     = indexOf("SelfKnowledge")
	IdxMotivations       = indexOf("Motivations")
	IdxSurpassing        = indexOf("Surpassing")
	IdxValues            = indexOf("Values")
)

// Variable is one (P, w, L) triple: activation level, weight, and a
// per-variable leverage scalar used in both weighted_sum and the
// dominant-variable argmax.
type Variable struct {
	P float64
	W float64
	L float64
}

// MemoryPull is the word-affect-graph-derived {S+, S-, T_trauma} term of
// spec §4.9 step 4.
type MemoryPull struct {
	Positive float64
	Negative float64
	Trauma   float64
}

// CausalEdge is the minimal shape recompute_memory_pull needs from the
// word-affect graph: a word→affect causal link with its strength, the
// target affect's valence sign, and intensity.
type CausalEdge struct {
	Strength        float64
	AffectValence   float64
	AffectIntensity float64
	FearIndex       float64
	AnxietyIndex    float64
	ShameIndex      float64
}

// Snapshot is the goal-engine publication block of spec §6.
type Snapshot struct {
	G               float64
	DominantVariable string
	Emergency        bool
	EmergencyLabel   string
	Resilience       float64
	MemoryPull       MemoryPull
}
