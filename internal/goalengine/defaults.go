package goalengine

import "gonum.org/v1/gonum/mat"

// defaultVariables is the fixed startup table of spec §4.9 ("16 (P,w,L)
// triples, defaults from a fixed table summing to 1 in w"), over the
// variable roster fixed by spec §3. P and L start neutral; w is
// hand-tuned so needs/environment/circumstances carry slightly more
// weight than aspirational variables, without any one dominating.
func defaultVariables() [NumVariables]Variable {
	w := [NumVariables]float64{
		0.06, 0.07, 0.06, 0.06,
		0.06, 0.08, 0.06, 0.08,
		0.05, 0.06, 0.05, 0.07,
		0.07, 0.05, 0.05, 0.07,
	}
	var out [NumVariables]Variable
	for i := range out {
		out[i] = Variable{P: 0.5, W: w[i], L: 1.0}
	}
	return out
}

// scalePos and scaleNeg scale the pairwise interaction sums (spec §4.9
// step 6).
const (
	scalePos = 0.5
	scaleNeg = 0.5
)

// buildInteractionMatrices returns the symmetric positive and negative
// pairwise-interaction matrices C+ and C- (spec §3: "two 16x16 symmetric
// non-negative matrices...most entries zero...e.g. Traumas<->Surpassing
// strongly negative"). gonum's SymDense is used since both matrices are
// read by their upper triangle only in the Σ_{i<j} sum, matching the goal
// engine's only matrix-algebra need in this codebase.
func buildInteractionMatrices() (pos, neg *mat.SymDense) {
	pos = mat.NewSymDense(NumVariables, nil)
	neg = mat.NewSymDense(NumVariables, nil)

	setPos := func(a, b string, v float64) { pos.SetSym(indexOf(a), indexOf(b), v) }
	setNeg := func(a, b string, v float64) { neg.SetSym(indexOf(a), indexOf(b), v) }

	setPos("Needs", "Environment", 0.4)
	setPos("Values", "Beliefs", 0.5)
	setPos("SelfKnowledge", "Clarity", 0.4)
	setPos("Experiences", "Feelings", 0.4)
	setPos("Motivations", "Surpassing", 0.5)
	setPos("Models", "Clarity", 0.3)
	setPos("Competences", "Surpassing", 0.4)
	setPos("Circumstances", "Environment", 0.3)

	setNeg("Traumas", "Surpassing", 0.6)
	setNeg("Traumas", "Environment", 0.4)
	setNeg("Regrets", "Motivations", 0.4)
	setNeg("Regrets", "SelfKnowledge", 0.2)
	setNeg("Needs", "Clarity", 0.2)
	setNeg("Beliefs", "Models", 0.2)

	return pos, neg
}
