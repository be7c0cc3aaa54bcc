package decision

import "math"

// contextFamily groups related context types for the discrete sim_ctx
// table of spec §4.11 phase 2 (same=1.0, near-family=0.6-0.7, other=0.2).
var contextFamily = map[string]string{
	"reunion":  "social",
	"meeting":  "social",
	"personal": "social",
	"project":  "work",
	"task":     "work",
}

func simCtx(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if fa, ok := contextFamily[a]; ok {
		if fb, ok2 := contextFamily[b]; ok2 && fa == fb {
			return 0.65
		}
	}
	return 0.2
}

func simEmo(current [6]float64, ep [6]float64) float64 {
	sumSq := 0.0
	for i := range current {
		d := current[i] - ep[i]
		sumSq += d * d
	}
	dist := math.Sqrt(sumSq) / math.Sqrt(6)
	return 1 - clamp01(dist)
}

func simTemp(ageHours float64) float64 {
	return math.Exp(-0.693 * ageHours / 24)
}

// ScoreEpisodes fills in Similarity on each episode (spec §4.11 phase 2)
// and returns the top 5 by descending similarity.
func ScoreEpisodes(ctxType string, currentEmotion [6]float64, episodes []Episode) []Episode {
	scored := make([]Episode, len(episodes))
	copy(scored, episodes)
	for i := range scored {
		ep := &scored[i]
		ep.Similarity = 0.4*simCtx(ctxType, ep.ContextType) +
			0.4*simEmo(currentEmotion, ep.Emotion) +
			0.2*simTemp(ep.AgeHours)
	}
	for i := 1; i < len(scored); i++ {
		for j := i; j > 0 && scored[j].Similarity > scored[j-1].Similarity; j-- {
			scored[j], scored[j-1] = scored[j-1], scored[j]
		}
	}
	if len(scored) > 5 {
		scored = scored[:5]
	}
	return scored
}

// MatchProcedures returns procedures whose trigger context matches
// ctxType or is the wildcard "*".
func MatchProcedures(ctxType string, procedures []Procedure) []Procedure {
	var out []Procedure
	for _, p := range procedures {
		if p.TriggerContext == ctxType || p.TriggerContext == "*" {
			out = append(out, p)
		}
	}
	return out
}

// MatchConcepts returns concepts with relevance above 0.3.
func MatchConcepts(concepts []Concept) []Concept {
	var out []Concept
	for _, c := range concepts {
		if c.Relevance > 0.3 {
			out = append(out, c)
		}
	}
	return out
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
