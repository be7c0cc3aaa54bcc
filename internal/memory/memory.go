// Package memory implements the memory manager (spec §4.6 C7): an
// in-process vector of weighted, decaying affective memories, pattern-aware
// relevance scoring, trauma detection, and an optional asynchronous
// external-store adapter.
package memory

import (
	"math"
	"time"

	"affectengine/internal/affect"
)

// Memory is a single affective memory record.
type Memory struct {
	ID                string
	E                 affect.Vector24
	DominantName      string
	Valence           float64
	Intensity         float64
	Weight            float64
	Activation        float64
	IsTrauma          bool
	PatternAtCreation string
	CreatedAt         time.Time
	LastActivated     time.Time
	ActivationCount   int
	Name              string
	Context           string
}

// ConsolidationVerdict is the should_consolidate outcome.
type ConsolidationVerdict string

const (
	VerdictTrauma             ConsolidationVerdict = "TRAUMA"
	VerdictConsolidateStrong  ConsolidationVerdict = "CONSOLIDATE_STRONG"
	VerdictConsolidateNormal  ConsolidationVerdict = "CONSOLIDATE_NORMAL"
	VerdictForget             ConsolidationVerdict = "FORGET"
)

// fearFamily and anxietyFamily are the dominant-emotion sets consulted by
// the FEAR and ANXIETY pattern-scoring rules (spec §4.6); threat-adjacent
// emotions overlap by design (Fear belongs to both readings).
var fearFamily = []int{affect.IdxFear, affect.IdxHorreur, affect.IdxAnxiety}
var anxietyFamily = []int{affect.IdxAnxiety, affect.IdxFear, affect.IdxConfusion}
var joyFamily = []int{affect.IdxJoy, affect.IdxSatisfaction, affect.IdxExcitation}

func dominantIn(name string, family []int) bool {
	idx := -1
	for i, n := range affect.EmotionNames {
		if n == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	for _, f := range family {
		if f == idx {
			return true
		}
	}
	return false
}

// scoreRelevance scores m's relevance against the current affect under the
// active pattern's name, per the four scoring rules of spec §4.6.
func scoreRelevance(m Memory, patternName string, current affect.Vector24) float64 {
	switch patternName {
	case "FEAR":
		if m.IsTrauma {
			return 1 + m.Intensity
		}
		if dominantIn(m.DominantName, fearFamily) {
			return 0.8 * m.Intensity
		}
		return 0
	case "JOY":
		if m.Valence > 0 && dominantIn(m.DominantName, joyFamily) {
			return m.Valence * m.Intensity
		}
		return 0
	case "ANXIETY":
		if dominantIn(m.DominantName, anxietyFamily) {
			return 0.1*float64(m.ActivationCount) + m.Intensity
		}
		return 0
	default:
		return m.Weight * m.E.Cosine(current)
	}
}

// recordWeight computes the creation weight for a new memory under the
// active pattern's name (spec §4.6 record_memory).
func recordWeight(patternName string, valence, intensity float64) float64 {
	switch patternName {
	case "FEAR":
		return math.Min(1, 0.7+0.3*intensity)
	case "JOY":
		if valence > 0 {
			return math.Min(1, 0.6+0.4*valence)
		}
		return 0.3
	case "ANXIETY":
		if valence < 0 {
			return math.Min(1, 0.5+0.5*(1-valence))
		}
		return 0.2
	default:
		return 0.5
	}
}

// shouldConsolidate classifies m under the active pattern's name per the
// consolidation table of spec §4.6.
func shouldConsolidate(m Memory, patternName string) ConsolidationVerdict {
	switch patternName {
	case "FEAR":
		if m.Intensity > 0.7 && m.Valence < 0.2 {
			return VerdictTrauma
		}
	case "JOY":
		if m.Valence > 0.6 && m.Intensity > 0.6 {
			return VerdictConsolidateStrong
		}
	case "ANXIETY":
		if m.Valence < 0 {
			return VerdictConsolidateStrong
		}
		return VerdictForget
	}
	if m.Intensity > 0.5 {
		return VerdictConsolidateNormal
	}
	return VerdictForget
}
