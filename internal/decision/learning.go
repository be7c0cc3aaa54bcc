package decision

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// learningState holds the episodic (MLT), procedural (MP) and identity
// (MA) memories the post-decision learning step of spec §4.11 mutates.
// It is owned by the decision engine rather than the memory manager since
// it tracks action-outcome history specific to deliberation, not raw
// affective memories.
type learningState struct {
	episodes    map[string]*Episode
	procedures  map[string]*Procedure
	identityLog []string
}

func newLearningState() learningState {
	return learningState{episodes: make(map[string]*Episode), procedures: make(map[string]*Procedure)}
}

// RegisterProcedure installs or overwrites a procedure MP can reinforce
// and potentially promote/demote.
func (e *Engine) RegisterProcedure(p Procedure) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := p
	e.learning.procedures[p.ID] = &cp
}

// Procedures returns a value-copy snapshot of all registered procedures,
// suitable for feeding back into the next call's MemoryContext.
func (e *Engine) Procedures() []Procedure {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Procedure, 0, len(e.learning.procedures))
	for _, p := range e.learning.procedures {
		out = append(out, *p)
	}
	return out
}

// Episodes returns a value-copy snapshot of all learned episodes.
func (e *Engine) Episodes() []Episode {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Episode, 0, len(e.learning.episodes))
	for _, ep := range e.learning.episodes {
		out = append(out, *ep)
	}
	return out
}

// IdentityLog returns the accumulated identity consolidation/questioning
// log entries.
func (e *Engine) IdentityLog() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string{}, e.learning.identityLog...)
}

// RecordOutcome applies Table 3's post-decision learning update: MLT
// episode reinforcement, MP procedure success-rate smoothing with
// reflex promotion/demotion, MA identity log parsing, and creation of an
// enriched episode carrying the lesson drawn from the prediction error.
func (e *Engine) RecordOutcome(outcome Outcome, logger *slog.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()

	predictionError := outcome.Actual - outcome.Expected

	ep, ok := e.learning.episodes[outcome.OptionID]
	if !ok {
		ep = &Episode{ID: outcome.OptionID, ContextType: outcome.ContextType}
		e.learning.episodes[outcome.OptionID] = ep
	}
	runningOutcome := outcome.Actual
	if ok {
		prevOutcome, _ := strconv.ParseFloat(ep.Outcome, 64)
		runningOutcome = prevOutcome + e.cfg.LrMlt*(outcome.Actual-prevOutcome)
	}
	ep.Outcome = strconv.FormatFloat(runningOutcome, 'f', 4, 64)
	if outcome.Success {
		ep.SuccessCount++
	} else {
		ep.FailureCount++
	}
	ep.Lesson = lessonFor(predictionError)

	for _, p := range e.learning.procedures {
		if p.ActionName != outcome.ActionName {
			continue
		}
		target := 0.0
		if outcome.Success {
			target = 1.0
		}
		p.SuccessRate += e.cfg.LrMp * (target - p.SuccessRate)
		p.ActivationCount++
		if p.ActivationCount >= e.cfg.ThetaAutomate && p.SuccessRate > e.cfg.SuccessPromote {
			p.IsReflex = true
		} else if p.SuccessRate < e.cfg.FailureDemote {
			p.IsReflex = false
		}
	}

	if outcome.IdentityDelta != "" {
		value, delta, ok := parseIdentityDelta(outcome.IdentityDelta)
		if ok {
			entry := fmt.Sprintf("consolidation: %s %+0.3f", value, delta)
			if delta < 0 {
				entry = fmt.Sprintf("questioning: %s %+0.3f", value, delta)
			}
			e.learning.identityLog = append(e.learning.identityLog, entry)
			if logger != nil {
				logger.Info("identity update", "value", value, "delta", delta)
			}
		}
	}
}

// Episode.Lesson is appended alongside Outcome when present.
func lessonFor(predictionError float64) string {
	switch {
	case predictionError > 0.2:
		return "outcome exceeded expectation; reinforce this approach"
	case predictionError < -0.2:
		return "outcome fell short of expectation; reconsider this approach"
	default:
		return "outcome matched expectation"
	}
}

// parseIdentityDelta parses a "value:±delta" impact string.
func parseIdentityDelta(s string) (value string, delta float64, ok bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return "", 0, false
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return "", 0, false
	}
	return strings.TrimSpace(parts[0]), d, true
}
