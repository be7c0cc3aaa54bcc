// Package matcher implements the signature-to-pattern matcher of spec §4.3
// (C4): it maps the short-term buffer's signature onto a pattern-store
// entry, applying hysteresis so the active pattern does not flap frame to
// frame, and records transitions back into the store.
package matcher

import (
	"errors"
	"sync"
	"time"

	"affectengine/internal/affect"
	"affectengine/internal/apperr"
	"affectengine/internal/buffer"
	"affectengine/internal/pattern"
)

// Decision is the band a match() call falls into before hysteresis gating.
type Decision string

const (
	DecisionUseExisting    Decision = "USE_EXISTING"
	DecisionModifyExisting Decision = "MODIFY_EXISTING"
	DecisionCreateNew      Decision = "CREATE_NEW"
	DecisionMergePatterns  Decision = "MERGE_PATTERNS"
	DecisionUncertain      Decision = "UNCERTAIN"
)

// Config bundles the matcher's threshold bands and hysteresis gates.
type Config struct {
	MaxMatchesReturned      int
	HighMatchThreshold      float64
	MediumMatchThreshold    float64
	LowMatchThreshold       float64
	MinStabilityForCreation float64
	HysteresisMargin        float64
	MinFramesBeforeSwitch   int
	MinPhaseDuration        time.Duration
	HistoryCapacity         int
}

// DefaultConfig returns the matcher's default tuning.
func DefaultConfig() Config {
	return Config{
		MaxMatchesReturned:      5,
		HighMatchThreshold:      0.8,
		MediumMatchThreshold:    0.6,
		LowMatchThreshold:       0.4,
		MinStabilityForCreation: 0.5,
		HysteresisMargin:        0.05,
		MinFramesBeforeSwitch:   3,
		MinPhaseDuration:        2 * time.Second,
		HistoryCapacity:         200,
	}
}

// Alternative is one of the lower-ranked candidates returned alongside the
// chosen match.
type Alternative struct {
	PatternID  string
	Name       string
	Similarity float64
}

// Result is the matcher's public output (spec §4.3).
type Result struct {
	PatternID              string
	PatternName            string
	Similarity             float64
	Confidence             float64
	Coefficients           affect.Coefficients
	EmergencyThreshold     float64
	MemoryTriggerThreshold float64
	Alternatives           []Alternative
	IsNewPattern           bool
	IsTransition           bool
	PreviousPatternID      string
	TransitionProbability  float64
	Decision               Decision
}

// HistoryEntry is one recorded pattern activation.
type HistoryEntry struct {
	PatternID string
	Timestamp time.Time
}

// Matcher is the mutex-guarded C4 component. It holds a soft reference
// (id) into the pattern store, never the store's internals.
type Matcher struct {
	cfg   Config
	buf   *buffer.Ring
	store *pattern.Store

	mu              sync.Mutex
	currentID       string
	framesInCurrent int
	phaseStartedAt  time.Time
	lastSimilarity  float64
	history         []HistoryEntry
}

// New builds a matcher bound to buf and store, seeded on the SERENITY base
// pattern.
func New(cfg Config, buf *buffer.Ring, store *pattern.Store) *Matcher {
	return &Matcher{
		cfg:            cfg,
		buf:            buf,
		store:          store,
		currentID:      pattern.IDSerenity,
		phaseStartedAt: time.Now(),
	}
}

// CurrentPatternID returns the active pattern's id.
func (m *Matcher) CurrentPatternID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentID
}

// History returns a copy of the bounded (pattern_id, timestamp) transition
// history, oldest first.
func (m *Matcher) History() []HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]HistoryEntry, len(m.history))
	copy(out, m.history)
	return out
}

// Match runs one matcher cycle (spec §4.3 match()).
func (m *Matcher) Match(now time.Time) Result {
	sig, ok := m.buf.ExtractSignature()

	m.mu.Lock()
	defer m.mu.Unlock()

	if !ok {
		if m.currentID != "" {
			return m.resultForLocked(m.currentID, m.lastSimilarity, DecisionUncertain)
		}
		m.currentID = pattern.IDSerenity
		return m.resultForLocked(m.currentID, 0, DecisionUncertain)
	}

	matches := m.store.FindMatches(sig, m.cfg.MaxMatchesReturned)
	if len(matches) == 0 {
		m.framesInCurrent++
		return m.resultForLocked(m.currentID, m.lastSimilarity, DecisionUncertain)
	}

	best := matches[0]
	m.lastSimilarity = best.Similarity
	currentSim := m.currentSimilarityLocked(sig, matches)

	decision := m.classify(matches, sig)

	switched := false
	previous := m.currentID
	if decision == DecisionUseExisting || decision == DecisionModifyExisting {
		if best.PatternID != m.currentID &&
			best.Similarity > currentSim+m.cfg.HysteresisMargin &&
			m.framesInCurrent >= m.cfg.MinFramesBeforeSwitch &&
			now.Sub(m.phaseStartedAt) >= m.cfg.MinPhaseDuration {
			switched = true
		}
	}

	isNew := false
	switch decision {
	case DecisionCreateNew:
		created := m.store.Create(
			"pattern_"+sig.Mean.DominantName(),
			"auto-created by matcher",
			sig,
			m.defaultCoeffsLocked(),
			pattern.Thresholds{Emergency: 0.8, MemoryTrigger: 0.5},
		)
		best = pattern.Match{PatternID: created.ID, Name: created.Name, Similarity: 1, Confidence: created.Meta.Confidence}
		switched = true
		isNew = true
	case DecisionModifyExisting:
		var locked *apperr.PatternLockedError
		if _, err := m.store.Update(m.currentID, sig, 0); err == nil || errors.As(err, &locked) {
			best.PatternID = m.currentID
		}
	}

	if switched {
		m.framesInCurrent = 0
		m.phaseStartedAt = now
		m.currentID = best.PatternID
		m.store.RecordTransition(previous, best.PatternID)
		m.pushHistoryLocked(best.PatternID, now)
	} else {
		m.framesInCurrent++
	}

	m.store.RecordActivation(m.currentID, now)

	p, _ := m.store.Get(m.currentID)
	transitionProb := 0.0
	if prevPattern, ok := m.store.Get(previous); ok {
		transitionProb = prevPattern.Transitions[m.currentID]
	}

	alternatives := make([]Alternative, 0, len(matches))
	for _, alt := range matches {
		if alt.PatternID == m.currentID {
			continue
		}
		alternatives = append(alternatives, Alternative{PatternID: alt.PatternID, Name: alt.Name, Similarity: alt.Similarity})
	}

	isTransition := switched && previous != m.currentID
	result := Result{
		PatternID:              p.ID,
		PatternName:            p.Name,
		Similarity:             best.Similarity,
		Confidence:             p.Meta.Confidence,
		Coefficients:           p.Coeffs,
		EmergencyThreshold:     p.Thresholds.Emergency,
		MemoryTriggerThreshold: p.Thresholds.MemoryTrigger,
		Alternatives:           alternatives,
		IsNewPattern:           isNew,
		IsTransition:           isTransition,
		TransitionProbability:  transitionProb,
		Decision:               decision,
	}
	if isTransition {
		result.PreviousPatternID = previous
	}
	return result
}

// Confirm and Reject are the feedback mutators of spec §4.3; they flow
// into the store's adjust_coefficients. Confirm on a base or locked
// current pattern leaves it unchanged and returns nil.
func (m *Matcher) Confirm() error {
	err := m.store.AdjustCoefficients(m.CurrentPatternID(), 1)
	var locked *apperr.PatternLockedError
	if errors.As(err, &locked) {
		return nil
	}
	return err
}

func (m *Matcher) Reject(correctID string) error {
	id := m.CurrentPatternID()
	if err := m.store.AdjustCoefficients(id, -1); err != nil {
		return err
	}
	if correctID != "" {
		if _, ok := m.store.Get(correctID); ok {
			m.mu.Lock()
			m.currentID = correctID
			m.framesInCurrent = 0
			m.phaseStartedAt = time.Now()
			m.mu.Unlock()
		}
	}
	return nil
}

func (m *Matcher) classify(matches []pattern.Match, sig buffer.Signature) Decision {
	best := matches[0].Similarity
	switch {
	case len(matches) >= 2 && matches[0].Similarity >= m.cfg.HighMatchThreshold && matches[1].Similarity >= m.cfg.HighMatchThreshold:
		return DecisionMergePatterns
	case best >= m.cfg.HighMatchThreshold:
		return DecisionUseExisting
	case best >= m.cfg.MediumMatchThreshold:
		return DecisionModifyExisting
	case best < m.cfg.LowMatchThreshold:
		if sig.Stability >= m.cfg.MinStabilityForCreation {
			return DecisionCreateNew
		}
		return DecisionModifyExisting
	default:
		return DecisionUncertain
	}
}

// currentSimilarityLocked returns the active pattern's similarity against
// the latest signature: reused from matches if the current pattern made
// the top-k cut, else recomputed directly against the store.
func (m *Matcher) currentSimilarityLocked(sig buffer.Signature, matches []pattern.Match) float64 {
	for _, cand := range matches {
		if cand.PatternID == m.currentID {
			return cand.Similarity
		}
	}
	if p, ok := m.store.Get(m.currentID); ok {
		return p.Signature.SimilarityWith(sig)
	}
	return m.lastSimilarity
}

func (m *Matcher) defaultCoeffsLocked() affect.Coefficients {
	return affect.Coefficients{AlphaFeedbackExt: 0.2, BetaFeedbackInt: 0.2, GammaDecay: 0.2, DeltaMemory: 0.2, ThetaWisdom: 0.2}
}

func (m *Matcher) resultForLocked(id string, similarity float64, decision Decision) Result {
	p, _ := m.store.Get(id)
	return Result{
		PatternID:              p.ID,
		PatternName:            p.Name,
		Similarity:             similarity,
		Confidence:             p.Meta.Confidence,
		Coefficients:           p.Coeffs,
		EmergencyThreshold:     p.Thresholds.Emergency,
		MemoryTriggerThreshold: p.Thresholds.MemoryTrigger,
		Decision:               decision,
	}
}

func (m *Matcher) pushHistoryLocked(id string, at time.Time) {
	m.history = append(m.history, HistoryEntry{PatternID: id, Timestamp: at})
	if len(m.history) > m.cfg.HistoryCapacity {
		m.history = m.history[len(m.history)-m.cfg.HistoryCapacity:]
	}
}
