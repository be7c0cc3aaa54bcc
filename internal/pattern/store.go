package pattern

import (
	"math"
	"sort"
	"sync"
	"time"

	"affectengine/internal/affect"
	"affectengine/internal/apperr"
	"affectengine/internal/buffer"
)

// Config bundles the store's tunable thresholds (spec §4.2).
type Config struct {
	MinSimilarityThreshold  float64
	MinActivationsForFusion int
	MinConfidenceToKeep     float64
	DaysBeforePruning       float64
	MaxPatterns             int
	LearningRate            float64 // λ used by the EMA update
	FeedbackLearningRate    float64 // used by AdjustCoefficients
}

// DefaultConfig returns the store's default tuning.
func DefaultConfig() Config {
	return Config{
		MinSimilarityThreshold:  0.55,
		MinActivationsForFusion: 5,
		MinConfidenceToKeep:     0.15,
		DaysBeforePruning:       14,
		MaxPatterns:             64,
		LearningRate:            0.15,
		FeedbackLearningRate:    0.1,
	}
}

// Match is a single find_matches result.
type Match struct {
	PatternID  string
	Name       string
	Similarity float64
	Confidence float64
}

// Store is the mutex-guarded pattern registry of spec §4.2, following the
// same RWMutex-guarded map-of-state shape used elsewhere in this codebase.
type Store struct {
	mu       sync.RWMutex
	cfg      Config
	patterns map[string]Pattern
	seq      int
	onEvent  func(Event)
}

// New installs the eight base patterns and returns a ready store.
func New(cfg Config) *Store {
	s := &Store{cfg: cfg, patterns: make(map[string]Pattern)}
	for _, p := range newBasePatterns(time.Now()) {
		s.patterns[p.ID] = p
	}
	return s
}

// OnEvent registers the lifecycle callback. Not safe to call concurrently
// with store mutations.
func (s *Store) OnEvent(cb func(Event)) { s.onEvent = cb }

func (s *Store) emit(kind EventKind, id, detail string) {
	if s.onEvent == nil {
		return
	}
	s.onEvent(Event{Kind: kind, PatternID: id, Timestamp: time.Now(), Detail: detail})
}

// Get returns a value copy of the pattern, if present.
func (s *Store) Get(id string) (Pattern, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patterns[id]
	if !ok {
		return Pattern{}, false
	}
	return p.Clone(), true
}

// Len returns the number of patterns currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patterns)
}

// All returns value copies of every pattern currently held, sorted by id,
// for the admin "pattern list" surface.
func (s *Store) All() []Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Pattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Import installs patterns wholesale, overwriting any existing pattern
// sharing an id and leaving the rest untouched. Used to restore a
// previously exported pattern set ("snapshot import") into a running
// store. Base patterns are left alone unless the set carries their ids,
// in which case they are overwritten like any other pattern.
func (s *Store) Import(patterns []Pattern) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range patterns {
		s.patterns[p.ID] = p.Clone()
	}
	return len(patterns)
}

// FindMatches returns up to k patterns whose similarity to sig meets
// min_similarity_threshold, sorted by similarity*confidence descending.
func (s *Store) FindMatches(sig buffer.Signature, k int) []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Match, 0, len(s.patterns))
	for _, p := range s.patterns {
		sim := p.Signature.SimilarityWith(sig)
		if sim < s.cfg.MinSimilarityThreshold {
			continue
		}
		matches = append(matches, Match{PatternID: p.ID, Name: p.Name, Similarity: sim, Confidence: p.Meta.Confidence})
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity*matches[i].Confidence > matches[j].Similarity*matches[j].Confidence
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Create installs a new, non-base, non-locked pattern and returns its
// value copy.
func (s *Store) Create(name, description string, sig buffer.Signature, coeffs affect.Coefficients, thresholds Thresholds) Pattern {
	s.mu.Lock()
	now := time.Now()
	s.seq++
	id := newPatternID(s.seq, now)
	p := Pattern{
		ID:          id,
		Name:        name,
		Description: description,
		Signature:   sig,
		Coeffs:      coeffs,
		Thresholds:  thresholds,
		Meta: Metadata{
			Confidence: 0.5,
			CreatedAt:  now,
		},
		Transitions: map[string]float64{},
		IsActive:    true,
	}
	s.patterns[id] = p
	s.mu.Unlock()

	s.emit(EventCreated, id, name)
	return p.Clone()
}

// Update applies the EMA blend of spec §4.2 to the pattern identified by
// id. Base and locked patterns ignore the call and are returned unchanged,
// with a PatternLockedError flagging the no-op.
func (s *Store) Update(id string, sig buffer.Signature, feedback float64) (Pattern, error) {
	s.mu.Lock()
	p, ok := s.patterns[id]
	if !ok {
		s.mu.Unlock()
		return Pattern{}, &apperr.NotReady{Resource: "pattern:" + id}
	}
	if p.IsBase || p.IsLocked {
		s.mu.Unlock()
		return p.Clone(), &apperr.PatternLockedError{PatternID: id, Operation: "update"}
	}

	lambda := s.cfg.LearningRate
	p.Signature = emaSignature(p.Signature, sig, lambda)

	if feedback != 0 {
		p.Meta.Confidence = affect.Clamp01(p.Meta.Confidence + 0.1*affect.Clamp(feedback, -1, 1))
	}
	p.Meta.LastModified = time.Now()
	s.patterns[id] = p
	s.mu.Unlock()

	s.emit(EventModified, id, "")
	return p.Clone(), nil
}

func emaSignature(cur, next buffer.Signature, lambda float64) buffer.Signature {
	out := cur
	for i := 0; i < affect.Dimensions; i++ {
		out.Mean[i] = (1-lambda)*cur.Mean[i] + lambda*next.Mean[i]
		out.Std[i] = (1-lambda)*cur.Std[i] + lambda*next.Std[i]
		out.Trend[i] = (1-lambda)*cur.Trend[i] + lambda*next.Trend[i]
		out.Accel[i] = (1-lambda)*cur.Accel[i] + lambda*next.Accel[i]
		out.PeakPosition[i] = (1-lambda)*cur.PeakPosition[i] + lambda*next.PeakPosition[i]
	}
	out.Intensity = (1-lambda)*cur.Intensity + lambda*next.Intensity
	out.Valence = (1-lambda)*cur.Valence + lambda*next.Valence
	out.Arousal = (1-lambda)*cur.Arousal + lambda*next.Arousal
	out.Stability = (1-lambda)*cur.Stability + lambda*next.Stability
	out.DominantFrequency = (1-lambda)*cur.DominantFrequency + lambda*next.DominantFrequency
	return out
}

// Merge fuses two non-base patterns with sufficient activation history into
// a new blended pattern, deactivating (not deleting) the sources.
func (s *Store) Merge(id1, id2 string) (Pattern, error) {
	s.mu.Lock()
	p1, ok1 := s.patterns[id1]
	p2, ok2 := s.patterns[id2]
	if !ok1 || !ok2 {
		s.mu.Unlock()
		return Pattern{}, &apperr.NotReady{Resource: "pattern:" + id1 + "|" + id2}
	}
	if p1.IsBase || p2.IsBase {
		s.mu.Unlock()
		lockedID := id1
		if !p1.IsBase {
			lockedID = id2
		}
		return Pattern{}, &apperr.PatternLockedError{PatternID: lockedID, Operation: "merge"}
	}
	if p1.Meta.ActivationCount < s.cfg.MinActivationsForFusion || p2.Meta.ActivationCount < s.cfg.MinActivationsForFusion {
		s.mu.Unlock()
		return Pattern{}, &apperr.NotReady{Resource: "pattern activation count below min_activations_for_fusion"}
	}

	a1, a2 := float64(p1.Meta.ActivationCount), float64(p2.Meta.ActivationCount)
	w1 := a1 / (a1 + a2 + 1)

	now := time.Now()
	s.seq++
	mergedID := newPatternID(s.seq, now)

	merged := Pattern{
		ID:          mergedID,
		Name:        p1.Name + "+" + p2.Name,
		Description: p1.Description + " | " + p2.Description,
		Signature:   blendSignature(p1.Signature, p2.Signature, w1),
		Coeffs:      blendCoefficients(p1.Coeffs, p2.Coeffs, w1),
		Thresholds:  Thresholds{Emergency: math.Min(p1.Thresholds.Emergency, p2.Thresholds.Emergency), MemoryTrigger: math.Min(p1.Thresholds.MemoryTrigger, p2.Thresholds.MemoryTrigger)},
		Meta: Metadata{
			ActivationCount: p1.Meta.ActivationCount + p2.Meta.ActivationCount,
			Confidence:      (p1.Meta.Confidence + p2.Meta.Confidence) / 2,
			CreatedAt:       now,
			ParentIDs:       []string{id1, id2},
		},
		Transitions: map[string]float64{},
		IsActive:    true,
	}
	s.patterns[mergedID] = merged

	p1.IsActive = false
	p1.Meta.ChildIDs = append(p1.Meta.ChildIDs, mergedID)
	p2.IsActive = false
	p2.Meta.ChildIDs = append(p2.Meta.ChildIDs, mergedID)
	s.patterns[id1] = p1
	s.patterns[id2] = p2
	s.mu.Unlock()

	s.emit(EventDeactivated, id1, "merged into "+mergedID)
	s.emit(EventDeactivated, id2, "merged into "+mergedID)
	s.emit(EventMerged, mergedID, id1+"+"+id2)
	return merged.Clone(), nil
}

func blendSignature(a, b buffer.Signature, w1 float64) buffer.Signature {
	out := a
	w2 := 1 - w1
	for i := 0; i < affect.Dimensions; i++ {
		out.Mean[i] = w1*a.Mean[i] + w2*b.Mean[i]
		out.Std[i] = w1*a.Std[i] + w2*b.Std[i]
		out.Trend[i] = w1*a.Trend[i] + w2*b.Trend[i]
		out.Accel[i] = w1*a.Accel[i] + w2*b.Accel[i]
		out.PeakPosition[i] = w1*a.PeakPosition[i] + w2*b.PeakPosition[i]
	}
	out.Intensity = w1*a.Intensity + w2*b.Intensity
	out.Valence = w1*a.Valence + w2*b.Valence
	out.Arousal = w1*a.Arousal + w2*b.Arousal
	out.Stability = w1*a.Stability + w2*b.Stability
	out.DominantFrequency = w1*a.DominantFrequency + w2*b.DominantFrequency
	return out
}

func blendCoefficients(a, b affect.Coefficients, w1 float64) affect.Coefficients {
	w2 := 1 - w1
	return affect.Coefficients{
		AlphaFeedbackExt: w1*a.AlphaFeedbackExt + w2*b.AlphaFeedbackExt,
		BetaFeedbackInt:  w1*a.BetaFeedbackInt + w2*b.BetaFeedbackInt,
		GammaDecay:       w1*a.GammaDecay + w2*b.GammaDecay,
		DeltaMemory:      w1*a.DeltaMemory + w2*b.DeltaMemory,
		ThetaWisdom:      w1*a.ThetaWisdom + w2*b.ThetaWisdom,
	}
}

// Prune removes non-base, non-locked patterns that fall below the
// confidence floor or have gone stale, then trims any remaining excess by
// ascending confidence*ln(1+activation_count).
func (s *Store) Prune(now time.Time) []string {
	s.mu.Lock()
	var removed []string
	for id, p := range s.patterns {
		if p.IsBase || p.IsLocked {
			continue
		}
		staleSince := p.Meta.LastActivated
		if staleSince.IsZero() {
			staleSince = p.Meta.CreatedAt
		}
		days := now.Sub(staleSince).Hours() / 24
		if p.Meta.Confidence < s.cfg.MinConfidenceToKeep || (days > s.cfg.DaysBeforePruning && p.Meta.ActivationCount < 5) {
			delete(s.patterns, id)
			removed = append(removed, id)
		}
	}

	if s.cfg.MaxPatterns > 0 && len(s.patterns) > s.cfg.MaxPatterns {
		type scored struct {
			id    string
			score float64
		}
		candidates := make([]scored, 0)
		for id, p := range s.patterns {
			if p.IsBase || p.IsLocked {
				continue
			}
			candidates = append(candidates, scored{id, p.Meta.Confidence * math.Log(1+float64(p.Meta.ActivationCount))})
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].score < candidates[j].score })
		excess := len(s.patterns) - s.cfg.MaxPatterns
		for i := 0; i < excess && i < len(candidates); i++ {
			delete(s.patterns, candidates[i].id)
			removed = append(removed, candidates[i].id)
		}
	}
	s.mu.Unlock()

	for _, id := range removed {
		s.emit(EventDeleted, id, "pruned")
	}
	return removed
}

// RecordActivation increments the pattern's activation count and marks it
// the current activation time.
func (s *Store) RecordActivation(id string, at time.Time) {
	s.mu.Lock()
	p, ok := s.patterns[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	p.Meta.ActivationCount++
	p.Meta.LastActivated = at
	s.patterns[id] = p
	s.mu.Unlock()

	s.emit(EventActivated, id, "")
}

// RecordTransition records an observed fromID -> toID transition, keeping
// fromID's transition-probability map renormalised to sum 1.
func (s *Store) RecordTransition(fromID, toID string) {
	if fromID == "" || fromID == toID {
		return
	}
	s.mu.Lock()
	p, ok := s.patterns[fromID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if p.Transitions == nil {
		p.Transitions = map[string]float64{}
	}
	// Transitions currently stores un-normalised counts until the final
	// renormalisation pass below; reinterpret the stored float as a count.
	counts := make(map[string]float64, len(p.Transitions))
	var total float64
	for k, v := range p.Transitions {
		counts[k] = v
		total += v
	}
	counts[toID]++
	total++
	for k, v := range counts {
		p.Transitions[k] = v / total
	}
	s.patterns[fromID] = p
	s.mu.Unlock()
}

// AdjustCoefficients nudges a pattern's update coefficients toward a fixed
// mean of 0.2 proportional to feedback_learning_rate*feedback, then
// renormalises their sum back to 1 (spec §4.3).
func (s *Store) AdjustCoefficients(id string, feedback float64) error {
	s.mu.Lock()
	p, ok := s.patterns[id]
	if !ok {
		s.mu.Unlock()
		return &apperr.NotReady{Resource: "pattern:" + id}
	}
	if p.IsBase || p.IsLocked {
		s.mu.Unlock()
		return &apperr.PatternLockedError{PatternID: id, Operation: "adjust_coefficients"}
	}

	lr := s.cfg.FeedbackLearningRate * feedback
	c := &p.Coeffs
	adjust := func(v float64) float64 { return v + lr*(0.2-v) }
	c.AlphaFeedbackExt = adjust(c.AlphaFeedbackExt)
	c.BetaFeedbackInt = adjust(c.BetaFeedbackInt)
	c.GammaDecay = adjust(c.GammaDecay)
	c.DeltaMemory = adjust(c.DeltaMemory)
	c.ThetaWisdom = adjust(c.ThetaWisdom)

	sum := c.AlphaFeedbackExt + c.BetaFeedbackInt + c.GammaDecay + c.DeltaMemory + c.ThetaWisdom
	if sum > 0 {
		c.AlphaFeedbackExt /= sum
		c.BetaFeedbackInt /= sum
		c.GammaDecay /= sum
		c.DeltaMemory /= sum
		c.ThetaWisdom /= sum
	}
	p.Meta.LastModified = time.Now()
	s.patterns[id] = p
	s.mu.Unlock()

	s.emit(EventModified, id, "adjust_coefficients")
	return nil
}

func newPatternID(seq int, now time.Time) string {
	return "pat_" + now.UTC().Format("20060102T150405.000000000") + "_" + itoa(seq)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
