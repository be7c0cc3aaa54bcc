package pattern

import (
	"errors"
	"testing"
	"time"

	"affectengine/internal/affect"
	"affectengine/internal/apperr"
	"affectengine/internal/buffer"
)

func TestNewInstallsEightBasePatterns(t *testing.T) {
	s := New(DefaultConfig())
	if got := s.Len(); got != 8 {
		t.Fatalf("expected 8 base patterns, got %d", got)
	}
	p, ok := s.Get(IDSerenity)
	if !ok || !p.IsBase || !p.IsActive {
		t.Fatalf("expected base_serenity to be base and active, got %+v ok=%v", p, ok)
	}
}

func TestFindMatchesFiltersByThreshold(t *testing.T) {
	s := New(DefaultConfig())
	var sig buffer.Signature
	sig.Mean[affect.IdxJoy] = 0.7
	sig.Valence = 0.6
	sig.Arousal = 0.3

	matches := s.FindMatches(sig, 5)
	for _, m := range matches {
		if m.Similarity < s.cfg.MinSimilarityThreshold {
			t.Fatalf("match %s below threshold: %f", m.PatternID, m.Similarity)
		}
	}
}

func TestUpdateIgnoresBasePattern(t *testing.T) {
	s := New(DefaultConfig())
	before, _ := s.Get(IDSerenity)

	var sig buffer.Signature
	sig.Mean[affect.IdxFear] = 0.9
	after, err := s.Update(IDSerenity, sig, 0.5)
	var locked *apperr.PatternLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected a PatternLockedError, got %v", err)
	}
	if after.Signature.Mean != before.Signature.Mean {
		t.Fatal("expected base pattern update to be a no-op")
	}
}

func TestUpdateBlendsNonBasePattern(t *testing.T) {
	s := New(DefaultConfig())
	var initSig buffer.Signature
	initSig.Mean[affect.IdxExploration] = 0.2
	p := s.Create("CURIOUS", "custom", initSig, affect.Coefficients{AlphaFeedbackExt: 0.2, BetaFeedbackInt: 0.2, GammaDecay: 0.2, DeltaMemory: 0.2, ThetaWisdom: 0.2}, Thresholds{Emergency: 0.8, MemoryTrigger: 0.5})

	var newSig buffer.Signature
	newSig.Mean[affect.IdxExploration] = 1.0
	updated, err := s.Update(p.ID, newSig, 0.3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Signature.Mean[affect.IdxExploration] <= p.Signature.Mean[affect.IdxExploration] {
		t.Fatal("expected EMA blend to move mean toward new signature")
	}
	if updated.Meta.Confidence <= p.Meta.Confidence {
		t.Fatal("expected positive feedback to raise confidence")
	}
}

func TestMergeRequiresActivationFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinActivationsForFusion = 3
	s := New(cfg)

	var sig buffer.Signature
	p1 := s.Create("A", "", sig, affect.Coefficients{}, Thresholds{})
	p2 := s.Create("B", "", sig, affect.Coefficients{}, Thresholds{})

	if _, err := s.Merge(p1.ID, p2.ID); err == nil {
		t.Fatal("expected merge to fail below activation floor")
	}

	for i := 0; i < cfg.MinActivationsForFusion; i++ {
		s.RecordActivation(p1.ID, time.Now())
		s.RecordActivation(p2.ID, time.Now())
	}

	merged, err := s.Merge(p1.ID, p2.ID)
	if err != nil {
		t.Fatalf("expected merge to succeed, got %v", err)
	}
	if len(merged.Meta.ParentIDs) != 2 {
		t.Fatalf("expected merged pattern to carry two parent ids, got %v", merged.Meta.ParentIDs)
	}

	src1, _ := s.Get(p1.ID)
	if src1.IsActive {
		t.Fatal("expected merge source to be deactivated, not deleted")
	}
	if _, ok := s.Get(p1.ID); !ok {
		t.Fatal("expected merge source to still exist (deactivated, not deleted)")
	}
}

func TestPruneRemovesLowConfidenceNonBase(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinConfidenceToKeep = 0.5
	s := New(cfg)

	var sig buffer.Signature
	p := s.Create("WEAK", "", sig, affect.Coefficients{}, Thresholds{})
	weak, _ := s.Get(p.ID)
	weak.Meta.Confidence = 0.1
	s.patterns[p.ID] = weak

	removed := s.Prune(time.Now())
	if len(removed) != 1 || removed[0] != p.ID {
		t.Fatalf("expected %s to be pruned, got %v", p.ID, removed)
	}
	if _, ok := s.Get(IDSerenity); !ok {
		t.Fatal("base pattern must never be pruned")
	}
}

func TestRecordTransitionNormalises(t *testing.T) {
	s := New(DefaultConfig())
	var sig buffer.Signature
	a := s.Create("A", "", sig, affect.Coefficients{}, Thresholds{})
	b := s.Create("B", "", sig, affect.Coefficients{}, Thresholds{})
	c := s.Create("C", "", sig, affect.Coefficients{}, Thresholds{})

	s.RecordTransition(a.ID, b.ID)
	s.RecordTransition(a.ID, b.ID)
	s.RecordTransition(a.ID, c.ID)

	got, _ := s.Get(a.ID)
	sum := 0.0
	for _, v := range got.Transitions {
		sum += v
	}
	if diff := sum - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected transition probabilities to sum to 1, got %f", sum)
	}
	if got.Transitions[b.ID] <= got.Transitions[c.ID] {
		t.Fatalf("expected b (2 transitions) to outweigh c (1 transition): %v", got.Transitions)
	}
}

func TestAllReturnsEveryPatternSortedByID(t *testing.T) {
	s := New(DefaultConfig())
	baseline := s.Len()
	var sig buffer.Signature
	s.Create("Z", "", sig, affect.Coefficients{}, Thresholds{})
	s.Create("A", "", sig, affect.Coefficients{}, Thresholds{})

	all := s.All()
	if len(all) != baseline+2 {
		t.Fatalf("expected %d patterns, got %d", baseline+2, len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID > all[i].ID {
			t.Fatalf("expected patterns sorted by id, got %s before %s", all[i-1].ID, all[i].ID)
		}
	}
}

func TestImportOverwritesMatchingIDsOnly(t *testing.T) {
	s := New(DefaultConfig())
	var sig buffer.Signature
	p := s.Create("Original", "", sig, affect.Coefficients{}, Thresholds{})
	baseline := s.Len()

	imported := p
	imported.Name = "Restored"
	n := s.Import([]Pattern{imported})
	if n != 1 {
		t.Fatalf("expected 1 pattern imported, got %d", n)
	}
	if s.Len() != baseline {
		t.Fatalf("expected import of an existing id not to grow the store, got len=%d", s.Len())
	}
	got, ok := s.Get(p.ID)
	if !ok || got.Name != "Restored" {
		t.Fatalf("expected imported pattern to overwrite by id, got %+v ok=%v", got, ok)
	}
}

func TestAdjustCoefficientsRenormalisesToOne(t *testing.T) {
	s := New(DefaultConfig())
	var sig buffer.Signature
	p := s.Create("X", "", sig, affect.Coefficients{AlphaFeedbackExt: 0.4, BetaFeedbackInt: 0.3, GammaDecay: 0.1, DeltaMemory: 0.1, ThetaWisdom: 0.1}, Thresholds{})

	if err := s.AdjustCoefficients(p.ID, 1.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := s.Get(p.ID)
	sum := got.Coeffs.AlphaFeedbackExt + got.Coeffs.BetaFeedbackInt + got.Coeffs.GammaDecay + got.Coeffs.DeltaMemory + got.Coeffs.ThetaWisdom
	if diff := sum - 1.0; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected coefficients to renormalise to 1, got %f", sum)
	}
}

func TestAdjustCoefficientsFlagsLockedPattern(t *testing.T) {
	s := New(DefaultConfig())
	err := s.AdjustCoefficients(IDSerenity, 1.0)
	var locked *apperr.PatternLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected a PatternLockedError, got %v", err)
	}
}

func TestMergeFlagsBasePattern(t *testing.T) {
	s := New(DefaultConfig())
	var sig buffer.Signature
	p := s.Create("A", "", sig, affect.Coefficients{}, Thresholds{})

	_, err := s.Merge(IDSerenity, p.ID)
	var locked *apperr.PatternLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected a PatternLockedError, got %v", err)
	}
}
