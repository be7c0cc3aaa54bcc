package consciousness

import (
	"math"
	"testing"
	"time"

	"affectengine/internal/affect"
)

func TestMemorySumMatchesWorkedExample(t *testing.T) {
	// spec §8 scenario 2: 0.3*0.8 + 0.25*0.6 + 0.15*0.9 = 0.525, others 0.
	e := New(DefaultConfig())
	mem := MemoryActivation{MCT: 0.8, MLT: 0.6, ME: 0.9}
	got := e.memoryWeights[0]*mem.MCT + e.memoryWeights[1]*mem.MLT +
		e.memoryWeights[2]*mem.MP + e.memoryWeights[3]*mem.ME +
		e.memoryWeights[4]*mem.MS + e.memoryWeights[5]*mem.MA
	want := 0.525
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("memory_sum = %f, want %f", got, want)
	}
}

func TestDominantTraumaOutweighsActiveOnly(t *testing.T) {
	e := New(DefaultConfig())
	now := time.Now()

	e.SetTrauma(&Trauma{Kind: TraumaEmotional, Intensity: 0.9, Dominant: true})
	dominant := e.Tick(affect.Vector24{}, MemoryActivation{}, FeedbackState{}, EnvironmentState{}, "FEAR", now)

	e.SetTrauma(&Trauma{Kind: TraumaEmotional, Intensity: 0.9, Dominant: false})
	active := e.Tick(affect.Vector24{}, MemoryActivation{}, FeedbackState{}, EnvironmentState{}, "FEAR", now)

	if !(dominant.Components.Trauma > active.Components.Trauma) {
		t.Fatalf("expected dominant trauma term to exceed active-only term: %f vs %f",
			dominant.Components.Trauma, active.Components.Trauma)
	}
}

func TestWisdomGrowthStaysWithinBounds(t *testing.T) {
	// spec §8 scenario 4: growth_rate=0.1, W_max=2.0, W_init=1.0, 10 calls at x=1.0.
	cfg := DefaultConfig()
	cfg.WisdomGrowthRate = 0.1
	cfg.WisdomMax = 2.0
	cfg.WisdomInit = 1.0
	e := New(cfg)

	var w float64
	for i := 0; i < 10; i++ {
		w = e.AddExperience(1.0)
	}
	if !(w > 1.0 && w <= 2.0) {
		t.Fatalf("expected wisdom in (1.0, 2.0], got %f", w)
	}
	if math.Abs(w-1.693) > 0.01 {
		t.Fatalf("expected wisdom close to 1.693, got %f", w)
	}
}

func TestResetWisdomRestoresInitialValue(t *testing.T) {
	e := New(DefaultConfig())
	e.AddExperience(2.0)
	e.AddExperience(2.0)
	if e.Wisdom() == DefaultConfig().WisdomInit {
		t.Fatal("expected wisdom to have grown before reset")
	}
	e.ResetWisdom()
	if e.Wisdom() != DefaultConfig().WisdomInit {
		t.Fatalf("expected wisdom reset to %f, got %f", DefaultConfig().WisdomInit, e.Wisdom())
	}
}

func TestSentimentAccumulatesAcrossHistory(t *testing.T) {
	e := New(DefaultConfig())
	now := time.Now()

	var joy affect.Vector24
	joy[affect.IdxJoy] = 0.9

	var last Snapshot
	for i := 0; i < 5; i++ {
		last = e.Tick(joy, MemoryActivation{}, FeedbackState{}, EnvironmentState{}, "JOY", now)
	}
	if last.HistoryDepth != 5 {
		t.Fatalf("expected history depth 5, got %d", last.HistoryDepth)
	}
	if last.Ft <= 0 {
		t.Fatalf("expected positive sentiment after repeated joy ticks, got %f", last.Ft)
	}
}

func TestConsciousnessMonotonicUnderIncreasingTraumaIntensity(t *testing.T) {
	e := New(DefaultConfig())
	now := time.Now()

	var prev float64 = -1
	for _, intensity := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		e.SetTrauma(&Trauma{Kind: TraumaEmotional, Intensity: intensity, Dominant: true})
		snap := e.Tick(affect.Vector24{}, MemoryActivation{}, FeedbackState{}, EnvironmentState{}, "FEAR", now)
		if snap.Ct < prev {
			t.Fatalf("expected Ct non-decreasing with trauma intensity, got %f after %f", snap.Ct, prev)
		}
		prev = snap.Ct
	}
}

func TestModulateMemoryWeightRenormalizes(t *testing.T) {
	e := New(DefaultConfig())
	e.ModulateMemoryWeight(0, 0.5)
	sum := 0.0
	for _, w := range e.memoryWeights {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("expected memory weights to sum to 1 after modulation, got %f", sum)
	}
}
