package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"affectengine/internal/affect"
)

// countingStore counts Dispatch calls per RequestType, for asserting that
// singleflight actually collapsed concurrent find_similar lookups.
type countingStore struct {
	findSimilarCalls int32
}

func (s *countingStore) Dispatch(_ context.Context, req Request) (Response, error) {
	if req.RequestType == RequestFindSimilar {
		atomic.AddInt32(&s.findSimilarCalls, 1)
		time.Sleep(10 * time.Millisecond)
	}
	return Response{RequestID: req.RequestID, Payload: []string{"ANGER"}}, nil
}

func TestCreatePotentialTraumaRespectsThresholds(t *testing.T) {
	m := New(DefaultConfig(), nil, nil)
	now := time.Now()

	var mild affect.Vector24
	mild[affect.IdxFear] = 0.3
	if _, ok := m.CreatePotentialTrauma(mild, now); ok {
		t.Fatal("expected mild affect to not qualify as trauma")
	}

	var severe affect.Vector24
	severe[affect.IdxFear] = 0.95
	severe[affect.IdxHorreur] = 0.9
	mem, ok := m.CreatePotentialTrauma(severe, now)
	if !ok {
		t.Fatal("expected high-intensity low-valence affect to create a trauma")
	}
	if !mem.IsTrauma {
		t.Fatal("expected IsTrauma to be set")
	}
}

func TestApplyForgetNeverDropsTraumaBelowFloor(t *testing.T) {
	m := New(DefaultConfig(), nil, nil)
	now := time.Now()
	var severe affect.Vector24
	severe[affect.IdxFear] = 0.95
	trauma, ok := m.CreatePotentialTrauma(severe, now)
	if !ok {
		t.Fatal("expected trauma to be created")
	}

	for i := 0; i < 50; i++ {
		m.ApplyForget(1.0)
	}

	got, ok := m.Get(trauma.ID)
	if !ok {
		t.Fatal("expected trauma to survive forgetting")
	}
	if got.Weight < 0.5 {
		t.Fatalf("expected trauma weight to stay >= 0.5, got %f", got.Weight)
	}
}

func TestApplyForgetDropsWeakNonTrauma(t *testing.T) {
	m := New(DefaultConfig(), nil, nil)
	now := time.Now()
	var mild affect.Vector24
	mild[affect.IdxJoy] = 0.3
	mem := m.RecordMemory(mild, "NEUTRAL", "", now)

	for i := 0; i < 50; i++ {
		m.ApplyForget(0.5)
	}

	if _, ok := m.Get(mem.ID); ok {
		t.Fatal("expected weak non-trauma memory to be forgotten")
	}
}

func TestQueryRelevantFearScoring(t *testing.T) {
	m := New(DefaultConfig(), nil, nil)
	now := time.Now()

	var fear affect.Vector24
	fear[affect.IdxFear] = 0.9
	fearMem := m.RecordMemory(fear, "FEAR", "", now)

	var joy affect.Vector24
	joy[affect.IdxJoy] = 0.9
	_ = m.RecordMemory(joy, "JOY", "", now)

	results := m.QueryRelevant("FEAR", fear, 5)
	if len(results) == 0 || results[0].ID != fearMem.ID {
		t.Fatalf("expected the fear-family memory to rank first under FEAR pattern, got %+v", results)
	}
}

func TestComputeMemoryInfluencesAverages(t *testing.T) {
	mems := []Memory{
		{Weight: 1, Activation: 1, E: affect.Vector24{affect.IdxJoy: 1}},
		{Weight: 0.5, Activation: 0.5, E: affect.Vector24{affect.IdxJoy: 1}},
	}
	out := ComputeMemoryInfluences(mems, 1.0)
	if out[affect.IdxJoy] <= 0 {
		t.Fatalf("expected positive joy influence, got %f", out[affect.IdxJoy])
	}
}

func TestUpdateActivationRefreshesOnlyAboveThreshold(t *testing.T) {
	m := New(DefaultConfig(), nil, nil)
	now := time.Now()
	var e affect.Vector24
	e[affect.IdxJoy] = 0.9
	mem := m.RecordMemory(e, "JOY", "", now)

	later := now.Add(2000 * time.Hour)
	var orthogonal affect.Vector24
	orthogonal[affect.IdxSadness] = 0.9
	updated, ok := m.UpdateActivation(mem.ID, orthogonal, later)
	if !ok {
		t.Fatal("expected memory to be found")
	}
	if updated.LastActivated.Equal(later) {
		t.Fatal("expected low-match activation to not refresh last_activated")
	}
}

func TestFindSimilarWithoutStoreReturnsNotReady(t *testing.T) {
	m := New(DefaultConfig(), nil, nil)
	_, err := m.FindSimilar(context.Background(), "ANGER", affect.Vector24{})
	if err == nil {
		t.Fatal("expected an error with no external store configured")
	}
}

func TestFindSimilarCollapsesConcurrentCallsForSameKey(t *testing.T) {
	store := &countingStore{}
	m := New(DefaultConfig(), store, nil)

	var e affect.Vector24
	e[affect.IdxAnger] = 0.8

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.FindSimilar(context.Background(), "ANGER", e); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&store.findSimilarCalls); got != 1 {
		t.Fatalf("expected singleflight to collapse concurrent lookups into 1 dispatch, got %d", got)
	}
}

func TestImportOverwritesMatchingIDsOnly(t *testing.T) {
	m := New(DefaultConfig(), nil, nil)
	now := time.Now()
	original := m.RecordMemory(affect.Vector24{}, "JOY", "", now)

	n := m.Import([]Memory{{ID: original.ID, Name: "restored"}, {ID: "mem_new"}})
	if n != 2 {
		t.Fatalf("expected 2 memories imported, got %d", n)
	}
	if got, ok := m.Get(original.ID); !ok || got.Name != "restored" {
		t.Fatalf("expected existing memory overwritten by id, got %+v ok=%v", got, ok)
	}
	if _, ok := m.Get("mem_new"); !ok {
		t.Fatal("expected new memory id to be installed")
	}
}

func TestAllReturnsEveryMemorySortedByID(t *testing.T) {
	m := New(DefaultConfig(), nil, nil)
	now := time.Now()
	m.RecordMemory(affect.Vector24{}, "JOY", "", now)
	m.RecordMemory(affect.Vector24{}, "FEAR", "", now)

	all := m.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 memories, got %d", len(all))
	}
	if all[0].ID > all[1].ID {
		t.Fatal("expected memories sorted ascending by id")
	}
}
