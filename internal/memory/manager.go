package memory

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"affectengine/internal/affect"
	"affectengine/internal/apperr"
	"github.com/google/uuid"
)

// Config bundles the manager's tunable thresholds (spec §4.6).
type Config struct {
	TraumaIntensityThreshold   float64
	TraumaValenceThreshold     float64
	ActivationRefreshThreshold float64
	TraumaHalfLifeHours        float64
	WeightFloor                float64
	MaxMemories                int
}

// DefaultConfig returns the manager's default tuning.
func DefaultConfig() Config {
	return Config{
		TraumaIntensityThreshold:   0.85,
		TraumaValenceThreshold:     0.2,
		ActivationRefreshThreshold: 0.3,
		TraumaHalfLifeHours:        720,
		WeightFloor:                0.01,
		MaxMemories:                2000,
	}
}

// Manager is the mutex-guarded C7 component.
type Manager struct {
	cfg Config

	mu        sync.Mutex
	memories  map[string]Memory

	store  ExternalStore
	logger *slog.Logger

	// findSimilar collapses concurrent FindSimilar calls sharing a
	// correlation key onto a single in-flight Dispatch.
	findSimilar singleflight.Group
}

// New builds an empty manager, optionally wired to an external store
// adapter (nil disables persistence without affecting in-process state).
func New(cfg Config, store ExternalStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{cfg: cfg, memories: make(map[string]Memory), store: store, logger: logger}
}

// RecordMemory creates and stores a new memory under the active pattern's
// creation-weight rule (spec §4.6 record_memory).
func (m *Manager) RecordMemory(e affect.Vector24, patternName, context string, now time.Time) Memory {
	valence := e.Valence()
	intensity := e.Intensity()

	mem := Memory{
		ID:                uuid.NewString(),
		E:                 e,
		DominantName:      e.DominantName(),
		Valence:           valence,
		Intensity:         intensity,
		Weight:            recordWeight(patternName, valence, intensity),
		Activation:        intensity,
		PatternAtCreation: patternName,
		CreatedAt:         now,
		LastActivated:     now,
		ActivationCount:   1,
		Context:           context,
	}

	m.mu.Lock()
	m.memories[mem.ID] = mem
	m.evictIfOverCapacityLocked()
	m.mu.Unlock()

	m.dispatchAsync(Request{RequestType: RequestCreateMemory, Payload: mem})
	return mem
}

// CreatePotentialTrauma inserts a trauma record when intensity and valence
// cross the configured thresholds (spec §4.6 create_potential_trauma).
func (m *Manager) CreatePotentialTrauma(e affect.Vector24, now time.Time) (Memory, bool) {
	intensity := e.Intensity()
	valence := e.Valence()
	if !(intensity > m.cfg.TraumaIntensityThreshold && valence < m.cfg.TraumaValenceThreshold) {
		return Memory{}, false
	}

	mem := Memory{
		ID:              uuid.NewString(),
		E:               e,
		DominantName:    e.DominantName(),
		Valence:         valence,
		Intensity:       intensity,
		Weight:          math.Min(1, 0.7+0.3*intensity),
		Activation:      intensity,
		IsTrauma:        true,
		CreatedAt:       now,
		LastActivated:   now,
		ActivationCount: 1,
	}

	m.mu.Lock()
	m.memories[mem.ID] = mem
	m.mu.Unlock()

	m.dispatchAsync(Request{RequestType: RequestCreateTrauma, Payload: mem})
	return mem, true
}

// QueryRelevant scores every memory under the active pattern's rule and
// returns the top-max by descending score.
func (m *Manager) QueryRelevant(patternName string, current affect.Vector24, max int) []Memory {
	m.mu.Lock()
	scored := make([]Memory, 0, len(m.memories))
	scores := make(map[string]float64, len(m.memories))
	for id, mem := range m.memories {
		scores[id] = scoreRelevance(mem, patternName, current)
		scored = append(scored, mem)
	}
	m.mu.Unlock()

	sort.Slice(scored, func(i, j int) bool { return scores[scored[i].ID] > scores[scored[j].ID] })
	if max > 0 && len(scored) > max {
		scored = scored[:max]
	}
	return scored
}

// FindSimilarPayload is the find_similar request's correlation-key fields.
type FindSimilarPayload struct {
	PatternName string
	Affect      affect.Vector24
}

// FindSimilar queries the external store for memories similar to e under
// patternName, the one external-store lookup the engine makes
// synchronously (spec §6). Concurrent callers sharing a patternName and
// dominant-emotion key collapse onto a single in-flight Dispatch via
// singleflight rather than each round-tripping the store.
func (m *Manager) FindSimilar(ctx context.Context, patternName string, e affect.Vector24) (Response, error) {
	if m.store == nil {
		return Response{}, &apperr.NotReady{Resource: "external store"}
	}
	key := patternName + "|" + e.DominantName()
	v, err, _ := m.findSimilar.Do(key, func() (any, error) {
		return m.store.Dispatch(ctx, Request{
			RequestType: RequestFindSimilar,
			Payload:     FindSimilarPayload{PatternName: patternName, Affect: e},
		})
	})
	if err != nil {
		return Response{}, err
	}
	return v.(Response), nil
}

// ComputeMemoryInfluences returns the per-emotion memory-influence vector
// (spec §4.6 compute_memory_influences).
func ComputeMemoryInfluences(memories []Memory, delta float64) affect.Vector24 {
	var out affect.Vector24
	if len(memories) == 0 {
		return out
	}
	n := float64(len(memories))
	for i := 0; i < affect.Dimensions; i++ {
		sum := 0.0
		for _, mem := range memories {
			sum += mem.Weight * mem.Activation * delta * mem.E[i]
		}
		out[i] = affect.Clamp01(sum / n)
	}
	return out
}

// UpdateActivation recomputes a memory's activation against the current
// affect, refreshing last_activated when the result exceeds the
// configured threshold (spec §4.6 update_activation). Returns the updated
// value; the zero value and false if id is unknown.
func (m *Manager) UpdateActivation(id string, current affect.Vector24, now time.Time) (Memory, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mem, ok := m.memories[id]
	if !ok {
		return Memory{}, false
	}

	hoursSince := now.Sub(mem.LastActivated).Hours()
	forgetFloor := 0.0
	if mem.IsTrauma {
		forgetFloor = 0.5
	}
	forget := math.Max(forgetFloor, math.Exp(-0.693*hoursSince/m.cfg.TraumaHalfLifeHours))
	reinforce := 1.0
	if mem.IsTrauma {
		reinforce = 1.5
	}
	match := mem.E.Cosine(current)

	activation := affect.Clamp01(forget * reinforce * match)
	mem.Activation = activation
	mem.ActivationCount++
	if activation > m.cfg.ActivationRefreshThreshold {
		mem.LastActivated = now
	}
	m.memories[id] = mem
	return mem, true
}

// ApplyForget decays every memory's weight and deletes non-traumas that
// fall below the weight floor (spec §4.6 apply_forget). Traumas never
// cross the floor since their decay is scaled by 0.1.
func (m *Manager) ApplyForget(decay float64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed []string
	for id, mem := range m.memories {
		if mem.IsTrauma {
			mem.Weight *= 1 - 0.1*decay
			if mem.Weight < 0.5 {
				mem.Weight = 0.5 // trauma floor invariant (spec §3)
			}
			m.memories[id] = mem
			continue
		}
		mem.Weight *= 1 - decay
		if mem.Weight < m.cfg.WeightFloor {
			delete(m.memories, id)
			removed = append(removed, id)
			continue
		}
		m.memories[id] = mem
	}
	return removed
}

// ShouldConsolidate classifies a stored memory under the active pattern's
// rule; the zero value and false if id is unknown.
func (m *Manager) ShouldConsolidate(id, patternName string) (ConsolidationVerdict, bool) {
	m.mu.Lock()
	mem, ok := m.memories[id]
	m.mu.Unlock()
	if !ok {
		return "", false
	}
	return shouldConsolidate(mem, patternName), true
}

// Get returns a value copy of a stored memory.
func (m *Manager) Get(id string) (Memory, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.memories[id]
	return mem, ok
}

// Len returns the number of memories currently held.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.memories)
}

// ActiveTraumas returns a value-copy snapshot of every trauma memory whose
// activation exceeds the "active" floor (spec §3: "active iff intensity >
// 0.1"), sorted by descending activation. Used by the amygdala and the
// consciousness engine, which only need identity and activation level.
func (m *Manager) ActiveTraumas() []Memory {
	const activeFloor = 0.1
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Memory
	for _, mem := range m.memories {
		if mem.IsTrauma && mem.Activation > activeFloor {
			out = append(out, mem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Activation > out[j].Activation })
	return out
}

// All returns value copies of every memory currently held, sorted by id,
// for the engine-wide snapshot export surface.
func (m *Manager) All() []Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Memory, 0, len(m.memories))
	for _, mem := range m.memories {
		out = append(out, mem)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Import installs memories wholesale, overwriting any existing memory
// sharing an id and leaving the rest untouched, then evicts down to
// max_memories if the import pushed the manager over capacity. Used to
// restore a previously exported memory set into a running manager.
func (m *Manager) Import(memories []Memory) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range memories {
		m.memories[mem.ID] = mem
	}
	m.evictIfOverCapacityLocked()
	return len(memories)
}

func (m *Manager) evictIfOverCapacityLocked() {
	if m.cfg.MaxMemories <= 0 || len(m.memories) <= m.cfg.MaxMemories {
		return
	}
	type scored struct {
		id    string
		score float64
	}
	candidates := make([]scored, 0, len(m.memories))
	for id, mem := range m.memories {
		if mem.IsTrauma {
			continue
		}
		candidates = append(candidates, scored{id, mem.Weight * mem.Activation})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score < candidates[j].score })
	excess := len(m.memories) - m.cfg.MaxMemories
	for i := 0; i < excess && i < len(candidates); i++ {
		delete(m.memories, candidates[i].id)
	}
}
