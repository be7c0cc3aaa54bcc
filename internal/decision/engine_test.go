package decision

import (
	"testing"
	"time"

	"affectengine/internal/affect"
)

func TestReflexBypassAtHighUrgency(t *testing.T) {
	e := New(DefaultConfig())
	var extreme affect.Vector24
	extreme[affect.IdxFear] = 1.0
	extreme[affect.IdxAnger] = 1.0
	extreme[affect.IdxAnxiety] = 1.0

	in := Input{
		Affect:      extreme,
		ContextType: "meeting",
		Memory: MemoryContext{
			Procedures: []Procedure{{ID: "p1", TriggerContext: "*", ActionName: "freeze", IsReflex: true}},
		},
	}
	result := e.Decide(in, time.Now())
	if !result.ReflexMode {
		t.Fatal("expected reflex mode at urgency >= 0.9")
	}
	if result.Kappa != 0.9 {
		t.Fatalf("expected kappa 0.9 for reflex, got %f", result.Kappa)
	}
	if result.ChosenOption.Name != "freeze" {
		t.Fatalf("expected the registered reflex procedure to be chosen, got %s", result.ChosenOption.Name)
	}
	if len(result.AllOptions) != 0 {
		t.Fatal("expected no phase-2/3 options populated on the reflex path")
	}
}

func TestReflexDefaultsToProtectWithoutReflexProcedure(t *testing.T) {
	e := New(DefaultConfig())
	var extreme affect.Vector24
	extreme[affect.IdxFear] = 1.0
	extreme[affect.IdxAnger] = 1.0

	result := e.Decide(Input{Affect: extreme, ContextType: "meeting"}, time.Now())
	if !result.ReflexMode || result.ChosenOption.Name != "protect" {
		t.Fatalf("expected default protect reflex, got %+v", result.ChosenOption)
	}
}

func TestVetoSoundnessChosenOptionNeverVetoed(t *testing.T) {
	e := New(DefaultConfig())
	var mild affect.Vector24
	mild[affect.IdxJoy] = 0.3

	in := Input{
		Affect:      mild,
		ContextType: "meeting",
		ExtraAlerts: []Alert{{Type: "escalation", Severity: 0.9}},
	}
	result := e.Decide(in, time.Now())
	if result.ChosenOption.Vetoed {
		t.Fatal("chosen option must never be vetoed")
	}
	foundVetoed := false
	for _, o := range result.AllOptions {
		if o.Category == "aggressive" {
			if !o.Vetoed {
				t.Fatalf("expected aggressive option to be vetoed under strong escalation alert, got %+v", o)
			}
			foundVetoed = true
		}
	}
	if !foundVetoed {
		t.Skip("no aggressive-category option was generated for this context to exercise veto")
	}
}

func TestDecideReturnsNonEmptyOptionsOutsideReflex(t *testing.T) {
	e := New(DefaultConfig())
	var mild affect.Vector24
	mild[affect.IdxJoy] = 0.4

	result := e.Decide(Input{Affect: mild, ContextType: "project"}, time.Now())
	if result.ReflexMode {
		t.Fatal("did not expect reflex mode for mild affect")
	}
	if len(result.AllOptions) == 0 {
		t.Fatal("expected generated options outside the reflex path")
	}
}

func TestDetectConflictSurpassingWithHighTrauma(t *testing.T) {
	e := New(DefaultConfig())
	var mild affect.Vector24
	mild[affect.IdxJoy] = 0.3
	in := Input{Affect: mild, ContextType: "project", DominantGoalVar: "Surpassing", TraumasLevel: 0.8}
	result := e.Decide(in, time.Now())
	if len(result.Conflicts) == 0 {
		t.Fatal("expected a conflict when Surpassing dominates with high Traumas")
	}
}

func TestRecordOutcomePromotesProcedureToReflex(t *testing.T) {
	e := New(DefaultConfig())
	e.RegisterProcedure(Procedure{ID: "p1", ActionName: "draft_plan", TriggerContext: "project"})

	for i := 0; i < 10; i++ {
		e.RecordOutcome(Outcome{OptionID: "ep1", ActionName: "draft_plan", ContextType: "project", Expected: 0.5, Actual: 0.9, Success: true}, nil)
	}

	procs := e.Procedures()
	if len(procs) != 1 || !procs[0].IsReflex {
		t.Fatalf("expected procedure promoted to reflex after repeated success, got %+v", procs)
	}
}

func TestRecordOutcomeTracksIdentityLog(t *testing.T) {
	e := New(DefaultConfig())
	e.RecordOutcome(Outcome{OptionID: "ep1", ActionName: "draft_plan", Expected: 0.5, Actual: 0.9, Success: true, IdentityDelta: "confidence:0.05"}, nil)
	log := e.IdentityLog()
	if len(log) != 1 {
		t.Fatalf("expected one identity log entry, got %v", log)
	}
}
