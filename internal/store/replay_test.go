package store

import (
	"context"
	"reflect"
	"testing"

	"github.com/roach88/contagion/internal/contact"
	"github.com/roach88/contagion/internal/epidemic"
)

func TestReplay_MatchesFinalSnapshot(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun(t, "run-1", 9)
	if _, _, err := s.WriteRun(ctx, run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	res := runTestSimulation(t, 9)
	if err := s.WriteResult(ctx, run.ID, res); err != nil {
		t.Fatalf("WriteResult() failed: %v", err)
	}

	state, err := s.Replay(ctx, run.ID)
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	if !state.Consistent {
		t.Error("Replay() reported an inconsistent run")
	}
	if state.Transitions != len(res.Transitions) {
		t.Errorf("Transitions = %d, want %d", state.Transitions, len(res.Transitions))
	}
	if !reflect.DeepEqual(state.Final, res.Final()) {
		t.Errorf("Final = %+v, want %+v", state.Final, res.Final())
	}
}

func TestReplay_DetectsTamperedTrace(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun(t, "run-1", 9)
	if _, _, err := s.WriteRun(ctx, run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	res := runTestSimulation(t, 9)
	if err := s.WriteResult(ctx, run.ID, res); err != nil {
		t.Fatalf("WriteResult() failed: %v", err)
	}

	// A transition out of a compartment the individual never held.
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO transitions (run_id, idx, individual, from_state, to_state, moment, cause)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, len(res.Transitions), "C", "R", "S", 13.0, "clock"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	state, err := s.Replay(ctx, run.ID)
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	if state.Consistent {
		t.Error("Replay() accepted a transition from the wrong compartment")
	}
}

func TestReadMembers(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun(t, "run-1", 1)
	if _, _, err := s.WriteRun(ctx, run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	initial := epidemic.Snapshot{Susceptible: []contact.ID{"B", "C", "D"}, Infectious: []contact.ID{"A"}}
	if err := s.WriteMembers(ctx, run.ID, initial); err != nil {
		t.Fatalf("WriteMembers() failed: %v", err)
	}

	got, err := s.ReadMembers(ctx, run.ID)
	if err != nil {
		t.Fatalf("ReadMembers() failed: %v", err)
	}
	want := map[contact.ID]epidemic.Compartment{
		"A": epidemic.Infectious,
		"B": epidemic.Susceptible,
		"C": epidemic.Susceptible,
		"D": epidemic.Susceptible,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadMembers() = %v, want %v", got, want)
	}
}
