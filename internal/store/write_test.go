package store

import (
	"context"
	"testing"

	"github.com/roach88/contagion/internal/epidemic"
)

func TestWriteRun_Basic(t *testing.T) {
	s := createTestStore(t)
	run := createTestRun(t, "run-1", 7)

	id, created, err := s.WriteRun(context.Background(), run)
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	if id != "run-1" || !created {
		t.Errorf("WriteRun() = (%q, %v), want (\"run-1\", true)", id, created)
	}

	var params, seed string
	err = s.db.QueryRow(`SELECT params, seed FROM runs WHERE id = ?`, id).Scan(&params, &seed)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	want := `{"infect_rate":"1","t_incubation":"2","t_loss_immunity":"100","t_recovery":"100","window_mode":"corrected"}`
	if params != want {
		t.Errorf("params = %s, want %s", params, want)
	}
	if seed != "7" {
		t.Errorf("seed = %q, want \"7\"", seed)
	}
}

func TestWriteRun_IdempotentOnFingerprint(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestRun(t, "run-1", 7)
	if _, _, err := s.WriteRun(ctx, first); err != nil {
		t.Fatalf("first WriteRun() failed: %v", err)
	}

	// Same inputs under a new ID resolve to the stored run.
	again := createTestRun(t, "run-2", 7)
	id, created, err := s.WriteRun(ctx, again)
	if err != nil {
		t.Fatalf("second WriteRun() failed: %v", err)
	}
	if id != "run-1" || created {
		t.Errorf("WriteRun() = (%q, %v), want (\"run-1\", false)", id, created)
	}

	// A different seed is a different run.
	other := createTestRun(t, "run-3", 8)
	id, created, err = s.WriteRun(ctx, other)
	if err != nil {
		t.Fatalf("third WriteRun() failed: %v", err)
	}
	if id != "run-3" || !created {
		t.Errorf("WriteRun() = (%q, %v), want (\"run-3\", true)", id, created)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("runs = %d, want 2", count)
	}
}

func TestWriteSnapshots_RequiresRun(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteSnapshots(context.Background(), "missing", []epidemic.Snapshot{{Moment: 0}})
	if err == nil {
		t.Error("expected foreign key error for unknown run, got nil")
	}
}

func TestWriteResult_IgnoresRewrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun(t, "run-1", 7)
	if _, _, err := s.WriteRun(ctx, run); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	res := runTestSimulation(t, 7)

	for i := 0; i < 2; i++ {
		if err := s.WriteResult(ctx, run.ID, res); err != nil {
			t.Fatalf("WriteResult() pass %d failed: %v", i, err)
		}
	}

	var snaps, trs int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM snapshots WHERE run_id = ?`, run.ID).Scan(&snaps); err != nil {
		t.Fatalf("count snapshots: %v", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM transitions WHERE run_id = ?`, run.ID).Scan(&trs); err != nil {
		t.Fatalf("count transitions: %v", err)
	}
	if snaps != len(res.Snapshots) {
		t.Errorf("snapshots = %d, want %d", snaps, len(res.Snapshots))
	}
	if trs != len(res.Transitions) {
		t.Errorf("transitions = %d, want %d", trs, len(res.Transitions))
	}
}

func TestWriteRunResult_StoresCompleteRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	run := createTestRun(t, "run-1", 7)
	res := runTestSimulation(t, 7)
	id, created, err := s.WriteRunResult(ctx, run, res)
	if err != nil {
		t.Fatalf("WriteRunResult() failed: %v", err)
	}
	if id != "run-1" || !created {
		t.Errorf("WriteRunResult() = (%q, %v), want (\"run-1\", true)", id, created)
	}

	state, err := s.Replay(ctx, id)
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	if !state.Consistent || state.Transitions != len(res.Transitions) {
		t.Errorf("Replay() = consistent %v, %d transitions; want consistent, %d", state.Consistent, state.Transitions, len(res.Transitions))
	}

	// Same inputs under a new ID resolve to the stored run without rewriting.
	id, created, err = s.WriteRunResult(ctx, createTestRun(t, "run-2", 7), res)
	if err != nil {
		t.Fatalf("second WriteRunResult() failed: %v", err)
	}
	if id != "run-1" || created {
		t.Errorf("WriteRunResult() = (%q, %v), want (\"run-1\", false)", id, created)
	}
}

func TestWriteRunResult_FailedWriteLeavesNoRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	res := runTestSimulation(t, 7)

	if _, err := s.db.Exec(`
		CREATE TRIGGER reject_snapshots BEFORE INSERT ON snapshots
		BEGIN SELECT RAISE(ABORT, 'rejected'); END
	`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}
	if _, _, err := s.WriteRunResult(ctx, createTestRun(t, "run-1", 7), res); err == nil {
		t.Fatal("WriteRunResult() succeeded with snapshots rejected")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, _, err := s.WriteRunResult(cancelled, createTestRun(t, "run-1", 7), res); err == nil {
		t.Fatal("WriteRunResult() succeeded with a cancelled context")
	}

	for _, table := range []string{"runs", "members", "snapshots", "transitions"} {
		var n int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s = %d rows after failed writes, want 0", table, n)
		}
	}

	if _, err := s.db.Exec(`DROP TRIGGER reject_snapshots`); err != nil {
		t.Fatalf("drop trigger: %v", err)
	}

	// A retry with the same inputs stores the run in full.
	id, created, err := s.WriteRunResult(ctx, createTestRun(t, "run-2", 7), res)
	if err != nil {
		t.Fatalf("retry WriteRunResult() failed: %v", err)
	}
	if id != "run-2" || !created {
		t.Errorf("WriteRunResult() = (%q, %v), want (\"run-2\", true)", id, created)
	}
	state, err := s.Replay(ctx, id)
	if err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	if !state.Consistent || state.Transitions != len(res.Transitions) {
		t.Errorf("Replay() = consistent %v, %d transitions; want consistent, %d", state.Consistent, state.Transitions, len(res.Transitions))
	}
}
