package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/contagion/internal/contact"
	"github.com/roach88/contagion/internal/epidemic"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var (
	testParams = epidemic.Params{InfectRate: 1, TIncubation: 2, TRecovery: 100, TLossImmunity: 100}
	testPop    = epidemic.Population{Susceptible: []contact.ID{"B", "C", "D"}, Infectious: []contact.ID{"A"}}
	testTable  = contact.Table{
		{A: "A", B: "B", Start: 0, End: 10},
		{A: "C", B: "D", Start: 12, End: 13},
	}
)

// createTestRun builds a run header over the shared test inputs.
func createTestRun(t *testing.T, id string, seed uint64) Run {
	t.Helper()
	run, err := NewRun(id, "test", testParams, seed, testPop, testTable)
	if err != nil {
		t.Fatalf("NewRun() failed: %v", err)
	}
	return run
}

// runTestSimulation runs the propagator over the shared test inputs.
func runTestSimulation(t *testing.T, seed uint64) *epidemic.Result {
	t.Helper()
	p, err := epidemic.New(testParams, epidemic.WithSeed(seed))
	if err != nil {
		t.Fatalf("epidemic.New() failed: %v", err)
	}
	res, err := p.Run(context.Background(), testTable, testPop)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	return res
}
