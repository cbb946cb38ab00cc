package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/contagion/internal/epidemic"
	"github.com/roach88/contagion/internal/store"
	"github.com/roach88/contagion/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios with a fixed seed and a fixed run ID.
type Harness struct {
	store  *store.Store
	runIDs *testutil.FixedRunIDGenerator
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Propagate over the scenario's contacts with its seed
// 3. Persist the run, its series and its trace
// 4. Evaluate assertions against the run and the stored rows
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		runIDs: testutil.NewFixedRunIDGenerator(scenario.Name),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.execute(ctx, scenario)
}

func (h *Harness) execute(ctx context.Context, scenario *Scenario) (*Result, error) {
	prop, err := epidemic.New(scenario.Params,
		epidemic.WithSeed(scenario.Seed),
		epidemic.WithLogger(h.logger))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	table := scenario.Table()
	pop := scenario.Population()
	result := NewResult()

	run, err := prop.Run(ctx, table, pop)
	if scenario.ExpectError != "" {
		checkExpectedError(result, scenario.ExpectError, err)
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	result.Run = run

	header, err := store.NewRun(h.runIDs.Generate(), scenario.Name, scenario.Params, scenario.Seed, pop, table)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	runID, _, err := h.store.WriteRunResult(ctx, header, run)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	result.RunID = runID
	result.Fingerprint = header.Fingerprint

	h.logger.Info("scenario executed",
		"scenario", scenario.Name,
		"run_id", runID,
		"snapshots", len(run.Snapshots),
		"transitions", len(run.Transitions),
	)

	actx := &AssertionContext{
		Store: h.store,
		RunID: runID,
		Ctx:   ctx,
	}
	for _, msg := range EvaluateAssertions(run, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// checkExpectedError records a failure unless err carries the expected
// epidemic error code.
func checkExpectedError(result *Result, want string, err error) {
	if err == nil {
		result.AddError((&AssertionError{
			Type:     "expect_error",
			Expected: want,
			Actual:   "run succeeded",
		}).Error())
		return
	}

	var perr *epidemic.Error
	if !errors.As(err, &perr) {
		result.AddError((&AssertionError{
			Type:     "expect_error",
			Expected: want,
			Actual:   err.Error(),
		}).Error())
		return
	}
	if string(perr.Code) != want {
		result.AddError((&AssertionError{
			Type:     "expect_error",
			Expected: want,
			Actual:   string(perr.Code),
		}).Error())
	}
}
