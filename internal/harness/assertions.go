package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/contagion/internal/contact"
	"github.com/roach88/contagion/internal/epidemic"
	"github.com/roach88/contagion/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string                // Assertion type for categorization
	Expected string                // Human-readable expected outcome
	Actual   string                // Human-readable actual outcome
	Trace    []epidemic.Transition // Transitions involving the subject, if any
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTransitions:\n")
		for i, tr := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %g %s %s->%s (%s)\n", i+1, tr.Moment, tr.Individual, tr.From, tr.To, tr.Cause)
		}
	}

	return buf.String()
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	RunID string
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the run.
// Returns a list of error messages for failed assertions.
func EvaluateAssertions(run *epidemic.Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCountsAt:
			err = assertCountsAt(run, assertion)
		case AssertCompartmentAt:
			err = assertCompartmentAt(run, assertion)
		case AssertFinalCompartment:
			err = assertFinalCompartment(run, assertion)
		case AssertNeverChanges:
			err = assertNeverChanges(run, assertion)
		case AssertTraceCount:
			err = assertTraceCount(run, assertion)
		case AssertInvariants:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: invariants requires database context", i)
			} else {
				err = assertInvariants(actx, run)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertCountsAt checks the size vector of the snapshot valid at a moment.
func assertCountsAt(run *epidemic.Result, a Assertion) error {
	want := epidemic.Counts{a.Counts[0], a.Counts[1], a.Counts[2], a.Counts[3]}

	snap, ok := run.At(*a.Moment)
	if !ok {
		return &AssertionError{
			Type:     AssertCountsAt,
			Expected: fmt.Sprintf("counts %v at %g", want, *a.Moment),
			Actual:   fmt.Sprintf("no snapshot at or before %g", *a.Moment),
		}
	}
	if got := snap.Counts(); got != want {
		return &AssertionError{
			Type:     AssertCountsAt,
			Expected: fmt.Sprintf("counts %v at %g", want, *a.Moment),
			Actual:   fmt.Sprintf("counts %v (snapshot at %g)", got, snap.Moment),
		}
	}
	return nil
}

// assertCompartmentAt checks an individual's compartment at a moment.
func assertCompartmentAt(run *epidemic.Result, a Assertion) error {
	want, _ := epidemic.ParseCompartment(a.Compartment)

	snap, ok := run.At(*a.Moment)
	if !ok {
		return &AssertionError{
			Type:     AssertCompartmentAt,
			Expected: fmt.Sprintf("%s in %s at %g", a.Individual, want.Name(), *a.Moment),
			Actual:   fmt.Sprintf("no snapshot at or before %g", *a.Moment),
		}
	}
	return checkCompartment(AssertCompartmentAt, run, snap, a.Individual, want)
}

// assertFinalCompartment checks an individual's compartment in the last
// snapshot.
func assertFinalCompartment(run *epidemic.Result, a Assertion) error {
	want, _ := epidemic.ParseCompartment(a.Compartment)
	return checkCompartment(AssertFinalCompartment, run, run.Final(), a.Individual, want)
}

func checkCompartment(kind string, run *epidemic.Result, snap epidemic.Snapshot, id contact.ID, want epidemic.Compartment) error {
	got, ok := snap.CompartmentOf(id)
	if !ok {
		return &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("%s in %s at %g", id, want.Name(), snap.Moment),
			Actual:   "individual not in population",
		}
	}
	if got != want {
		return &AssertionError{
			Type:     kind,
			Expected: fmt.Sprintf("%s in %s at %g", id, want.Name(), snap.Moment),
			Actual:   got.Name(),
			Trace:    transitionsOf(run, id),
		}
	}
	return nil
}

// assertNeverChanges checks that an individual has no transitions and
// holds the same compartment in every snapshot.
func assertNeverChanges(run *epidemic.Result, a Assertion) error {
	if trs := transitionsOf(run, a.Individual); len(trs) > 0 {
		return &AssertionError{
			Type:     AssertNeverChanges,
			Expected: fmt.Sprintf("no transitions for %s", a.Individual),
			Actual:   fmt.Sprintf("%d transitions", len(trs)),
			Trace:    trs,
		}
	}

	first, ok := run.Snapshots[0].CompartmentOf(a.Individual)
	if !ok {
		return &AssertionError{
			Type:     AssertNeverChanges,
			Expected: fmt.Sprintf("%s in population", a.Individual),
			Actual:   "individual not in population",
		}
	}
	for _, snap := range run.Snapshots[1:] {
		if got, _ := snap.CompartmentOf(a.Individual); got != first {
			return &AssertionError{
				Type:     AssertNeverChanges,
				Expected: fmt.Sprintf("%s stays %s", a.Individual, first.Name()),
				Actual:   fmt.Sprintf("%s at %g", got.Name(), snap.Moment),
			}
		}
	}
	return nil
}

// assertTraceCount checks the number of transitions matching the optional
// individual, target compartment and cause filters.
func assertTraceCount(run *epidemic.Result, a Assertion) error {
	var to epidemic.Compartment
	if a.To != "" {
		to, _ = epidemic.ParseCompartment(a.To)
	}

	var matched []epidemic.Transition
	for _, tr := range run.Transitions {
		if a.Individual != "" && tr.Individual != a.Individual {
			continue
		}
		if a.To != "" && tr.To != to {
			continue
		}
		if a.Cause != "" && tr.Cause != epidemic.Cause(a.Cause) {
			continue
		}
		matched = append(matched, tr)
	}

	if len(matched) != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d transitions matching %s", a.Count, describeFilter(a)),
			Actual:   fmt.Sprintf("%d transitions", len(matched)),
			Trace:    matched,
		}
	}
	return nil
}

// assertInvariants checks that every snapshot partitions the population,
// that snapshot moments strictly increase, and that the persisted run
// replays to the same final partition.
func assertInvariants(actx *AssertionContext, run *epidemic.Result) error {
	for i, snap := range run.Snapshots {
		if err := checkPartition(snap, run.Population); err != nil {
			return &AssertionError{
				Type:     AssertInvariants,
				Expected: fmt.Sprintf("snapshot %d partitions %d individuals", i, run.Population),
				Actual:   err.Error(),
			}
		}
		if i > 0 && snap.Moment <= run.Snapshots[i-1].Moment {
			return &AssertionError{
				Type:     AssertInvariants,
				Expected: "strictly increasing snapshot moments",
				Actual:   fmt.Sprintf("snapshot %d at %g after %g", i, snap.Moment, run.Snapshots[i-1].Moment),
			}
		}
	}

	state, err := actx.Store.Replay(actx.Ctx, actx.RunID)
	if err != nil {
		return fmt.Errorf("invariants: %w", err)
	}
	if !state.Consistent {
		return &AssertionError{
			Type:     AssertInvariants,
			Expected: "stored transitions replay to the stored series",
			Actual:   fmt.Sprintf("replayed counts %v after %d transitions", state.Final.Counts(), state.Transitions),
		}
	}
	if got, want := state.Final.Counts(), run.Final().Counts(); got != want {
		return &AssertionError{
			Type:     AssertInvariants,
			Expected: fmt.Sprintf("replayed counts %v", want),
			Actual:   fmt.Sprintf("replayed counts %v", got),
		}
	}
	return nil
}

// checkPartition reports the first individual found in two compartments,
// or a size mismatch.
func checkPartition(snap epidemic.Snapshot, population int) error {
	seen := make(map[contact.ID]epidemic.Compartment, population)
	for _, c := range epidemic.Compartments {
		for _, id := range snap.Set(c) {
			if prev, dup := seen[id]; dup {
				return fmt.Errorf("%s in both %s and %s", id, prev.Name(), c.Name())
			}
			seen[id] = c
		}
	}
	if len(seen) != population {
		return fmt.Errorf("%d individuals", len(seen))
	}
	return nil
}

func transitionsOf(run *epidemic.Result, id contact.ID) []epidemic.Transition {
	var out []epidemic.Transition
	for _, tr := range run.Transitions {
		if tr.Individual == id {
			out = append(out, tr)
		}
	}
	return out
}

func describeFilter(a Assertion) string {
	var parts []string
	if a.Individual != "" {
		parts = append(parts, "individual="+string(a.Individual))
	}
	if a.To != "" {
		parts = append(parts, "to="+a.To)
	}
	if a.Cause != "" {
		parts = append(parts, "cause="+a.Cause)
	}
	if len(parts) == 0 {
		return "any"
	}
	return strings.Join(parts, " ")
}
