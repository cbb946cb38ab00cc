// Package harness runs propagation scenarios as executable tests.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	params:
//	  infect_rate: 1
//	  t_incubation: 5
//	  t_recovery: 10
//	  t_loss_immunity: 100
//	seed: 1
//	susceptible: [b, c]
//	infectious: [a]
//	contacts:
//	  - {a: a, b: b, start: 0, end: 2}
//	assertions:
//	  - type: counts_at
//	    moment: 2
//	    counts: [1, 1, 1, 0]
//	  - type: final_compartment
//	    individual: b
//	    compartment: E
//
// Contacts are sorted by end moment before the run unless keep_order is
// set. A scenario may instead name an expect_error code (for example
// UNKNOWN_INDIVIDUAL) that the run must fail with.
//
// # Assertion Types
//
//   - counts_at: the [S, E, I, R] sizes of the snapshot valid at a moment
//   - compartment_at: an individual's compartment at a moment
//   - final_compartment: an individual's compartment in the last snapshot
//   - never_changes: an individual has no transitions
//   - trace_count: the number of transitions matching individual, to and cause
//   - invariants: every snapshot is a partition, moments increase, and the
//     stored trace replays to the stored series
//
// # Deterministic Testing
//
// Every scenario runs with its own seed, a fixed run ID
// (testutil.FixedRunIDGenerator) and a fresh in-memory SQLite database, so
// RunWithGolden can compare the canonical series and trace byte for byte.
package harness
