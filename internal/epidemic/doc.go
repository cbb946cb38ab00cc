// Package epidemic implements the event-driven SEIR propagator over a
// temporal contact network.
//
// The propagator walks a contact table (sorted by end moment) together with
// the sorted distinct boundary moments of that table. Each pair of
// consecutive boundaries delimits an interval [b_k, b_{k+1}) during which the
// set of active contacts does not change. For every interval it:
//
//  1. Activates records whose start is at or before b_k and retires records
//     whose end is at or before b_k. Both cursors only move forward, so the
//     whole table is scanned once.
//  2. Resolves each active record with the interaction rule selected by the
//     compartments its two participants held at b_k.
//  3. Advances the self-clocks (incubation, recovery, immunity loss) of every
//     individual not involved in a resolved interaction.
//  4. Emits a Snapshot keyed by b_{k+1}.
//
// # Determinism
//
// Interval processing is strictly sequential: later intervals read clocks
// written by earlier ones. Active records are resolved in table order and
// idle individuals in ID order, so a run is fully determined by its inputs
// and the seed of its random source.
//
// # State
//
// State holds one compartment tag per individual, which makes the four
// compartments disjoint by construction. Only the four transition primitives
// in state.go mutate it. Step advances a State by one interval and can be
// driven directly in tests.
package epidemic
