// Package contact models temporal contact logs: who was near whom, and when.
//
// A contact log arrives as raw proximity samples (one row per sensor tick,
// each ending at Time and lasting Duration). Normalize folds consecutive
// samples of the same unordered pair into maximal Contact records and sorts
// them by end moment, which is the order the propagator consumes.
//
// # Table invariants
//
// A normalized Table satisfies:
//   - A < B for every record (canonical pair order), A != B
//   - Start <= End, both finite
//   - records are sorted by End ascending (ties by Start, A, B)
//   - records of the same pair never overlap in time
//
// Validate checks the first three; Normalize guarantees all four.
//
// # Augmentation
//
// Shift, SwapIDs and Repeat derive synthetic tables from an empirical one
// (time-shifted repetitions and identifier shuffles). Each returns a
// re-sorted table so the result is still a valid propagator input.
package contact
