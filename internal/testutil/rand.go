package testutil

import "sync"

// ScriptedRand replays a fixed sequence of uniform draws.
//
// Once the script is exhausted the last draw repeats, so a one-element
// script acts as a constant source. Satisfies epidemic.Rand.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type ScriptedRand struct {
	mu    sync.Mutex
	draws []float64
	calls int
}

// NewScriptedRand creates a source returning draws in order.
// With no draws it always returns 0.
func NewScriptedRand(draws ...float64) *ScriptedRand {
	return &ScriptedRand{draws: draws}
}

// Float64 returns the next scripted draw.
func (r *ScriptedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	switch {
	case len(r.draws) == 0:
		return 0
	case r.calls <= len(r.draws):
		return r.draws[r.calls-1]
	default:
		return r.draws[len(r.draws)-1]
	}
}

// Calls returns how many draws have been taken.
func (r *ScriptedRand) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Reset rewinds the script for test reuse.
func (r *ScriptedRand) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = 0
}
