package harness

import "github.com/roach88/contagion/internal/epidemic"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if every assertion holds.
	Pass bool `json:"pass"`

	// RunID is the ID the run was persisted under.
	RunID string `json:"run_id"`

	// Fingerprint identifies the scenario's inputs.
	Fingerprint string `json:"fingerprint"`

	// Run is the propagator output. Nil when the scenario expected an error.
	Run *epidemic.Result `json:"run,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Trace returns the run's transitions, or nil if there is no run.
func (r *Result) Trace() []epidemic.Transition {
	if r.Run == nil {
		return nil
	}
	return r.Run.Transitions
}
