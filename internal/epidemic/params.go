package epidemic

import "math"

// WindowMode selects how infection risk is evaluated when the infectious
// participant of a susceptible×infectious contact recovers inside the
// interval.
type WindowMode string

const (
	// WindowCorrected uses infect_rate * (min(t, contact_end) - contact_start),
	// the same formula as the branch where no recovery happens. It reads
	// neither of the other two formulas: the window runs from the start of
	// the contact, not from the recovery moment t.
	WindowCorrected WindowMode = "corrected"

	// WindowLegacy compares the draw against the raw moment
	// min(t, contact_end), as the first published model did. With moments
	// of 1 or more this infects with certainty regardless of infect_rate.
	WindowLegacy WindowMode = "legacy"

	// WindowDegenerate uses infect_rate * (min(t, contact_end) - t). The
	// window is never positive, so recovery inside the interval always
	// prevents infection. The draw is still taken.
	WindowDegenerate WindowMode = "degenerate"
)

// Params are the global model parameters. Durations share the unit of the
// contact table's moments (seconds in the bundled datasets); InfectRate is
// per that unit.
type Params struct {
	// InfectRate scales contact duration into infection probability.
	InfectRate float64 `json:"infect_rate" yaml:"infect_rate"`

	// TIncubation is the Exposed -> Infectious latency.
	TIncubation float64 `json:"t_incubation" yaml:"t_incubation"`

	// TRecovery is the Infectious -> Recovered latency.
	TRecovery float64 `json:"t_recovery" yaml:"t_recovery"`

	// TLossImmunity is the Recovered -> Susceptible latency.
	TLossImmunity float64 `json:"t_loss_immunity" yaml:"t_loss_immunity"`

	// WindowMode defaults to WindowCorrected when empty.
	WindowMode WindowMode `json:"window_mode,omitempty" yaml:"window_mode,omitempty"`
}

// Validate rejects negative or non-finite values and unknown window modes.
func (p Params) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"infect_rate", p.InfectRate},
		{"t_incubation", p.TIncubation},
		{"t_recovery", p.TRecovery},
		{"t_loss_immunity", p.TLossImmunity},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return newParameterError("%s must be finite, got %g", c.name, c.value)
		}
		if c.value < 0 {
			return newParameterError("%s must be non-negative, got %g", c.name, c.value)
		}
	}

	switch p.WindowMode {
	case "", WindowCorrected, WindowLegacy, WindowDegenerate:
	default:
		return newParameterError("unknown window mode %q", p.WindowMode)
	}
	return nil
}

// InfectProbability returns InfectRate * duration. Callers compare a uniform
// draw in [0, 1) against it, so values outside [0, 1] saturate.
func (p Params) InfectProbability(duration float64) float64 {
	return p.InfectRate * duration
}

func (p Params) windowMode() WindowMode {
	if p.WindowMode == "" {
		return WindowCorrected
	}
	return p.WindowMode
}
