package epidemic

import (
	"math"

	"github.com/roach88/contagion/internal/contact"
)

// roles is an ordered pair of compartments, lower tag first.
type roles struct {
	first, second Compartment
}

// interaction is one active record seen from the resolver: participants are
// already ordered to match the selected rule.
type interaction struct {
	contact  contact.Contact
	interval Interval
	first    contact.ID
	second   contact.ID
}

type rule func(st *State, x interaction) error

// resolve dispatches one active record to its interaction rule. Roles are
// taken from the compartments held at the start of the interval. Pairs with
// no rule (S×S, S×R, I×I, ...) are left alone and their participants stay
// eligible for idle advancement.
func (p *Propagator) resolve(st *State, c contact.Contact, iv Interval, processed map[contact.ID]struct{}) error {
	a, b := c.A, c.B
	ca, cb := st.atIntervalStart(a), st.atIntervalStart(b)
	if cb < ca {
		a, b = b, a
		ca, cb = cb, ca
	}

	var apply rule
	switch (roles{ca, cb}) {
	case roles{Susceptible, Exposed}:
		apply = p.susceptibleExposed
	case roles{Susceptible, Infectious}:
		apply = p.susceptibleInfectious
	case roles{Exposed, Recovered}:
		apply = p.exposedRecovered
	case roles{Infectious, Recovered}:
		apply = p.infectiousRecovered
	default:
		return nil
	}

	processed[a] = struct{}{}
	processed[b] = struct{}{}
	return apply(st, interaction{contact: c, interval: iv, first: a, second: b})
}

// susceptibleExposed: the exposed participant may turn infectious during the
// interval, after which the remaining overlap carries infection risk.
func (p *Propagator) susceptibleExposed(st *State, x interaction) error {
	s, e := x.first, x.second

	t := p.infectiousAt(st, e)
	if t > x.interval.End {
		return nil
	}
	if err := p.expire(st, e, Exposed, t); err != nil {
		return err
	}
	if t > x.contact.End {
		return nil
	}

	last := math.Min(x.interval.End, x.contact.End)
	if p.trial(p.params.InfectProbability(last - t)) {
		return p.expose(st, s, last)
	}
	return nil
}

// susceptibleInfectious: risk accrues while the infectious participant stays
// infectious. If it recovers within the interval the window closes at the
// recovery moment.
func (p *Propagator) susceptibleInfectious(st *State, x interaction) error {
	s, i := x.first, x.second

	t := p.recoveredAt(st, i)
	if t <= x.interval.End {
		if err := p.expire(st, i, Infectious, t); err != nil {
			return err
		}
		last := math.Min(t, x.contact.End)

		var prob float64
		switch p.params.windowMode() {
		case WindowLegacy:
			prob = last
		case WindowDegenerate:
			prob = p.params.InfectProbability(last - t)
		default:
			prob = p.params.InfectProbability(math.Max(0, last-x.contact.Start))
		}
		if p.trial(prob) {
			return p.expose(st, s, last)
		}
		return nil
	}

	last := math.Min(x.interval.End, x.contact.End)
	if p.trial(p.params.InfectProbability(last - x.contact.Start)) {
		return p.expose(st, s, last)
	}
	return nil
}

// exposedRecovered: both clocks may expire; once the exposed one is
// infectious and the recovered one susceptible again, the latter can be
// infected before the contact ends. The risk is infect_rate times the
// window's closing moment, not its length.
func (p *Propagator) exposedRecovered(st *State, x interaction) error {
	e, r := x.first, x.second

	t1 := p.infectiousAt(st, e)
	t2 := p.susceptibleAt(st, r)
	if t1 <= x.interval.End {
		if err := p.expire(st, e, Exposed, t1); err != nil {
			return err
		}
	}
	if t2 <= x.interval.End {
		if err := p.expire(st, r, Recovered, t2); err != nil {
			return err
		}
	}

	last := math.Min(x.interval.End, x.contact.End)
	if math.Max(t1, t2) > last {
		return nil
	}

	if p.trial(p.params.InfectProbability(last)) {
		return p.expose(st, r, last)
	}
	return nil
}

// infectiousRecovered: the recovered participant can be reinfected only if it
// loses immunity no later than the infectious one recovers.
func (p *Propagator) infectiousRecovered(st *State, x interaction) error {
	i, r := x.first, x.second

	t1 := p.recoveredAt(st, i)
	t2 := p.susceptibleAt(st, r)
	if t1 <= x.interval.End {
		if err := p.expire(st, i, Infectious, t1); err != nil {
			return err
		}
	}
	if t2 <= x.interval.End {
		if err := p.expire(st, r, Recovered, t2); err != nil {
			return err
		}
	}

	if t2 > t1 || t2 > x.contact.End || t2 > x.interval.End {
		return nil
	}
	last := math.Min(t1, math.Min(x.contact.End, x.interval.End))
	if p.trial(p.params.InfectProbability(last - t2)) {
		return p.expose(st, r, last)
	}
	return nil
}

// advanceIdle expires the due self-clock of every individual that took part
// in no resolved interaction. Each advances at most one step.
func (p *Propagator) advanceIdle(st *State, iv Interval, processed map[contact.ID]struct{}) error {
	for _, id := range st.order {
		if _, ok := processed[id]; ok {
			continue
		}
		var err error
		switch st.members[id].Compartment {
		case Exposed:
			if t := p.infectiousAt(st, id); t <= iv.End {
				err = st.toInfectious(id, t)
			}
		case Infectious:
			if t := p.recoveredAt(st, id); t <= iv.End {
				err = st.toRecovered(id, t)
			}
		case Recovered:
			if t := p.susceptibleAt(st, id); t <= iv.End {
				err = st.toSusceptible(id, t)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Propagator) infectiousAt(st *State, id contact.ID) float64 {
	return st.members[id].IncubationStart + p.params.TIncubation
}

func (p *Propagator) recoveredAt(st *State, id contact.ID) float64 {
	return st.members[id].RecoveryStart + p.params.TRecovery
}

func (p *Propagator) susceptibleAt(st *State, id contact.ID) float64 {
	return st.members[id].LossImmunityStart + p.params.TLossImmunity
}

// expire applies the clock transition out of from. An individual that
// already took this step earlier in the interval is passed to the primitive,
// which treats the repeat as a no-op; one that has since moved further on
// is skipped.
func (p *Propagator) expire(st *State, id contact.ID, from Compartment, moment float64) error {
	live := st.members[id].Compartment
	switch from {
	case Exposed:
		if live == Exposed || live == Infectious {
			return st.toInfectious(id, moment)
		}
	case Infectious:
		if live == Infectious || live == Recovered {
			return st.toRecovered(id, moment)
		}
	case Recovered:
		if live == Recovered || live == Susceptible {
			return st.toSusceptible(id, moment)
		}
	}
	return nil
}

// expose infects id if it is still susceptible. The first infection within
// an interval wins.
func (p *Propagator) expose(st *State, id contact.ID, moment float64) error {
	if st.members[id].Compartment != Susceptible {
		return nil
	}
	return st.toExposed(id, moment)
}

// trial draws once and succeeds when the draw is below prob.
func (p *Propagator) trial(prob float64) bool {
	return p.rng.Float64() < prob
}
