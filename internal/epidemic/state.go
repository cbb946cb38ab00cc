package epidemic

import (
	"sort"

	"github.com/roach88/contagion/internal/contact"
)

// Member is the exported view of one individual: its compartment and the
// clock stamps written on entry to Exposed, Infectious and Recovered.
// A stamp is only meaningful while the individual is in the matching
// compartment.
type Member struct {
	Compartment       Compartment `json:"compartment"`
	IncubationStart   float64     `json:"incubation_start"`
	RecoveryStart     float64     `json:"recovery_start"`
	LossImmunityStart float64     `json:"loss_immunity_start"`
}

// State is the simulation state owned by one run: a closed population with
// one compartment tag per individual.
//
// INVARIANTS:
//   - the population never changes after construction
//   - each individual holds exactly one compartment
//   - only the four transition primitives mutate a member
type State struct {
	members map[contact.ID]*Member
	order   []contact.ID // sorted; fixed at construction

	// prior holds the compartment at the start of the current interval for
	// individuals that moved during it.
	prior map[contact.ID]Compartment

	log []Transition
}

// NewState builds the time-0 state. Initial infectious individuals start
// their recovery clock at 0. An ID listed in both sets is rejected.
func NewState(susceptible, infectious []contact.ID) (*State, error) {
	members := make(map[contact.ID]Member, len(susceptible)+len(infectious))
	for _, id := range susceptible {
		members[id] = Member{Compartment: Susceptible}
	}
	for _, id := range infectious {
		if m, ok := members[id]; ok && m.Compartment == Susceptible {
			return nil, &Error{
				Code:       ErrCodeOverlappingPopulation,
				Message:    "individual is both initially susceptible and initially infectious",
				Individual: id,
				Record:     -1,
			}
		}
		members[id] = Member{Compartment: Infectious}
	}
	return RestoreState(members)
}

// RestoreState builds a state from explicit members, e.g. to resume a run
// or to drive Step from an arbitrary configuration.
func RestoreState(members map[contact.ID]Member) (*State, error) {
	s := &State{
		members: make(map[contact.ID]*Member, len(members)),
		order:   make([]contact.ID, 0, len(members)),
		prior:   make(map[contact.ID]Compartment),
	}
	for id, m := range members {
		if m.Compartment > Recovered {
			return nil, newInvariantError(id, 0, "invalid compartment %d", uint8(m.Compartment))
		}
		m := m
		s.members[id] = &m
		s.order = append(s.order, id)
	}
	sort.Slice(s.order, func(i, j int) bool { return s.order[i] < s.order[j] })
	return s, nil
}

// Clone returns a deep copy. The transition log is not copied.
func (s *State) Clone() *State {
	c := &State{
		members: make(map[contact.ID]*Member, len(s.members)),
		order:   s.order,
		prior:   make(map[contact.ID]Compartment, len(s.prior)),
	}
	for id, m := range s.members {
		m := *m
		c.members[id] = &m
	}
	for id, comp := range s.prior {
		c.prior[id] = comp
	}
	return c
}

// Population returns the number of individuals.
func (s *State) Population() int {
	return len(s.order)
}

// IDs returns all individuals in sorted order. The slice must not be modified.
func (s *State) IDs() []contact.ID {
	return s.order
}

// Has reports whether id belongs to the population.
func (s *State) Has(id contact.ID) bool {
	_, ok := s.members[id]
	return ok
}

// Member returns a copy of id's member record.
func (s *State) Member(id contact.ID) (Member, bool) {
	m, ok := s.members[id]
	if !ok {
		return Member{}, false
	}
	return *m, true
}

// Compartment returns id's current compartment.
func (s *State) Compartment(id contact.ID) (Compartment, bool) {
	m, ok := s.members[id]
	if !ok {
		return 0, false
	}
	return m.Compartment, true
}

// Count returns the number of individuals in c.
func (s *State) Count(c Compartment) int {
	n := 0
	for _, m := range s.members {
		if m.Compartment == c {
			n++
		}
	}
	return n
}

// Snapshot captures the current partition tagged with moment.
func (s *State) Snapshot(moment float64) Snapshot {
	snap := Snapshot{Moment: moment}
	for _, id := range s.order {
		switch s.members[id].Compartment {
		case Susceptible:
			snap.Susceptible = append(snap.Susceptible, id)
		case Exposed:
			snap.Exposed = append(snap.Exposed, id)
		case Infectious:
			snap.Infectious = append(snap.Infectious, id)
		case Recovered:
			snap.Recovered = append(snap.Recovered, id)
		}
	}
	return snap
}

// beginInterval forgets which individuals moved in the previous interval.
func (s *State) beginInterval() {
	clear(s.prior)
}

// atIntervalStart returns the compartment id held when the current interval
// began, regardless of moves made since.
func (s *State) atIntervalStart(id contact.ID) Compartment {
	if c, ok := s.prior[id]; ok {
		return c
	}
	return s.members[id].Compartment
}

// drainLog returns and clears the transitions recorded since the last call.
func (s *State) drainLog() []Transition {
	out := s.log
	s.log = nil
	return out
}

// toExposed moves id from Susceptible to Exposed and starts its incubation
// clock.
func (s *State) toExposed(id contact.ID, moment float64) error {
	m, err := s.source(id, Susceptible, Exposed, moment, func(m *Member) float64 { return m.IncubationStart })
	if m == nil || err != nil {
		return err
	}
	m.IncubationStart = moment
	s.move(id, m, Exposed, moment, CauseContact)
	return nil
}

// toInfectious moves id from Exposed to Infectious and starts its recovery
// clock.
func (s *State) toInfectious(id contact.ID, moment float64) error {
	m, err := s.source(id, Exposed, Infectious, moment, func(m *Member) float64 { return m.RecoveryStart })
	if m == nil || err != nil {
		return err
	}
	m.RecoveryStart = moment
	s.move(id, m, Infectious, moment, CauseClock)
	return nil
}

// toRecovered moves id from Infectious to Recovered and starts its
// immunity-loss clock.
func (s *State) toRecovered(id contact.ID, moment float64) error {
	m, err := s.source(id, Infectious, Recovered, moment, func(m *Member) float64 { return m.LossImmunityStart })
	if m == nil || err != nil {
		return err
	}
	m.LossImmunityStart = moment
	s.move(id, m, Recovered, moment, CauseClock)
	return nil
}

// toSusceptible moves id from Recovered back to Susceptible. No clock is
// written; moment only stamps the transition log.
func (s *State) toSusceptible(id contact.ID, moment float64) error {
	m, err := s.source(id, Recovered, Susceptible, moment, nil)
	if m == nil || err != nil {
		return err
	}
	s.move(id, m, Susceptible, moment, CauseClock)
	return nil
}

// source checks that id can move from -> to at moment. It returns the member
// when the move should happen, nil when the move was already applied with the
// same stamp, and an invariant error otherwise.
func (s *State) source(id contact.ID, from, to Compartment, moment float64, stamp func(*Member) float64) (*Member, error) {
	m, ok := s.members[id]
	if !ok {
		return nil, newInvariantError(id, moment, "transition %s->%s on individual outside the population", from, to)
	}
	if m.Compartment == from {
		return m, nil
	}
	if m.Compartment == to && (stamp == nil || stamp(m) == moment) {
		return nil, nil
	}
	return nil, newInvariantError(id, moment, "transition %s->%s on individual in %s", from, to, m.Compartment)
}

func (s *State) move(id contact.ID, m *Member, to Compartment, moment float64, cause Cause) {
	if _, ok := s.prior[id]; !ok {
		s.prior[id] = m.Compartment
	}
	s.log = append(s.log, Transition{Individual: id, From: m.Compartment, To: to, Moment: moment, Cause: cause})
	m.Compartment = to
}
