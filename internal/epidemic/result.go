package epidemic

import (
	"sort"

	"github.com/roach88/contagion/internal/contact"
)

// Snapshot is the compartment partition valid from Moment until the next
// snapshot. ID slices are sorted.
type Snapshot struct {
	Moment      float64      `json:"moment"`
	Susceptible []contact.ID `json:"susceptible"`
	Exposed     []contact.ID `json:"exposed"`
	Infectious  []contact.ID `json:"infectious"`
	Recovered   []contact.ID `json:"recovered"`
}

// Counts returns [|S|, |E|, |I|, |R|].
func (s Snapshot) Counts() Counts {
	return Counts{len(s.Susceptible), len(s.Exposed), len(s.Infectious), len(s.Recovered)}
}

// Set returns the IDs in compartment c.
func (s Snapshot) Set(c Compartment) []contact.ID {
	switch c {
	case Susceptible:
		return s.Susceptible
	case Exposed:
		return s.Exposed
	case Infectious:
		return s.Infectious
	case Recovered:
		return s.Recovered
	}
	return nil
}

// CompartmentOf returns the compartment holding id in this snapshot.
func (s Snapshot) CompartmentOf(id contact.ID) (Compartment, bool) {
	for _, c := range Compartments {
		set := s.Set(c)
		i := sort.Search(len(set), func(i int) bool { return set[i] >= id })
		if i < len(set) && set[i] == id {
			return c, true
		}
	}
	return 0, false
}

// Counts is a size vector indexed by Compartment.
type Counts [4]int

// Total returns the population size.
func (c Counts) Total() int {
	return c[0] + c[1] + c[2] + c[3]
}

// Cause says what triggered a transition.
type Cause string

const (
	// CauseContact marks an infection resulting from a contact.
	CauseContact Cause = "contact"

	// CauseClock marks the expiry of an incubation, recovery or immunity clock.
	CauseClock Cause = "clock"
)

// Transition is one compartment move, in the order it was applied.
type Transition struct {
	Individual contact.ID  `json:"individual"`
	From       Compartment `json:"from"`
	To         Compartment `json:"to"`
	Moment     float64     `json:"moment"`
	Cause      Cause       `json:"cause"`
}

// Point is one entry of the size series.
type Point struct {
	Moment float64 `json:"moment"`
	Counts Counts  `json:"counts"`
}

// Result is the observable output of a run.
type Result struct {
	// Population is the fixed population size.
	Population int `json:"population"`

	// Snapshots are strictly increasing in Moment. The first is the initial
	// partition; one follows per interval.
	Snapshots []Snapshot `json:"snapshots"`

	// Transitions lists every move in application order.
	Transitions []Transition `json:"transitions"`
}

// Series returns the size vector at every snapshot moment.
func (r *Result) Series() []Point {
	out := make([]Point, len(r.Snapshots))
	for i, s := range r.Snapshots {
		out[i] = Point{Moment: s.Moment, Counts: s.Counts()}
	}
	return out
}

// Final returns the last snapshot.
func (r *Result) Final() Snapshot {
	return r.Snapshots[len(r.Snapshots)-1]
}

// At returns the snapshot valid at moment: the last one whose Moment is at
// or before it. ok is false if moment precedes the first snapshot.
func (r *Result) At(moment float64) (Snapshot, bool) {
	i := sort.Search(len(r.Snapshots), func(i int) bool { return r.Snapshots[i].Moment > moment })
	if i == 0 {
		return Snapshot{}, false
	}
	return r.Snapshots[i-1], true
}
