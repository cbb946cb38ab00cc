package epidemic

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/roach88/contagion/internal/contact"
)

// Interval is the half-open span [Start, End) between two consecutive
// boundaries.
type Interval struct {
	Start float64
	End   float64
}

// Population is the caller-supplied initial partition. Every ID that appears
// in the contact table must be listed in exactly one of the two sets.
type Population struct {
	Susceptible []contact.ID `json:"susceptible" yaml:"susceptible"`
	Infectious  []contact.ID `json:"infectious" yaml:"infectious"`
}

// Propagator runs the SEIR model over a contact table.
//
// A Propagator owns its random source and is not safe for concurrent use.
// Use one Propagator per goroutine (see package ensemble).
type Propagator struct {
	params   Params
	rng      Rand
	logger   *slog.Logger
	observer func(Snapshot) error
}

// Option configures a Propagator.
type Option func(*Propagator)

// WithRand sets the random source used for infection trials.
func WithRand(r Rand) Option {
	return func(p *Propagator) {
		p.rng = r
	}
}

// WithSeed seeds a fresh PCG source (see NewRand).
func WithSeed(seed uint64) Option {
	return func(p *Propagator) {
		p.rng = NewRand(seed)
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Propagator) {
		p.logger = l
	}
}

// WithObserver registers fn to receive every snapshot as it is emitted.
// A non-nil error from fn aborts the run.
func WithObserver(fn func(Snapshot) error) Option {
	return func(p *Propagator) {
		p.observer = fn
	}
}

// New validates params and returns a Propagator. Without WithRand or
// WithSeed the source is seeded with 0.
func New(params Params, opts ...Option) (*Propagator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	p := &Propagator{
		params: params,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.rng == nil {
		p.rng = NewRand(0)
	}
	return p, nil
}

// Params returns the model parameters.
func (p *Propagator) Params() Params {
	return p.params
}

// Run propagates the epidemic over table starting from pop.
//
// The table must be sorted by end moment and reference only individuals in
// pop. The first snapshot holds the initial partition at the first boundary
// (or at 0 for an empty table); one snapshot follows per interval. Run checks
// ctx between intervals and returns ctx.Err() if it is cancelled.
func (p *Propagator) Run(ctx context.Context, table contact.Table, pop Population) (*Result, error) {
	st, err := NewState(pop.Susceptible, pop.Infectious)
	if err != nil {
		return nil, err
	}
	if err := checkTable(table, st); err != nil {
		return nil, err
	}

	boundaries := table.Boundaries()
	origin := 0.0
	if len(boundaries) > 0 {
		origin = boundaries[0]
	}

	res := &Result{Population: st.Population()}
	if err := p.emit(res, st.Snapshot(origin)); err != nil {
		return nil, err
	}

	p.logger.Info("propagation starting",
		"population", st.Population(),
		"contacts", len(table),
		"boundaries", len(boundaries),
		"window_mode", p.params.windowMode())

	sc := newScanner(table)
	for k := 0; k+1 < len(boundaries); k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		iv := Interval{Start: boundaries[k], End: boundaries[k+1]}
		active := sc.advance(iv.Start)

		transitions, err := p.Step(st, iv, active)
		if err != nil {
			return nil, err
		}
		res.Transitions = append(res.Transitions, transitions...)

		snap := st.Snapshot(iv.End)
		if total := snap.Counts().Total(); total != res.Population {
			return nil, newInvariantError("", iv.End, "snapshot holds %d individuals, population is %d", total, res.Population)
		}
		if err := p.emit(res, snap); err != nil {
			return nil, err
		}

		p.logger.Debug("interval resolved",
			"start", iv.Start,
			"end", iv.End,
			"active", len(active),
			"transitions", len(transitions))
	}

	p.logger.Info("propagation finished",
		"snapshots", len(res.Snapshots),
		"transitions", len(res.Transitions))
	return res, nil
}

// Step advances st across one interval given the records active during it.
// Records are resolved in the order given; afterwards every individual not
// involved in a resolved interaction has its due self-clock expired. Step
// returns the transitions it applied.
func (p *Propagator) Step(st *State, iv Interval, active []contact.Contact) ([]Transition, error) {
	for i, c := range active {
		for _, id := range [2]contact.ID{c.A, c.B} {
			if !st.Has(id) {
				return nil, unknownIndividual(id, i, c)
			}
		}
	}

	st.beginInterval()
	processed := make(map[contact.ID]struct{}, 2*len(active))
	for _, c := range active {
		if err := p.resolve(st, c, iv, processed); err != nil {
			return nil, err
		}
	}
	if err := p.advanceIdle(st, iv, processed); err != nil {
		return nil, err
	}
	return st.drainLog(), nil
}

func (p *Propagator) emit(res *Result, snap Snapshot) error {
	res.Snapshots = append(res.Snapshots, snap)
	if p.observer != nil {
		return p.observer(snap)
	}
	return nil
}

// checkTable enforces the table preconditions against the population.
func checkTable(table contact.Table, st *State) error {
	if err := table.Validate(); err != nil {
		var re *contact.RecordError
		if errors.As(err, &re) {
			return tableError(re)
		}
		return err
	}
	for i, c := range table {
		for _, id := range [2]contact.ID{c.A, c.B} {
			if !st.Has(id) {
				return unknownIndividual(id, i, c)
			}
		}
	}
	return nil
}

func unknownIndividual(id contact.ID, index int, c contact.Contact) *Error {
	return &Error{
		Code:       ErrCodeUnknownIndividual,
		Message:    "contact references an individual outside the initial population",
		Individual: id,
		Record:     index,
		Moment:     c.Start,
	}
}

// scanner yields the records active at successive boundaries.
//
// Records are retired in table (end) order and activated in start order.
// Both cursors only move forward.
type scanner struct {
	table   contact.Table
	byStart []int
	started int
	retired int
	active  map[int]struct{}
}

func newScanner(table contact.Table) *scanner {
	byStart := make([]int, len(table))
	for i := range byStart {
		byStart[i] = i
	}
	sort.SliceStable(byStart, func(i, j int) bool {
		return table[byStart[i]].Start < table[byStart[j]].Start
	})
	return &scanner{
		table:   table,
		byStart: byStart,
		active:  make(map[int]struct{}),
	}
}

// advance returns, in table order, the records with Start <= moment < End.
func (sc *scanner) advance(moment float64) []contact.Contact {
	for sc.started < len(sc.byStart) && sc.table[sc.byStart[sc.started]].Start <= moment {
		sc.active[sc.byStart[sc.started]] = struct{}{}
		sc.started++
	}
	for sc.retired < len(sc.table) && sc.table[sc.retired].End <= moment {
		delete(sc.active, sc.retired)
		sc.retired++
	}

	idx := make([]int, 0, len(sc.active))
	for i := range sc.active {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	out := make([]contact.Contact, len(idx))
	for k, i := range idx {
		out[k] = sc.table[i]
	}
	return out
}
