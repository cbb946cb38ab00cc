package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/roach88/contagion/internal/contact"
	"github.com/roach88/contagion/internal/epidemic"
)

// RunState is a run reconstructed from its stored rows.
type RunState struct {
	Run Run

	// Final is the partition after every stored transition has been
	// replayed over the initial members.
	Final epidemic.Snapshot

	// Transitions is the number of transitions replayed.
	Transitions int

	// Consistent is true when the replayed partition matches the last stored
	// snapshot counts and every transition left the compartment it claims.
	Consistent bool
}

// WriteMembers stores the initial partition of a run.
func (s *Store) WriteMembers(ctx context.Context, runID string, initial epidemic.Snapshot) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return insertMembers(ctx, tx, runID, initial)
	})
	if err != nil {
		return fmt.Errorf("write members: %w", err)
	}
	return nil
}

func insertMembers(ctx context.Context, tx *sql.Tx, runID string, initial epidemic.Snapshot) error {
	type member struct {
		id contact.ID
		c  epidemic.Compartment
	}
	var members []member
	for _, c := range epidemic.Compartments {
		for _, id := range initial.Set(c) {
			members = append(members, member{id, c})
		}
	}

	return insertRows(ctx, tx, `
		INSERT INTO members (run_id, individual, initial)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, individual) DO NOTHING
	`, len(members), func(i int) []any {
		return []any{runID, string(members[i].id), members[i].c.String()}
	})
}

// ReadMembers returns the initial compartment of every individual in a run.
func (s *Store) ReadMembers(ctx context.Context, runID string) (map[contact.ID]epidemic.Compartment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT individual, initial
		FROM members
		WHERE run_id = ?
		ORDER BY individual COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := make(map[contact.ID]epidemic.Compartment)
	for rows.Next() {
		var id, initial string
		if err := rows.Scan(&id, &initial); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		c, err := parseCompartment(initial)
		if err != nil {
			return nil, err
		}
		members[contact.ID(id)] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// Replay reconstructs the final partition of a run from its initial members
// and transition trace, and cross-checks it against the stored series.
// Used to verify that a persisted run is internally consistent.
func (s *Store) Replay(ctx context.Context, runID string) (RunState, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return RunState{}, fmt.Errorf("replay: %w", err)
	}
	members, err := s.ReadMembers(ctx, runID)
	if err != nil {
		return RunState{}, fmt.Errorf("replay: %w", err)
	}
	trs, err := s.ReadTransitions(ctx, runID, "")
	if err != nil {
		return RunState{}, fmt.Errorf("replay: %w", err)
	}
	series, err := s.ReadSeries(ctx, runID)
	if err != nil {
		return RunState{}, fmt.Errorf("replay: %w", err)
	}

	state := RunState{Run: run, Transitions: len(trs), Consistent: true}
	for _, tr := range trs {
		if members[tr.Individual] != tr.From {
			state.Consistent = false
		}
		members[tr.Individual] = tr.To
	}

	ids := make([]contact.ID, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		switch members[id] {
		case epidemic.Susceptible:
			state.Final.Susceptible = append(state.Final.Susceptible, id)
		case epidemic.Exposed:
			state.Final.Exposed = append(state.Final.Exposed, id)
		case epidemic.Infectious:
			state.Final.Infectious = append(state.Final.Infectious, id)
		case epidemic.Recovered:
			state.Final.Recovered = append(state.Final.Recovered, id)
		}
	}

	if len(series) > 0 {
		last := series[len(series)-1]
		state.Final.Moment = last.Moment
		if state.Final.Counts() != last.Counts {
			state.Consistent = false
		}
	}
	if len(members) != run.Population {
		state.Consistent = false
	}
	return state, nil
}
