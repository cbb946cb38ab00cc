package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/contagion/internal/contact"
	"github.com/roach88/contagion/internal/epidemic"
)

const runColumns = `id, fingerprint, table_hash, label, seed, infect_rate, t_incubation, t_recovery, t_loss_immunity, window_mode, population, contacts`

// ReadRun retrieves a run header by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// FindRun retrieves the run stored for a fingerprint.
// Returns sql.ErrNoRows if not found.
func (s *Store) FindRun(ctx context.Context, fp string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE fingerprint = ?`, fp)
	return scanRun(row)
}

// ListRuns returns every run in insertion order.
// Returns an empty slice (not nil) if the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadSeries returns the [S, E, I, R] series of a run ordered by snapshot
// index.
func (s *Store) ReadSeries(ctx context.Context, runID string) ([]epidemic.Point, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT moment, susceptible, exposed, infectious, recovered
		FROM snapshots
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	series := []epidemic.Point{}
	for rows.Next() {
		var p epidemic.Point
		if err := rows.Scan(&p.Moment, &p.Counts[0], &p.Counts[1], &p.Counts[2], &p.Counts[3]); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		series = append(series, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return series, nil
}

// ReadTransitions returns a run's transitions in application order. A
// non-empty individual restricts the trace to that individual.
func (s *Store) ReadTransitions(ctx context.Context, runID string, individual contact.ID) ([]epidemic.Transition, error) {
	query := `
		SELECT individual, from_state, to_state, moment, cause
		FROM transitions
		WHERE run_id = ?`
	args := []any{runID}
	if individual != "" {
		query += ` AND individual = ?`
		args = append(args, string(individual))
	}
	query += ` ORDER BY idx ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	trs := []epidemic.Transition{}
	for rows.Next() {
		var (
			tr           epidemic.Transition
			id, from, to string
			cause        string
		)
		if err := rows.Scan(&id, &from, &to, &tr.Moment, &cause); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.Individual = contact.ID(id)
		tr.Cause = epidemic.Cause(cause)
		if tr.From, err = parseCompartment(from); err != nil {
			return nil, err
		}
		if tr.To, err = parseCompartment(to); err != nil {
			return nil, err
		}
		trs = append(trs, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transitions: %w", err)
	}
	return trs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		run  Run
		seed string
		mode string
	)
	err := sc.Scan(
		&run.ID,
		&run.Fingerprint,
		&run.TableHash,
		&run.Label,
		&seed,
		&run.Params.InfectRate,
		&run.Params.TIncubation,
		&run.Params.TRecovery,
		&run.Params.TLossImmunity,
		&mode,
		&run.Population,
		&run.Contacts,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	run.Params.WindowMode = epidemic.WindowMode(mode)
	if run.Seed, err = parseSeed(seed); err != nil {
		return Run{}, err
	}
	return run, nil
}
