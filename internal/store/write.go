package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/contagion/internal/epidemic"
)

// WriteRun inserts a run header and returns the ID stored for its
// fingerprint. Uses ON CONFLICT(fingerprint) DO NOTHING: writing a run
// whose inputs were already stored returns the earlier run's ID and
// created=false.
func (s *Store) WriteRun(ctx context.Context, run Run) (id string, created bool, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		id, created, err = insertRun(ctx, tx, run)
		return err
	})
	if err != nil {
		return "", false, fmt.Errorf("write run: %w", err)
	}
	return id, created, nil
}

// WriteRunResult stores a run header together with its members, snapshots
// and transitions in one transaction. Either the whole run is stored or
// nothing is, so a run reported as existing is always complete.
func (s *Store) WriteRunResult(ctx context.Context, run Run, res *epidemic.Result) (id string, created bool, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		id, created, err = insertRun(ctx, tx, run)
		if err != nil || !created {
			return err
		}
		return insertResult(ctx, tx, id, res)
	})
	if err != nil {
		return "", false, fmt.Errorf("write run %s: %w", run.ID, err)
	}
	return id, created, nil
}

func insertRun(ctx context.Context, tx *sql.Tx, run Run) (string, bool, error) {
	params, err := marshalParams(run.Params)
	if err != nil {
		return "", false, err
	}
	mode := run.Params.WindowMode
	if mode == "" {
		mode = epidemic.WindowCorrected
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, fingerprint, table_hash, label, seed, infect_rate, t_incubation, t_recovery, t_loss_immunity, window_mode, params, population, contacts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`,
		run.ID,
		run.Fingerprint,
		run.TableHash,
		run.Label,
		formatSeed(run.Seed),
		run.Params.InfectRate,
		run.Params.TIncubation,
		run.Params.TRecovery,
		run.Params.TLossImmunity,
		string(mode),
		params,
		run.Population,
		run.Contacts,
	)
	if err != nil {
		return "", false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", false, err
	}
	if n == 1 {
		return run.ID, true, nil
	}

	var id string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM runs WHERE fingerprint = ?`, run.Fingerprint).Scan(&id); err != nil {
		return "", false, fmt.Errorf("lookup existing: %w", err)
	}
	return id, false, nil
}

// WriteSnapshots stores the size series of a run in a single transaction.
// Row idx is the snapshot's position; rewrites of an existing idx are
// ignored.
func (s *Store) WriteSnapshots(ctx context.Context, runID string, snaps []epidemic.Snapshot) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return insertSnapshots(ctx, tx, runID, snaps)
	})
	if err != nil {
		return fmt.Errorf("write snapshots: %w", err)
	}
	return nil
}

func insertSnapshots(ctx context.Context, tx *sql.Tx, runID string, snaps []epidemic.Snapshot) error {
	return insertRows(ctx, tx, `
		INSERT INTO snapshots (run_id, idx, moment, susceptible, exposed, infectious, recovered)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, idx) DO NOTHING
	`, len(snaps), func(i int) []any {
		c := snaps[i].Counts()
		return []any{runID, i, snaps[i].Moment, c[0], c[1], c[2], c[3]}
	})
}

// WriteTransitions stores a run's transition trace in a single transaction,
// preserving application order in idx.
func (s *Store) WriteTransitions(ctx context.Context, runID string, trs []epidemic.Transition) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return insertTransitions(ctx, tx, runID, trs)
	})
	if err != nil {
		return fmt.Errorf("write transitions: %w", err)
	}
	return nil
}

func insertTransitions(ctx context.Context, tx *sql.Tx, runID string, trs []epidemic.Transition) error {
	return insertRows(ctx, tx, `
		INSERT INTO transitions (run_id, idx, individual, from_state, to_state, moment, cause)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, idx) DO NOTHING
	`, len(trs), func(i int) []any {
		tr := trs[i]
		return []any{runID, i, string(tr.Individual), tr.From.String(), tr.To.String(), tr.Moment, string(tr.Cause)}
	})
}

// WriteResult stores the initial members, snapshots and transitions of res
// under runID in one transaction.
func (s *Store) WriteResult(ctx context.Context, runID string, res *epidemic.Result) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return insertResult(ctx, tx, runID, res)
	})
	if err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

func insertResult(ctx context.Context, tx *sql.Tx, runID string, res *epidemic.Result) error {
	if len(res.Snapshots) > 0 {
		if err := insertMembers(ctx, tx, runID, res.Snapshots[0]); err != nil {
			return fmt.Errorf("members: %w", err)
		}
	}
	if err := insertSnapshots(ctx, tx, runID, res.Snapshots); err != nil {
		return fmt.Errorf("snapshots: %w", err)
	}
	if err := insertTransitions(ctx, tx, runID, res.Transitions); err != nil {
		return fmt.Errorf("transitions: %w", err)
	}
	return nil
}

// withTx runs fn inside one transaction, committing only if fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// insertRows executes query once per row.
func insertRows(ctx context.Context, tx *sql.Tx, query string, n int, row func(i int) []any) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}
