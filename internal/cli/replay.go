package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/contagion/internal/contact"
	"github.com/roach88/contagion/internal/epidemic"
	"github.com/roach88/contagion/internal/fingerprint"
	"github.com/roach88/contagion/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
	Contacts string // optional - table to re-propagate against
	Raw      bool
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID       string          `json:"run_id"`
	Seed        uint64          `json:"seed"`
	Transitions int             `json:"transitions"`
	Final       epidemic.Counts `json:"final"`
	Consistent  bool            `json:"consistent"`

	// Reproduced is set only when a contact table was given: the run was
	// propagated again and matched its stored series and trace.
	Reproduced *bool `json:"reproduced,omitempty"`

	// Skipped explains why re-propagation did not happen.
	Skipped string `json:"skipped,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs          []ReplayRunResult `json:"runs"`
	TotalRuns     int               `json:"total_runs"`
	AllConsistent bool              `json:"all_consistent"`
}

// WriteText implements TextWriter.
func (r ReplayResult) WriteText(w io.Writer) error {
	if r.TotalRuns == 0 {
		_, err := fmt.Fprintln(w, "No runs found in database.")
		return err
	}

	for _, run := range r.Runs {
		mark := "✓"
		if !run.ok() {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s  seed=%d  transitions=%d  final S=%d E=%d I=%d R=%d",
			mark, run.RunID, run.Seed, run.Transitions, run.Final[0], run.Final[1], run.Final[2], run.Final[3])
		if !run.Consistent {
			fmt.Fprint(w, "  (stored trace does not replay to stored series)")
		}
		switch {
		case run.Reproduced != nil && *run.Reproduced:
			fmt.Fprint(w, "  (reproduced)")
		case run.Reproduced != nil:
			fmt.Fprint(w, "  (re-propagation differs)")
		case run.Skipped != "":
			fmt.Fprintf(w, "  (not re-propagated: %s)", run.Skipped)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w)
	if r.AllConsistent {
		_, err := fmt.Fprintf(w, "✓ All %d run(s) consistent\n", r.TotalRuns)
		return err
	}
	_, err := fmt.Fprintln(w, "✗ Replay found inconsistent runs")
	return err
}

func (r ReplayRunResult) ok() bool {
	return r.Consistent && (r.Reproduced == nil || *r.Reproduced)
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Verify stored runs replay consistently",
		Long: `Rebuild each stored run from its initial members and transition trace and
check the result against the stored size series.

With --contacts, runs over that table are also propagated again from their
stored parameters and seed, and the new series and trace must equal the
stored ones. Runs over a different table are reported as skipped.

Exit codes:
  0 - All runs are consistent
  1 - A run does not replay or does not reproduce
  2 - Command error (database not found, etc.)

Examples:
  contagion replay --db runs.db
  contagion replay --db runs.db --run 0192f4c1-7a55-7c3e-9d1e-5b0c6a8e2f11
  contagion replay --db runs.db --contacts contacts.csv --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")
	cmd.Flags().StringVar(&opts.Contacts, "contacts", "", "re-propagate runs over this contacts CSV")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "contacts file holds raw samples")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	log := opts.logger()
	ctx := cmdContext(cmd)

	st, err := openStore(opts.Database)
	if err != nil {
		return out.fail(ExitCommandError, storeErrorCode(err), "failed to open database", err)
	}
	defer closeStore(st, log)

	var (
		table     contact.Table
		tableHash string
	)
	if opts.Contacts != "" {
		table, err = LoadTable(opts.Contacts, opts.Raw)
		if err != nil {
			return out.fail(ExitCommandError, loadErrorCode(err), "failed to load contacts", err)
		}
		if tableHash, err = fingerprint.Table(table); err != nil {
			return out.fail(ExitCommandError, ErrCodeGeneric, "failed to fingerprint table", err)
		}
	}

	var runIDs []string
	if opts.RunID != "" {
		runIDs = []string{opts.RunID}
	} else {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return out.fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
		}
		for _, r := range runs {
			runIDs = append(runIDs, r.ID)
		}
	}

	result := ReplayResult{
		Runs:          make([]ReplayRunResult, 0, len(runIDs)),
		TotalRuns:     len(runIDs),
		AllConsistent: true,
	}
	for _, id := range runIDs {
		rr, err := replayRun(ctx, st, id, table, tableHash)
		if err != nil {
			return out.fail(ExitCommandError, storeErrorCode(err), fmt.Sprintf("failed to replay run %s", id), err)
		}
		log.Debug("run replayed", "id", id, "consistent", rr.Consistent)
		out.VerboseLog("%s: %d transitions replayed", id, rr.Transitions)
		result.Runs = append(result.Runs, rr)
		if !rr.ok() {
			result.AllConsistent = false
		}
	}

	if !result.AllConsistent {
		if err := out.Failure(result, ErrCodeInconsistent, "replay found inconsistent runs"); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "replay found inconsistent runs")
	}
	return out.Success(result)
}

// replayRun checks one run. When table is non-nil and matches the run's
// table hash, the run is also propagated again and compared row for row.
func replayRun(ctx context.Context, st *store.Store, runID string, table contact.Table, tableHash string) (ReplayRunResult, error) {
	state, err := st.Replay(ctx, runID)
	if err != nil {
		return ReplayRunResult{}, err
	}

	rr := ReplayRunResult{
		RunID:       runID,
		Seed:        state.Run.Seed,
		Transitions: state.Transitions,
		Final:       state.Final.Counts(),
		Consistent:  state.Consistent,
	}
	if table == nil {
		return rr, nil
	}
	if tableHash != state.Run.TableHash {
		rr.Skipped = "different contact table"
		return rr, nil
	}

	same, err := reproduce(ctx, st, state.Run, table)
	if err != nil {
		return ReplayRunResult{}, err
	}
	rr.Reproduced = &same
	return rr, nil
}

// reproduce propagates a stored run again from its members, parameters and
// seed and reports whether the series and trace equal the stored ones.
func reproduce(ctx context.Context, st *store.Store, run store.Run, table contact.Table) (bool, error) {
	members, err := st.ReadMembers(ctx, run.ID)
	if err != nil {
		return false, err
	}
	var pop epidemic.Population
	for id, c := range members {
		switch c {
		case epidemic.Susceptible:
			pop.Susceptible = append(pop.Susceptible, id)
		case epidemic.Infectious:
			pop.Infectious = append(pop.Infectious, id)
		}
	}
	slices.Sort(pop.Susceptible)
	slices.Sort(pop.Infectious)

	prop, err := epidemic.New(run.Params, epidemic.WithSeed(run.Seed))
	if err != nil {
		return false, err
	}
	res, err := prop.Run(ctx, table, pop)
	if err != nil {
		return false, err
	}

	series, err := st.ReadSeries(ctx, run.ID)
	if err != nil {
		return false, err
	}
	trs, err := st.ReadTransitions(ctx, run.ID, "")
	if err != nil {
		return false, err
	}
	return slices.Equal(series, res.Series()) && slices.Equal(trs, res.Transitions), nil
}
