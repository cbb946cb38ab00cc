package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/contagion/internal/epidemic"
	"github.com/roach88/contagion/internal/store"
)

// RunsOptions holds flags for the runs command group.
type RunsOptions struct {
	*RootOptions
	Database string
}

// RunList is the output of runs list.
type RunList struct {
	Runs []store.Run `json:"runs"`
}

// WriteText implements TextWriter.
func (l RunList) WriteText(w io.Writer) error {
	if len(l.Runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs stored.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tSEED\tPOPULATION\tCONTACTS\tFINGERPRINT")
	for _, r := range l.Runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", r.ID, r.Label, r.Seed, r.Population, r.Contacts, r.Fingerprint[:12])
	}
	return tw.Flush()
}

// RunDetail is the output of runs show.
type RunDetail struct {
	Run    store.Run        `json:"run"`
	Series []epidemic.Point `json:"series"`
}

// WriteText implements TextWriter.
func (d RunDetail) WriteText(w io.Writer) error {
	r := d.Run
	fmt.Fprintf(w, "Run:         %s\n", r.ID)
	if r.Label != "" {
		fmt.Fprintf(w, "Label:       %s\n", r.Label)
	}
	fmt.Fprintf(w, "Fingerprint: %s\n", r.Fingerprint)
	fmt.Fprintf(w, "Table:       %s (%d contacts)\n", r.TableHash, r.Contacts)
	fmt.Fprintf(w, "Population:  %d\n", r.Population)
	fmt.Fprintf(w, "Seed:        %d\n", r.Seed)
	fmt.Fprintf(w, "Params:      infect_rate=%g t_incubation=%g t_recovery=%g t_loss_immunity=%g window_mode=%s\n",
		r.Params.InfectRate, r.Params.TIncubation, r.Params.TRecovery, r.Params.TLossImmunity, r.Params.WindowMode)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "moment\tS\tE\tI\tR")
	for _, p := range d.Series {
		fmt.Fprintf(tw, "%g\t%d\t%d\t%d\t%d\n", p.Moment, p.Counts[0], p.Counts[1], p.Counts[2], p.Counts[3])
	}
	return tw.Flush()
}

// NewRunsCommand creates the runs command group.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored runs",
		Long: `Inspect runs stored with "contagion run --db".

Examples:
  contagion runs list --db runs.db
  contagion runs show 0192f4c1-7a55-7c3e-9d1e-5b0c6a8e2f11 --db runs.db`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List stored runs in creation order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsList(opts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show <run-id>",
		Short:         "Show a stored run and its size series",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(opts, args[0], cmd)
		},
	})

	return cmd
}

func runRunsList(opts *RunsOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	st, err := openStore(opts.Database)
	if err != nil {
		return out.fail(ExitCommandError, storeErrorCode(err), "failed to open database", err)
	}
	defer closeStore(st, opts.logger())

	runs, err := st.ListRuns(cmdContext(cmd))
	if err != nil {
		return out.fail(ExitCommandError, ErrCodeStore, "failed to list runs", err)
	}
	return out.Success(RunList{Runs: runs})
}

func runRunsShow(opts *RunsOptions, id string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	ctx := cmdContext(cmd)

	st, err := openStore(opts.Database)
	if err != nil {
		return out.fail(ExitCommandError, storeErrorCode(err), "failed to open database", err)
	}
	defer closeStore(st, opts.logger())

	run, err := st.ReadRun(ctx, id)
	if err != nil {
		return out.fail(ExitCommandError, storeErrorCode(err), fmt.Sprintf("failed to read run %s", id), err)
	}
	series, err := st.ReadSeries(ctx, id)
	if err != nil {
		return out.fail(ExitCommandError, ErrCodeStore, "failed to read series", err)
	}
	return out.Success(RunDetail{Run: run, Series: series})
}

// errNoDatabase is returned by openStore for a missing database file.
var errNoDatabase = errors.New("database not found")

// openStore opens an existing database. Unlike store.Open it never creates
// one, so a mistyped path is reported instead of read as empty.
func openStore(path string) (*store.Store, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", errNoDatabase, path)
	}
	return store.Open(path)
}

func closeStore(st *store.Store, log *slog.Logger) {
	if err := st.Close(); err != nil {
		log.Error("error closing database", "error", err)
	}
}

// storeErrorCode maps missing databases and runs to ErrCodeNotFound.
func storeErrorCode(err error) string {
	if errors.Is(err, errNoDatabase) || errors.Is(err, sql.ErrNoRows) {
		return ErrCodeNotFound
	}
	return ErrCodeStore
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
