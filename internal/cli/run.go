package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/contagion/internal/config"
	"github.com/roach88/contagion/internal/ensemble"
	"github.com/roach88/contagion/internal/epidemic"
	"github.com/roach88/contagion/internal/fingerprint"
	"github.com/roach88/contagion/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Input InputOptions

	Config     string
	Seed       uint64
	Runs       int
	Workers    int
	WindowMode string
	Database   string
	Label      string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs RunIDGenerator
}

// RunReport is the output of the run command.
type RunReport struct {
	Params     epidemic.Params `json:"params"`
	Population int             `json:"population"`
	Contacts   int             `json:"contacts"`
	Runs       []RunSummary    `json:"runs"`

	// Series is the size series of a single run.
	Series []epidemic.Point `json:"series,omitempty"`

	// Mean is the averaged series of an ensemble.
	Mean []ensemble.MeanPoint `json:"mean,omitempty"`
}

// RunSummary describes one seed of a run.
type RunSummary struct {
	Seed        uint64          `json:"seed"`
	Fingerprint string          `json:"fingerprint"`
	ID          string          `json:"id,omitempty"`
	Stored      bool            `json:"stored"`
	Final       epidemic.Counts `json:"final"`
	Transitions int             `json:"transitions"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Propagate an epidemic over a contact table",
		Long: `Propagate an SEIR epidemic over a contact table.

Every individual in the table starts susceptible except those named with
--infectious. Settings are read from defaults, then --config (YAML or CUE),
then CONTAGION_* environment variables, then flags.

With --runs N the model is run for seeds seed..seed+N-1 in parallel and
the mean series is reported. With --db each run is stored in SQLite; a run
whose inputs were already stored is not written again.

Examples:
  contagion run --contacts contacts.csv --infectious 42
  contagion run --contacts raw.csv --raw --infectious 3,17 --runs 20 --seed 1
  contagion run --contacts contacts.csv --infectious 42 --config model.cue --db runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, cmd)
		},
	}

	opts.Input.bind(cmd)
	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (.yaml, .yml or .cue)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed of the first run")
	cmd.Flags().IntVar(&opts.Runs, "runs", 1, "number of seeds to run")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent runs (0 = one per CPU)")
	cmd.Flags().StringVar(&opts.WindowMode, "window-mode", "", "infection window on recovery (corrected|legacy|degenerate)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "store runs in this SQLite database")
	cmd.Flags().StringVar(&opts.Label, "label", "", "label for stored runs (default: contacts file name)")

	return cmd
}

// resolveConfig layers defaults, the config file, the environment and the
// flags the user set explicitly.
func resolveConfig(opts *RunOptions, cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = opts.Seed
	}
	if flags.Changed("runs") {
		cfg.Runs = opts.Runs
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.Workers
	}
	if flags.Changed("window-mode") {
		cfg.WindowMode = opts.WindowMode
	}
	return cfg, cfg.Validate()
}

func runSimulation(opts *RunOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	log := opts.logger()

	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		return out.fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}

	in, err := LoadInputs(opts.Input)
	if err != nil {
		return out.fail(ExitCommandError, loadErrorCode(err), "failed to load inputs", err)
	}
	out.VerboseLog("Loaded %d contacts, %d individuals", len(in.Table), len(in.Population.Susceptible)+len(in.Population.Infectious))

	ctx, stop := signalContext(cmd)
	defer stop()

	params := cfg.Params()
	ens, err := ensemble.Run(ctx, in.Table, in.Population, params, cfg.Seeds(),
		ensemble.WithWorkers(cfg.Workers),
		ensemble.WithLogger(log))
	if err != nil {
		return out.fail(ExitFailure, propagationErrorCode(err), "propagation failed", err)
	}

	report := RunReport{
		Params:     params,
		Population: ens.Members[0].Result.Population,
		Contacts:   len(in.Table),
	}
	for _, m := range ens.Members {
		fp, err := fingerprint.Run(params, m.Seed, in.Population, in.Table)
		if err != nil {
			return out.fail(ExitFailure, ErrCodeGeneric, "failed to fingerprint run", err)
		}
		report.Runs = append(report.Runs, RunSummary{
			Seed:        m.Seed,
			Fingerprint: fp,
			Final:       m.Result.Final().Counts(),
			Transitions: len(m.Result.Transitions),
		})
	}
	if len(ens.Members) == 1 {
		report.Series = ens.Members[0].Result.Series()
	} else {
		report.Mean = ens.Mean
	}

	if opts.Database != "" {
		if err := storeRuns(ctx, opts, cfg, in, ens, report.Runs); err != nil {
			return out.fail(ExitCommandError, ErrCodeStore, "failed to store runs", err)
		}
	}

	return out.Success(report)
}

// storeRuns persists every member, filling in IDs on summaries. Each run is
// written in one transaction. Runs whose fingerprint is already stored keep
// the existing ID and are not rewritten.
func storeRuns(ctx context.Context, opts *RunOptions, cfg config.Config, in *Inputs, ens *ensemble.Ensemble, summaries []RunSummary) error {
	log := opts.logger()

	st, err := store.Open(opts.Database)
	if err != nil {
		return err
	}
	defer closeStore(st, log)

	ids := opts.RunIDs
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	label := opts.Label
	if label == "" {
		label = filepath.Base(opts.Input.Contacts)
	}

	for i, m := range ens.Members {
		run, err := store.NewRun(ids.Generate(), label, cfg.Params(), m.Seed, in.Population, in.Table)
		if err != nil {
			return err
		}
		id, created, err := st.WriteRunResult(ctx, run, m.Result)
		if err != nil {
			return err
		}
		summaries[i].ID = id
		if !created {
			log.Info("run already stored", "id", id, "seed", m.Seed)
			continue
		}
		summaries[i].Stored = true
		log.Info("run stored", "id", id, "seed", m.Seed)
	}
	return nil
}

// signalContext derives a context from the command's that is cancelled on
// SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// WriteText renders the report as aligned columns.
func (r RunReport) WriteText(w io.Writer) error {
	fmt.Fprintf(w, "Population: %d  Contacts: %d  Runs: %d\n", r.Population, r.Contacts, len(r.Runs))
	for _, s := range r.Runs {
		line := fmt.Sprintf("seed %d  final S=%d E=%d I=%d R=%d  transitions=%d  fingerprint=%s",
			s.Seed, s.Final[0], s.Final[1], s.Final[2], s.Final[3], s.Transitions, s.Fingerprint[:12])
		if s.ID != "" {
			line += "  id=" + s.ID
			if !s.Stored {
				line += " (existing)"
			}
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "moment\tS\tE\tI\tR")
	for _, p := range r.Series {
		fmt.Fprintf(tw, "%g\t%d\t%d\t%d\t%d\n", p.Moment, p.Counts[0], p.Counts[1], p.Counts[2], p.Counts[3])
	}
	for _, p := range r.Mean {
		fmt.Fprintf(tw, "%g\t%.3f\t%.3f\t%.3f\t%.3f\n", p.Moment, p.Counts[0], p.Counts[1], p.Counts[2], p.Counts[3])
	}
	return tw.Flush()
}
