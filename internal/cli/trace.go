package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/contagion/internal/contact"
	"github.com/roach88/contagion/internal/epidemic"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database   string
	Individual string // optional - filter to one individual
}

// TraceEvent is one transition in the trace timeline.
type TraceEvent struct {
	Moment     float64        `json:"moment"`
	Individual contact.ID     `json:"individual"`
	From       string         `json:"from"`
	To         string         `json:"to"`
	Cause      epidemic.Cause `json:"cause"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID      string       `json:"run_id"`
	Individual contact.ID   `json:"individual,omitempty"`
	Timeline   []TraceEvent `json:"timeline"`
	Stats      TraceStats   `json:"stats"`
}

// TraceStats counts the timeline's transitions by cause.
type TraceStats struct {
	Transitions int `json:"transitions"`
	Contact     int `json:"contact"`
	Clock       int `json:"clock"`
}

// WriteText implements TextWriter.
func (r TraceResult) WriteText(w io.Writer) error {
	if len(r.Timeline) == 0 {
		if r.Individual != "" {
			_, err := fmt.Fprintf(w, "No transitions for %s in run %s\n", r.Individual, r.RunID)
			return err
		}
		_, err := fmt.Fprintf(w, "No transitions in run %s\n", r.RunID)
		return err
	}

	fmt.Fprintf(w, "Run: %s\n\n", r.RunID)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "moment\tindividual\ttransition\tcause")
	for _, e := range r.Timeline {
		fmt.Fprintf(tw, "%g\t%s\t%s -> %s\t%s\n", e.Moment, e.Individual, e.From, e.To, e.Cause)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d transitions (%d contact, %d clock)\n",
		r.Stats.Transitions, r.Stats.Contact, r.Stats.Clock)
	return err
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <run-id>",
		Short: "Show the transition trace of a stored run",
		Long: `Show every compartment change of a stored run in the order it was
applied, with the moment and whether a contact or a clock caused it.

Examples:
  contagion trace 0192f4c1-7a55-7c3e-9d1e-5b0c6a8e2f11 --db runs.db
  contagion trace 0192f4c1-7a55-7c3e-9d1e-5b0c6a8e2f11 --db runs.db --individual 42
  contagion trace 0192f4c1-7a55-7c3e-9d1e-5b0c6a8e2f11 --db runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Individual, "individual", "", "only show transitions of this individual")

	return cmd
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	ctx := cmdContext(cmd)

	st, err := openStore(opts.Database)
	if err != nil {
		return out.fail(ExitCommandError, storeErrorCode(err), "failed to open database", err)
	}
	defer closeStore(st, opts.logger())

	// Check the run exists so an unknown ID is not reported as an empty trace.
	if _, err := st.ReadRun(ctx, runID); err != nil {
		return out.fail(ExitCommandError, storeErrorCode(err), fmt.Sprintf("failed to read run %s", runID), err)
	}

	var individual contact.ID
	if opts.Individual != "" {
		individual = contact.NormalizeID(opts.Individual)
	}
	trs, err := st.ReadTransitions(ctx, runID, individual)
	if err != nil {
		return out.fail(ExitCommandError, ErrCodeStore, "failed to read transitions", err)
	}

	return out.Success(buildTrace(runID, individual, trs))
}

// buildTrace converts stored transitions to a trace result.
func buildTrace(runID string, individual contact.ID, trs []epidemic.Transition) TraceResult {
	result := TraceResult{
		RunID:      runID,
		Individual: individual,
		Timeline:   make([]TraceEvent, 0, len(trs)),
	}
	for _, tr := range trs {
		result.Timeline = append(result.Timeline, TraceEvent{
			Moment:     tr.Moment,
			Individual: tr.Individual,
			From:       tr.From.String(),
			To:         tr.To.String(),
			Cause:      tr.Cause,
		})
		switch tr.Cause {
		case epidemic.CauseContact:
			result.Stats.Contact++
		case epidemic.CauseClock:
			result.Stats.Clock++
		}
	}
	result.Stats.Transitions = len(trs)
	return result
}
