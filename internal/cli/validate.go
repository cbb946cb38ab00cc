package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/contagion/internal/contact"
)

// ValidationProblem is one offending record.
type ValidationProblem struct {
	Record int            `json:"record"`
	Reason contact.Reason `json:"reason"`
	Line   string         `json:"line"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                `json:"valid"`
	Contacts    int                 `json:"contacts"`
	Individuals int                 `json:"individuals"`
	Boundaries  int                 `json:"boundaries"`
	Missing     []contact.ID        `json:"missing_infectious,omitempty"`
	Problems    []ValidationProblem `json:"problems,omitempty"`
}

// WriteText implements TextWriter.
func (r ValidationResult) WriteText(w io.Writer) error {
	for _, p := range r.Problems {
		fmt.Fprintf(w, "✗ record %d: %s (%s)\n", p.Record, p.Reason, p.Line)
	}
	for _, id := range r.Missing {
		fmt.Fprintf(w, "! infectious individual %s has no contacts\n", id)
	}
	if !r.Valid {
		_, err := fmt.Fprintf(w, "%d problem(s) in %d contacts\n", len(r.Problems), r.Contacts)
		return err
	}
	_, err := fmt.Fprintf(w, "✓ Table valid: %d contacts, %d individuals, %d boundaries\n",
		r.Contacts, r.Individuals, r.Boundaries)
	return err
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	in := &InputOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a contact table without running it",
		Long: `Check a contact table for malformed records and ordering.

Reports every record that is non-finite, a self-contact, ends before it
starts, or ends before the record above it. Infectious individuals that
appear in no contact are listed as warnings.

Exit codes:
  0 - Table valid
  1 - Table has problems
  2 - Command error (file not found, unparsable CSV)`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, in, cmd)
		},
	}

	in.bind(cmd)
	return cmd
}

func runValidate(opts *RootOptions, in *InputOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	table, err := LoadTable(in.Contacts, in.Raw)
	if err != nil {
		return out.fail(ExitCommandError, loadErrorCode(err), "failed to load contacts", err)
	}
	out.VerboseLog("Read %d contacts from %s", len(table), in.Contacts)

	result := ValidationResult{
		Contacts:    len(table),
		Individuals: len(table.Individuals()),
		Boundaries:  len(table.Boundaries()),
	}
	for _, p := range table.Problems() {
		result.Problems = append(result.Problems, ValidationProblem{
			Record: p.Index,
			Reason: p.Reason,
			Line:   fmt.Sprintf("%s,%s,%g,%g", p.Record.A, p.Record.B, p.Record.Start, p.Record.End),
		})
	}
	result.Valid = len(result.Problems) == 0

	known := make(map[contact.ID]bool)
	for _, id := range table.Individuals() {
		known[id] = true
	}
	for _, raw := range in.Infectious {
		if id := contact.NormalizeID(raw); !known[id] {
			result.Missing = append(result.Missing, id)
		}
	}

	if !result.Valid {
		msg := fmt.Sprintf("%d invalid record(s)", len(result.Problems))
		if err := out.Failure(result, ErrCodePrecondition, msg); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return out.Success(result)
}
