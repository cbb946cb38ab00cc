package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/contagion/internal/contact"
)

// NormalizeOptions holds flags for the normalize command.
type NormalizeOptions struct {
	*RootOptions
	Output string
	Shift  float64
	Repeat int
	Period  float64
	Swap    []string
	Shuffle bool
	Seed    uint64
}

// NormalizeResult summarizes a normalized table.
type NormalizeResult struct {
	Samples  int     `json:"samples"`
	Contacts int     `json:"contacts"`
	First    float64 `json:"first_moment"`
	Last     float64 `json:"last_moment"`
	Output   string  `json:"output"`
}

// WriteText implements TextWriter.
func (r NormalizeResult) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Normalized %d samples into %d contacts spanning [%g, %g] -> %s\n",
		r.Samples, r.Contacts, r.First, r.Last, r.Output)
	return err
}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NormalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "normalize <samples.csv>",
		Short: "Fold raw proximity samples into a contact table",
		Long: `Fold raw proximity samples (time, id_1, id_2, contact_duration) into a
contact table sorted by end moment.

Consecutive samples of the same pair are merged into one contact. The table
can be shifted in time, repeated, and have two individuals swapped. With
--shuffle each repeated copy has its own randomly drawn pair swapped.

Examples:
  contagion normalize samples.csv -o contacts.csv
  contagion normalize samples.csv -o week.csv --repeat 6 --period 86400
  contagion normalize samples.csv -o swapped.csv --swap 3,17
  contagion normalize samples.csv -o shuffled.csv --repeat 6 --period 86400 --shuffle --seed 7`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output CSV path (required)")
	_ = cmd.MarkFlagRequired("output")
	cmd.Flags().Float64Var(&opts.Shift, "shift", 0, "add this offset to every moment")
	cmd.Flags().IntVar(&opts.Repeat, "repeat", 0, "append this many shifted copies of the table")
	cmd.Flags().Float64Var(&opts.Period, "period", 0, "shift between repeated copies")
	cmd.Flags().StringSliceVar(&opts.Swap, "swap", nil, "exchange two individuals (id,id)")
	cmd.Flags().BoolVar(&opts.Shuffle, "shuffle", false, "swap a random pair in each repeated copy")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed for --shuffle pair draws")

	return cmd
}

func runNormalize(opts *NormalizeOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	if len(opts.Swap) != 0 && len(opts.Swap) != 2 {
		return out.fail(ExitCommandError, ErrCodeConfig, "--swap takes exactly two IDs", nil)
	}
	if opts.Repeat < 0 {
		return out.fail(ExitCommandError, ErrCodeConfig, "--repeat must be non-negative", nil)
	}
	if opts.Shuffle && opts.Repeat == 0 {
		return out.fail(ExitCommandError, ErrCodeConfig, "--shuffle requires --repeat", nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return out.fail(ExitCommandError, ErrCodeNotFound, "failed to read samples", err)
	}
	samples, err := contact.ReadSamplesCSV(bytes.NewReader(data))
	if err != nil {
		return out.fail(ExitCommandError, ErrCodeParse, "failed to parse samples", err)
	}
	table, err := contact.Normalize(samples)
	if err != nil {
		return out.fail(ExitCommandError, ErrCodeParse, "failed to normalize samples", err)
	}
	out.VerboseLog("Merged %d samples into %d contacts", len(samples), len(table))

	if opts.Shift != 0 {
		table = contact.Shift(table, opts.Shift)
	}
	switch {
	case opts.Shuffle:
		var pairs [][2]contact.ID
		table, pairs = contact.Shuffle(table, opts.Repeat, opts.Period, opts.Seed)
		for k, p := range pairs {
			out.VerboseLog("Copy %d: swapped %s and %s", k+1, p[0], p[1])
		}
	case opts.Repeat > 0:
		table = contact.Repeat(table, opts.Repeat, opts.Period)
	}
	if len(opts.Swap) == 2 {
		table = contact.SwapIDs(table, contact.NormalizeID(opts.Swap[0]), contact.NormalizeID(opts.Swap[1]))
	}

	var buf bytes.Buffer
	if err := contact.WriteTableCSV(&buf, table); err != nil {
		return out.fail(ExitCommandError, ErrCodeWriteFailed, "failed to encode table", err)
	}
	if err := os.WriteFile(opts.Output, buf.Bytes(), 0o644); err != nil {
		return out.fail(ExitCommandError, ErrCodeWriteFailed, "failed to write table", err)
	}

	result := NormalizeResult{
		Samples:  len(samples),
		Contacts: len(table),
		Output:   opts.Output,
	}
	if b := table.Boundaries(); len(b) > 0 {
		result.First, result.Last = b[0], b[len(b)-1]
	}
	return out.Success(result)
}
