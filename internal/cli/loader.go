package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/contagion/internal/contact"
	"github.com/roach88/contagion/internal/epidemic"
)

// InputOptions are the flags shared by commands that read a contact table.
type InputOptions struct {
	Contacts    string   // path to the contacts CSV
	Raw         bool     // contacts file holds raw samples to normalize first
	Infectious  []string // initially infectious IDs
	Susceptible []string // extra susceptible IDs that appear in no contact
}

// bind registers the input flags on cmd.
func (o *InputOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Contacts, "contacts", "", "path to contacts CSV (required)")
	_ = cmd.MarkFlagRequired("contacts")
	cmd.Flags().BoolVar(&o.Raw, "raw", false, "contacts file holds raw time,id_1,id_2,contact_duration samples")
	cmd.Flags().StringSliceVar(&o.Infectious, "infectious", nil, "initially infectious individuals (comma-separated)")
	cmd.Flags().StringSliceVar(&o.Susceptible, "susceptible", nil, "additional susceptible individuals with no contacts")
}

// Inputs are a loaded contact table and the initial partition built from it.
type Inputs struct {
	Table      contact.Table
	Population epidemic.Population
}

// LoadError represents an error that occurred while reading inputs.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadTable reads the contacts file. Raw sample files are normalized into a
// table sorted by end moment; table files are returned in file order.
func LoadTable(path string, raw bool) (contact.Table, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("contacts file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "opening contacts file", Err: err}
	}
	defer f.Close()

	if !raw {
		table, err := contact.ReadTableCSV(f)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeParse, Message: path, Err: err}
		}
		return table, nil
	}

	samples, err := contact.ReadSamplesCSV(f)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: path, Err: err}
	}
	table, err := contact.Normalize(samples)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: path, Err: err}
	}
	return table, nil
}

// LoadInputs reads the table and derives the population: the listed
// infectious IDs, and every other ID in the table or in Susceptible.
func LoadInputs(o InputOptions) (*Inputs, error) {
	if len(o.Infectious) == 0 {
		return nil, &LoadError{Code: ErrCodeConfig, Message: "at least one --infectious individual is required"}
	}

	table, err := LoadTable(o.Contacts, o.Raw)
	if err != nil {
		return nil, err
	}
	return &Inputs{Table: table, Population: BuildPopulation(table, o.Infectious, o.Susceptible)}, nil
}

// BuildPopulation partitions the table's individuals plus extra into
// infectious and susceptible sets. IDs are normalized and de-duplicated; an
// ID listed as infectious is never susceptible.
func BuildPopulation(table contact.Table, infectious, extra []string) epidemic.Population {
	inf := make(map[contact.ID]struct{}, len(infectious))
	var pop epidemic.Population
	for _, raw := range infectious {
		id := contact.NormalizeID(raw)
		if _, dup := inf[id]; dup || id == "" {
			continue
		}
		inf[id] = struct{}{}
		pop.Infectious = append(pop.Infectious, id)
	}

	seen := make(map[contact.ID]struct{})
	add := func(id contact.ID) {
		if _, ok := inf[id]; ok || id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		pop.Susceptible = append(pop.Susceptible, id)
	}
	for _, id := range table.Individuals() {
		add(id)
	}
	for _, raw := range extra {
		add(contact.NormalizeID(raw))
	}

	sort.Slice(pop.Infectious, func(i, j int) bool { return pop.Infectious[i] < pop.Infectious[j] })
	sort.Slice(pop.Susceptible, func(i, j int) bool { return pop.Susceptible[i] < pop.Susceptible[j] })
	return pop
}

// loadErrorCode returns the CLI error code carried by err.
func loadErrorCode(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	return ErrCodeGeneric
}

// propagationErrorCode maps propagator errors to CLI error codes.
func propagationErrorCode(err error) string {
	switch {
	case epidemic.IsPreconditionError(err):
		return ErrCodePrecondition
	case epidemic.IsParameterError(err):
		return ErrCodeParameter
	case epidemic.IsInvariantError(err):
		return ErrCodeInvariant
	}
	return ErrCodeGeneric
}
