package store

import (
	"fmt"

	"github.com/roach88/contagion/internal/contact"
	"github.com/roach88/contagion/internal/epidemic"
	"github.com/roach88/contagion/internal/fingerprint"
)

// Run is the persisted header of one simulation run.
type Run struct {
	// ID is the caller-assigned run identifier (a UUIDv7 from the CLI).
	ID string `json:"id"`

	// Fingerprint identifies the run's inputs; see package fingerprint.
	Fingerprint string `json:"fingerprint"`

	// TableHash identifies the contact table alone, so runs over the same
	// table can be grouped.
	TableHash string `json:"table_hash"`

	// Label is a free-form tag, e.g. the contacts file name.
	Label string `json:"label,omitempty"`

	Seed       uint64          `json:"seed"`
	Params     epidemic.Params `json:"params"`
	Population int             `json:"population"`
	Contacts   int             `json:"contacts"`
}

// NewRun builds a run header and computes its fingerprints.
func NewRun(id, label string, params epidemic.Params, seed uint64, pop epidemic.Population, table contact.Table) (Run, error) {
	fp, err := fingerprint.Run(params, seed, pop, table)
	if err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}
	th, err := fingerprint.Table(table)
	if err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}

	members := make(map[contact.ID]struct{}, len(pop.Susceptible)+len(pop.Infectious))
	for _, id := range pop.Susceptible {
		members[id] = struct{}{}
	}
	for _, id := range pop.Infectious {
		members[id] = struct{}{}
	}

	return Run{
		ID:          id,
		Fingerprint: fp,
		TableHash:   th,
		Label:       label,
		Seed:        seed,
		Params:      params,
		Population:  len(members),
		Contacts:    len(table),
	}, nil
}
