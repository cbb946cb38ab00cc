package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/contagion/internal/contact"
	"github.com/roach88/contagion/internal/epidemic"
)

// Scenario defines a propagation scenario: a small population, a contact
// table, and the observations the run must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	Params epidemic.Params `yaml:"params"`

	// Seed seeds the propagator's random source.
	Seed uint64 `yaml:"seed"`

	Susceptible []contact.ID `yaml:"susceptible"`
	Infectious  []contact.ID `yaml:"infectious"`

	// Contacts are sorted by end moment before the run unless KeepOrder is
	// set.
	Contacts []contact.Contact `yaml:"contacts"`

	// KeepOrder passes Contacts to the propagator as written. Used with
	// ExpectError to exercise table validation.
	KeepOrder bool `yaml:"keep_order,omitempty"`

	// ExpectError is an epidemic.ErrorCode the run must fail with. When set,
	// Assertions must be empty.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the series and the transition trace.
	// Supported types: counts_at, compartment_at, final_compartment,
	// never_changes, invariants, trace_count
	Assertions []Assertion `yaml:"assertions"`
}

// Assertion is a single check evaluated after the run.
type Assertion struct {
	// Type is the assertion type.
	Type string `yaml:"type"`

	// Moment selects the snapshot valid at that moment
	// (counts_at, compartment_at).
	Moment *float64 `yaml:"moment,omitempty"`

	// Counts are the expected [S, E, I, R] sizes (counts_at).
	Counts []int `yaml:"counts,omitempty"`

	// Individual is the subject (compartment_at, final_compartment,
	// never_changes; optional filter for trace_count).
	Individual contact.ID `yaml:"individual,omitempty"`

	// Compartment is the expected compartment, short or long form
	// (compartment_at, final_compartment).
	Compartment string `yaml:"compartment,omitempty"`

	// To and Cause filter transitions (trace_count).
	To    string `yaml:"to,omitempty"`
	Cause string `yaml:"cause,omitempty"`

	// Count is the expected number of matching transitions (trace_count).
	Count int `yaml:"count,omitempty"`
}

// Assertion types.
const (
	AssertCountsAt         = "counts_at"
	AssertCompartmentAt    = "compartment_at"
	AssertFinalCompartment = "final_compartment"
	AssertNeverChanges     = "never_changes"
	AssertInvariants       = "invariants"
	AssertTraceCount       = "trace_count"
)

// Population returns the scenario's initial partition.
func (s *Scenario) Population() epidemic.Population {
	return epidemic.Population{Susceptible: s.Susceptible, Infectious: s.Infectious}
}

// Table returns the contact table the propagator receives.
func (s *Scenario) Table() contact.Table {
	table := make(contact.Table, len(s.Contacts))
	copy(table, s.Contacts)
	if !s.KeepOrder {
		table.SortByEnd()
	}
	return table
}

// LoadScenario loads a scenario from a YAML file.
// Unknown fields are rejected so that typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	normalizeScenario(&scenario)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// FindScenarios returns the *.yaml and *.yml files directly in dir whose
// name without extension matches filter (a filepath.Match pattern; empty
// matches all), in name order.
func FindScenarios(dir, filter string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if filter != "" {
			ok, err := filepath.Match(filter, strings.TrimSuffix(e.Name(), ext))
			if err != nil {
				return nil, fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !ok {
				continue
			}
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// LoadScenarios loads every scenario FindScenarios returns. The first
// invalid file aborts the load.
func LoadScenarios(dir, filter string) ([]*Scenario, error) {
	paths, err := FindScenarios(dir, filter)
	if err != nil {
		return nil, err
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// normalizeScenario applies contact.NormalizeID to every ID so that
// scenario files compare the same way ingested tables do.
func normalizeScenario(s *Scenario) {
	for i, id := range s.Susceptible {
		s.Susceptible[i] = contact.NormalizeID(string(id))
	}
	for i, id := range s.Infectious {
		s.Infectious[i] = contact.NormalizeID(string(id))
	}
	for i, c := range s.Contacts {
		c.A = contact.NormalizeID(string(c.A))
		c.B = contact.NormalizeID(string(c.B))
		s.Contacts[i] = c.Canonical()
	}
	for i := range s.Assertions {
		a := &s.Assertions[i]
		if a.Individual != "" {
			a.Individual = contact.NormalizeID(string(a.Individual))
		}
	}
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if err := s.Params.Validate(); err != nil {
		return fmt.Errorf("params: %w", err)
	}

	if len(s.Susceptible)+len(s.Infectious) == 0 {
		return fmt.Errorf("population is required and must be non-empty")
	}

	if s.ExpectError != "" {
		if len(s.Assertions) != 0 {
			return fmt.Errorf("assertions must be empty when expect_error is set")
		}
		return nil
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCountsAt:
		if a.Moment == nil {
			return fmt.Errorf("assertions[%d]: moment is required for counts_at", index)
		}
		if len(a.Counts) != 4 {
			return fmt.Errorf("assertions[%d]: counts must list [S, E, I, R] for counts_at", index)
		}
	case AssertCompartmentAt:
		if a.Moment == nil {
			return fmt.Errorf("assertions[%d]: moment is required for compartment_at", index)
		}
		if err := requireCompartment(index, a); err != nil {
			return err
		}
	case AssertFinalCompartment:
		if err := requireCompartment(index, a); err != nil {
			return err
		}
	case AssertNeverChanges:
		if a.Individual == "" {
			return fmt.Errorf("assertions[%d]: individual is required for never_changes", index)
		}
	case AssertInvariants:
	case AssertTraceCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
		if a.To != "" {
			if _, err := epidemic.ParseCompartment(a.To); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		}
		switch epidemic.Cause(a.Cause) {
		case "", epidemic.CauseContact, epidemic.CauseClock:
		default:
			return fmt.Errorf("assertions[%d]: unknown cause %q", index, a.Cause)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

func requireCompartment(index int, a *Assertion) error {
	if a.Individual == "" {
		return fmt.Errorf("assertions[%d]: individual is required for %s", index, a.Type)
	}
	if _, err := epidemic.ParseCompartment(a.Compartment); err != nil {
		return fmt.Errorf("assertions[%d]: %w", index, err)
	}
	return nil
}
