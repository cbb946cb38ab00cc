package contact

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ID identifies an individual. IDs are opaque; NormalizeID is applied at
// every ingestion point so that visually identical IDs compare equal.
type ID string

// NormalizeID trims surrounding whitespace and applies Unicode NFC.
func NormalizeID(raw string) ID {
	return ID(norm.NFC.String(strings.TrimSpace(raw)))
}

// Contact is a maximal uninterrupted period of proximity between A and B.
type Contact struct {
	A     ID      `json:"id_1" yaml:"a"`
	B     ID      `json:"id_2" yaml:"b"`
	Start float64 `json:"start_moment" yaml:"start"`
	End   float64 `json:"end_moment" yaml:"end"`
}

// Duration returns End - Start.
func (c Contact) Duration() float64 {
	return c.End - c.Start
}

// Involves reports whether id is one of the two participants.
func (c Contact) Involves(id ID) bool {
	return c.A == id || c.B == id
}

// Canonical returns c with its participants in ascending order.
func (c Contact) Canonical() Contact {
	if c.B < c.A {
		c.A, c.B = c.B, c.A
	}
	return c
}

// Table is an ordered contact log.
type Table []Contact

// Reason categorizes why a record fails validation.
type Reason string

const (
	ReasonUnsorted         Reason = "unsorted"
	ReasonNegativeDuration Reason = "negative_duration"
	ReasonSelfContact      Reason = "self_contact"
	ReasonNonFinite        Reason = "non_finite"
)

// RecordError reports the first invalid record in a table.
type RecordError struct {
	Index  int
	Reason Reason
	Record Contact
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (%s-%s [%g, %g]): %s",
		e.Index, e.Record.A, e.Record.B, e.Record.Start, e.Record.End, e.Reason)
}

// Validate checks record well-formedness and end-moment ordering.
// It returns a *RecordError describing the first offending record.
func (t Table) Validate() error {
	for i := range t {
		if err := t.check(i); err != nil {
			return err
		}
	}
	return nil
}

// Problems returns every offending record in table order. A record out of
// order is reported against its predecessor only.
func (t Table) Problems() []RecordError {
	var out []RecordError
	for i := range t {
		if err := t.check(i); err != nil {
			out = append(out, *err)
		}
	}
	return out
}

func (t Table) check(i int) *RecordError {
	c := t[i]
	switch {
	case isNonFinite(c.Start) || isNonFinite(c.End):
		return &RecordError{Index: i, Reason: ReasonNonFinite, Record: c}
	case c.A == c.B:
		return &RecordError{Index: i, Reason: ReasonSelfContact, Record: c}
	case c.End < c.Start:
		return &RecordError{Index: i, Reason: ReasonNegativeDuration, Record: c}
	case i > 0 && c.End < t[i-1].End:
		return &RecordError{Index: i, Reason: ReasonUnsorted, Record: c}
	}
	return nil
}

// Boundaries returns the sorted distinct start and end moments of the table.
func (t Table) Boundaries() []float64 {
	if len(t) == 0 {
		return nil
	}
	moments := make([]float64, 0, 2*len(t))
	for _, c := range t {
		moments = append(moments, c.Start, c.End)
	}
	sort.Float64s(moments)

	out := moments[:1]
	for _, m := range moments[1:] {
		if m != out[len(out)-1] {
			out = append(out, m)
		}
	}
	return out
}

// Individuals returns every ID referenced by the table, sorted.
func (t Table) Individuals() []ID {
	seen := make(map[ID]struct{}, len(t))
	for _, c := range t {
		seen[c.A] = struct{}{}
		seen[c.B] = struct{}{}
	}
	ids := make([]ID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SortByEnd sorts the table in place by End, then Start, A, B.
func (t Table) SortByEnd() {
	sort.SliceStable(t, func(i, j int) bool {
		a, b := t[i], t[j]
		if a.End != b.End {
			return a.End < b.End
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.A != b.A {
			return a.A < b.A
		}
		return a.B < b.B
	})
}

func isNonFinite(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}
