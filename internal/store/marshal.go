package store

import (
	"fmt"
	"strconv"

	"github.com/roach88/contagion/internal/epidemic"
	"github.com/roach88/contagion/internal/fingerprint"
)

// marshalParams renders params as canonical JSON TEXT for the audit column.
func marshalParams(p epidemic.Params) (string, error) {
	data, err := fingerprint.MarshalCanonical(fingerprint.ParamsValue(p))
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

// Seeds are stored as decimal TEXT: SQLite integers are signed 64-bit and
// cannot hold the full uint64 range.
func formatSeed(seed uint64) string {
	return strconv.FormatUint(seed, 10)
}

func parseSeed(s string) (uint64, error) {
	seed, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse seed %q: %w", s, err)
	}
	return seed, nil
}

func parseCompartment(s string) (epidemic.Compartment, error) {
	c, err := epidemic.ParseCompartment(s)
	if err != nil {
		return 0, fmt.Errorf("parse compartment: %w", err)
	}
	return c, nil
}
