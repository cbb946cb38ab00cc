package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/contagion/internal/contact"
	"github.com/roach88/contagion/internal/epidemic"
)

// Domain prefixes. The version suffix allows the encoding to change without
// colliding with fingerprints already persisted.
const (
	DomainRun   = "contagion/run/v1"
	DomainTable = "contagion/table/v1"
)

// hashWithDomain returns hex(SHA256(domain || 0x00 || data)). The null byte
// keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Run computes the identity of a simulation run. Population sets are
// encoded sorted and de-duplicated, so their input order does not matter.
// The table is encoded in its given order since order is part of its
// meaning.
func Run(params epidemic.Params, seed uint64, pop epidemic.Population, table contact.Table) (string, error) {
	obj := Object{
		"params":      ParamsValue(params),
		"seed":        String(strconv.FormatUint(seed, 10)),
		"susceptible": idSet(pop.Susceptible),
		"infectious":  idSet(pop.Infectious),
		"contacts":    TableValue(table),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("fingerprint run: %w", err)
	}
	return hashWithDomain(DomainRun, canonical), nil
}

// Table computes the identity of a contact table alone.
func Table(table contact.Table) (string, error) {
	canonical, err := MarshalCanonical(TableValue(table))
	if err != nil {
		return "", fmt.Errorf("fingerprint table: %w", err)
	}
	return hashWithDomain(DomainTable, canonical), nil
}

// MustRun is like Run but panics on error.
// Use only in tests or when inputs are known to be finite.
func MustRun(params epidemic.Params, seed uint64, pop epidemic.Population, table contact.Table) string {
	fp, err := Run(params, seed, pop, table)
	if err != nil {
		panic(err)
	}
	return fp
}

// ParamsValue encodes params. An empty window mode is encoded as the
// default it resolves to, so both spellings share a fingerprint.
func ParamsValue(p epidemic.Params) Object {
	mode := p.WindowMode
	if mode == "" {
		mode = epidemic.WindowCorrected
	}
	return Object{
		"infect_rate":     Float(p.InfectRate),
		"t_incubation":    Float(p.TIncubation),
		"t_recovery":      Float(p.TRecovery),
		"t_loss_immunity": Float(p.TLossImmunity),
		"window_mode":     String(mode),
	}
}

// TableValue encodes table as an array of [id_1, id_2, start, end] rows.
func TableValue(table contact.Table) Array {
	rows := make(Array, len(table))
	for i, c := range table {
		rows[i] = Array{String(c.A), String(c.B), Float(c.Start), Float(c.End)}
	}
	return rows
}

// SeriesValue encodes a size series as [moment, S, E, I, R] rows.
func SeriesValue(series []epidemic.Point) Array {
	rows := make(Array, len(series))
	for i, p := range series {
		rows[i] = Array{Float(p.Moment), Int(p.Counts[0]), Int(p.Counts[1]), Int(p.Counts[2]), Int(p.Counts[3])}
	}
	return rows
}

// TraceValue encodes transitions as [moment, individual, from, to, cause]
// rows in application order.
func TraceValue(trs []epidemic.Transition) Array {
	rows := make(Array, len(trs))
	for i, tr := range trs {
		rows[i] = Array{Float(tr.Moment), String(tr.Individual), String(tr.From.String()), String(tr.To.String()), String(tr.Cause)}
	}
	return rows
}

func idSet(ids []contact.ID) Array {
	seen := make(map[contact.ID]struct{}, len(ids))
	uniq := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, string(id))
	}
	slices.Sort(uniq)
	out := make(Array, len(uniq))
	for i, s := range uniq {
		out[i] = String(s)
	}
	return out
}
