package contact

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

// Sample is a raw proximity observation: A and B were near each other for
// Duration seconds ending at Time.
type Sample struct {
	Time     float64
	A        ID
	B        ID
	Duration float64
}

// Normalize folds raw samples into a contact table.
//
// Samples of the same unordered pair are merged when each one starts exactly
// where the previous one ended (Time == prev.Time + Duration). The merged
// record ends at the last sample's Time and starts Duration-sum earlier.
// Self-samples are dropped. The result is sorted by end moment.
func Normalize(samples []Sample) (Table, error) {
	canon := make([]Sample, 0, len(samples))
	for i, s := range samples {
		if isNonFinite(s.Time) || isNonFinite(s.Duration) {
			return nil, fmt.Errorf("sample %d: non-finite time or duration", i)
		}
		if s.Duration < 0 {
			return nil, fmt.Errorf("sample %d: negative duration %g", i, s.Duration)
		}
		if s.A == s.B {
			continue
		}
		if s.B < s.A {
			s.A, s.B = s.B, s.A
		}
		canon = append(canon, s)
	}

	sort.SliceStable(canon, func(i, j int) bool {
		a, b := canon[i], canon[j]
		if a.A != b.A {
			return a.A < b.A
		}
		if a.B != b.B {
			return a.B < b.B
		}
		return a.Time < b.Time
	})

	var table Table
	for i, s := range canon {
		continues := i > 0 &&
			canon[i-1].A == s.A &&
			canon[i-1].B == s.B &&
			s.Time == canon[i-1].Time+s.Duration
		if continues {
			table[len(table)-1].End = s.Time
			continue
		}
		table = append(table, Contact{A: s.A, B: s.B, Start: s.Time - s.Duration, End: s.Time})
	}

	table.SortByEnd()
	return table, nil
}

// Shift returns a copy of t with every moment moved by offset.
func Shift(t Table, offset float64) Table {
	out := make(Table, len(t))
	for i, c := range t {
		c.Start += offset
		c.End += offset
		out[i] = c
	}
	return out
}

// SwapIDs returns a copy of t with every occurrence of i and j exchanged.
// Pairs are re-canonicalized and the table re-sorted.
func SwapIDs(t Table, i, j ID) Table {
	out := make(Table, len(t))
	for k, c := range t {
		c.A = swap(c.A, i, j)
		c.B = swap(c.B, i, j)
		out[k] = c.Canonical()
	}
	out.SortByEnd()
	return out
}

// Repeat concatenates t with n copies of itself, the k-th shifted by
// k*period, and sorts the result by end moment.
func Repeat(t Table, n int, period float64) Table {
	out := make(Table, 0, len(t)*(n+1))
	for k := 0; k <= n; k++ {
		out = append(out, Shift(t, float64(k)*period)...)
	}
	out.SortByEnd()
	return out
}

// Shuffle is Repeat with a different pair of individuals exchanged in each
// copy. For the k-th copy a pair is drawn from t.Individuals() with a PCG
// source seeded by seed, and swapped in a copy of the original t shifted by
// k*period. Pairs are returned in copy order. With fewer than two
// individuals the copies are left unswapped.
func Shuffle(t Table, n int, period float64, seed uint64) (Table, [][2]ID) {
	ids := t.Individuals()
	r := rand.New(rand.NewPCG(seed, seed))

	out := make(Table, 0, len(t)*(n+1))
	out = append(out, Shift(t, 0)...)
	var pairs [][2]ID
	for k := 1; k <= n; k++ {
		shifted := Shift(t, float64(k)*period)
		if len(ids) >= 2 {
			i := r.IntN(len(ids))
			j := r.IntN(len(ids) - 1)
			if j >= i {
				j++
			}
			shifted = SwapIDs(shifted, ids[i], ids[j])
			pairs = append(pairs, [2]ID{ids[i], ids[j]})
		}
		out = append(out, shifted...)
	}
	out.SortByEnd()
	return out, pairs
}

func swap(id, i, j ID) ID {
	switch id {
	case i:
		return j
	case j:
		return i
	}
	return id
}
