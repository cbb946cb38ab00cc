package contact

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_MergesConsecutiveSamples(t *testing.T) {
	samples := []Sample{
		{Time: 40, A: "b", B: "a", Duration: 20},
		{Time: 20, A: "a", B: "b", Duration: 20},
		{Time: 60, A: "a", B: "b", Duration: 20},
		// gap: 100 != 60 + 20
		{Time: 100, A: "a", B: "b", Duration: 20},
		{Time: 30, A: "c", B: "a", Duration: 10},
	}

	table, err := Normalize(samples)
	require.NoError(t, err)

	assert.Equal(t, Table{
		{A: "a", B: "c", Start: 20, End: 30},
		{A: "a", B: "b", Start: 0, End: 60},
		{A: "a", B: "b", Start: 80, End: 100},
	}, table)
	assert.NoError(t, table.Validate())
}

func TestNormalize_DropsSelfSamples(t *testing.T) {
	table, err := Normalize([]Sample{
		{Time: 20, A: "a", B: "a", Duration: 20},
		{Time: 20, A: "a", B: "b", Duration: 20},
	})
	require.NoError(t, err)
	assert.Equal(t, Table{{A: "a", B: "b", Start: 0, End: 20}}, table)
}

func TestNormalize_RejectsBadSamples(t *testing.T) {
	_, err := Normalize([]Sample{{Time: 20, A: "a", B: "b", Duration: -1}})
	assert.ErrorContains(t, err, "negative duration")

	_, err = Normalize([]Sample{{Time: 20, A: "a", B: "b", Duration: 20}, {Time: 40, A: "a", B: "b", Duration: math.NaN()}})
	assert.ErrorContains(t, err, "sample 1")
}

func TestNormalize_Empty(t *testing.T) {
	table, err := Normalize(nil)
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestShift(t *testing.T) {
	table := Table{{A: "a", B: "b", Start: 0, End: 5}}
	shifted := Shift(table, 100)

	assert.Equal(t, Table{{A: "a", B: "b", Start: 100, End: 105}}, shifted)
	assert.Equal(t, 0.0, table[0].Start, "input is not modified")
}

func TestSwapIDs(t *testing.T) {
	table := Table{
		{A: "a", B: "c", Start: 0, End: 5},
		{A: "b", B: "c", Start: 0, End: 5},
	}
	swapped := SwapIDs(table, "a", "d")

	assert.Equal(t, Table{
		{A: "b", B: "c", Start: 0, End: 5},
		{A: "c", B: "d", Start: 0, End: 5},
	}, swapped)
}

func TestRepeat(t *testing.T) {
	table := Table{
		{A: "a", B: "b", Start: 0, End: 5},
		{A: "b", B: "c", Start: 2, End: 8},
	}
	got := Repeat(table, 2, 10)

	require.Len(t, got, 6)
	assert.NoError(t, got.Validate())
	assert.Equal(t, []float64{5, 8, 15, 18, 25, 28}, ends(got))
}

func TestShuffle(t *testing.T) {
	table := Table{
		{A: "a", B: "b", Start: 0, End: 5},
		{A: "b", B: "c", Start: 2, End: 8},
		{A: "c", B: "d", Start: 4, End: 9},
	}
	got, pairs := Shuffle(table, 3, 10, 42)

	require.Len(t, got, 9)
	require.Len(t, pairs, 3)
	assert.NoError(t, got.Validate())
	assert.Equal(t, []float64{5, 8, 9, 15, 18, 19, 25, 28, 29}, ends(got))
	assert.Equal(t, table.Individuals(), got.Individuals(), "swaps only relabel individuals")

	for k, p := range pairs {
		assert.NotEqual(t, p[0], p[1], "copy %d swaps two distinct individuals", k+1)
		want := SwapIDs(Shift(table, float64(k+1)*10), p[0], p[1])
		var copyK Table
		for _, c := range got {
			if c.Start >= float64(k+1)*10 && c.Start < float64(k+2)*10 {
				copyK = append(copyK, c)
			}
		}
		assert.Equal(t, want, copyK, "copy %d swaps within the original table", k+1)
	}

	again, againPairs := Shuffle(table, 3, 10, 42)
	assert.Equal(t, got, again, "same seed gives the same table")
	assert.Equal(t, pairs, againPairs)
}

func TestShuffle_TooFewIndividuals(t *testing.T) {
	got, pairs := Shuffle(Table{}, 2, 10, 1)
	assert.Empty(t, got)
	assert.Empty(t, pairs)
}

func TestCSV_NormalizeRoundTrip(t *testing.T) {
	in := strings.Join([]string{
		"time,id_1,id_2,contact_duration,room",
		"20,1,2,20,hall",
		"40,2,1,20,hall",
		"60,3,1,20,lobby",
	}, "\n")

	samples, err := ReadSamplesCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, samples, 3)

	table, err := Normalize(samples)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteTableCSV(&buf, table))
	assert.Equal(t, "id_1,id_2,start_moment,end_moment,contact_duration\n"+
		"1,2,0,40,40\n"+
		"1,3,40,60,20\n", buf.String())

	back, err := ReadTableCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, table, back)
}

func TestCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty input", "", "missing header row"},
		{"missing column", "id_1,id_2,start_moment\n1,2,0\n", `missing column "end_moment"`},
		{"bad number", "id_1,id_2,start_moment,end_moment\n1,2,zero,4\n", "line 2: column start_moment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTableCSV(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func ends(t Table) []float64 {
	out := make([]float64, len(t))
	for i, c := range t {
		out[i] = c.End
	}
	return out
}
