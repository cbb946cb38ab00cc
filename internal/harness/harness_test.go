package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Scenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios", "")
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)

			if s.ExpectError != "" {
				assert.Nil(t, result.Run)
				return
			}
			assert.Equal(t, s.Name, result.RunID)
			assert.Len(t, result.Fingerprint, 64)
		})
	}
}

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"chain_of_infection", "reinfection", "zero_rate"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)
			require.NoError(t, RunWithGolden(t, s))
		})
	}
}

func TestRun_SameSeedSameFingerprint(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/chain_of_infection.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.Run, second.Run)

	s.Seed++
	third, err := Run(s)
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint, third.Fingerprint)
}

func TestRun_ExpectedErrorMismatch(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/unknown_individual.yaml")
	require.NoError(t, err)

	s.ExpectError = "UNSORTED_TABLE"
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Actual: UNKNOWN_INDIVIDUAL")

	// A valid table with an expected error fails the other way.
	s.Contacts[0].B = "b"
	result, err = Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "run succeeded")
}

func TestRun_UnexpectedErrorIsReturned(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/unknown_individual.yaml")
	require.NoError(t, err)

	s.ExpectError = ""
	_, err = Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNKNOWN_INDIVIDUAL")
}

func TestAssertGolden_NoRun(t *testing.T) {
	err := AssertGolden(t, "missing", NewResult())
	assert.ErrorContains(t, err, "produced no run")
}
