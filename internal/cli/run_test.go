package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/contagion/internal/epidemic"
	"github.com/roach88/contagion/internal/testutil"
)

func TestRunMissingContactsFlag(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})

	_, err := execute(cmd, "--infectious", "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "contacts")
}

func TestRunRequiresInfectious(t *testing.T) {
	_, contacts, _ := chainInputs(t)
	cmd := NewRunCommand(&RootOptions{Format: "text"})

	out, err := execute(cmd, "--contacts", contacts)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestRunContactsNotFound(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})

	out, err := execute(cmd, "--contacts", filepath.Join(t.TempDir(), "missing.csv"), "--infectious", "a")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

func TestRunInvalidConfig(t *testing.T) {
	dir, contacts, _ := chainInputs(t)
	cfg := writeFile(t, dir, "bad.yaml", "infect_rate: -1\n")
	cmd := NewRunCommand(&RootOptions{Format: "text"})

	out, err := execute(cmd, "--contacts", contacts, "--infectious", "a", "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
}

func TestRunUnsortedTableIsPrecondition(t *testing.T) {
	dir, _, cfg := chainInputs(t)
	contacts := writeFile(t, dir, "unsorted.csv", "id_1,id_2,start_moment,end_moment\nb,c,10,12\na,b,0,2\n")
	cmd := NewRunCommand(&RootOptions{Format: "json"})

	out, err := execute(cmd, "--contacts", contacts, "--infectious", "a", "--config", cfg)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodePrecondition, resp.Error.Code)
}

func TestRunJSONReport(t *testing.T) {
	_, contacts, cfg := chainInputs(t)
	cmd := NewRunCommand(&RootOptions{Format: "json"})

	out, err := execute(cmd, "--contacts", contacts, "--infectious", "a", "--config", cfg, "--seed", "11")
	require.NoError(t, err)

	var report RunReport
	resp := decodeResponse(t, out, &report)
	assert.Equal(t, "ok", resp.Status)

	assert.Equal(t, 3, report.Population)
	assert.Equal(t, 2, report.Contacts)
	require.Len(t, report.Runs, 1)
	run := report.Runs[0]
	assert.Equal(t, uint64(11), run.Seed)
	assert.Equal(t, epidemic.Counts{0, 1, 1, 1}, run.Final)
	assert.Equal(t, 4, run.Transitions)
	assert.Len(t, run.Fingerprint, 64)
	assert.False(t, run.Stored)
	assert.Empty(t, run.ID)

	assert.Equal(t, []epidemic.Point{
		{Moment: 0, Counts: epidemic.Counts{2, 0, 1, 0}},
		{Moment: 2, Counts: epidemic.Counts{1, 1, 1, 0}},
		{Moment: 10, Counts: epidemic.Counts{1, 0, 1, 1}},
		{Moment: 12, Counts: epidemic.Counts{0, 1, 1, 1}},
	}, report.Series)
	assert.Empty(t, report.Mean)
}

func TestRunEnsembleReportsMean(t *testing.T) {
	_, contacts, cfg := chainInputs(t)
	cmd := NewRunCommand(&RootOptions{Format: "json"})

	out, err := execute(cmd, "--contacts", contacts, "--infectious", "a", "--config", cfg,
		"--runs", "3", "--workers", "2", "--seed", "5")
	require.NoError(t, err)

	var report RunReport
	decodeResponse(t, out, &report)

	require.Len(t, report.Runs, 3)
	for i, run := range report.Runs {
		assert.Equal(t, uint64(5+i), run.Seed)
		assert.Equal(t, epidemic.Counts{0, 1, 1, 1}, run.Final)
	}
	assert.NotEqual(t, report.Runs[0].Fingerprint, report.Runs[1].Fingerprint)
	assert.Empty(t, report.Series)
	require.Len(t, report.Mean, 4)
	assert.Equal(t, [4]float64{0, 1, 1, 1}, report.Mean[3].Counts)
}

func TestRunFlagOverridesConfig(t *testing.T) {
	_, contacts, cfg := chainInputs(t)
	cmd := NewRunCommand(&RootOptions{Format: "json"})

	out, err := execute(cmd, "--contacts", contacts, "--infectious", "a", "--config", cfg, "--window-mode", "legacy")
	require.NoError(t, err)

	var report RunReport
	decodeResponse(t, out, &report)
	assert.Equal(t, epidemic.WindowLegacy, report.Params.WindowMode)
	assert.Equal(t, 1.0, report.Params.InfectRate)
}

func TestRunStoresOnce(t *testing.T) {
	dir, contacts, cfg := chainInputs(t)
	db := filepath.Join(dir, "runs.db")
	args := []string{"--contacts", contacts, "--infectious", "a", "--config", cfg, "--db", db}

	first := newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		RunIDs:      testutil.NewFixedRunIDGenerator("run-1"),
	})
	out, err := execute(first, args...)
	require.NoError(t, err)

	var report RunReport
	decodeResponse(t, out, &report)
	require.Len(t, report.Runs, 1)
	assert.Equal(t, "run-1", report.Runs[0].ID)
	assert.True(t, report.Runs[0].Stored)

	second := newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: "json"},
		RunIDs:      testutil.NewFixedRunIDGenerator("run-2"),
	})
	out, err = execute(second, args...)
	require.NoError(t, err)

	report = RunReport{}
	decodeResponse(t, out, &report)
	require.Len(t, report.Runs, 1)
	assert.Equal(t, "run-1", report.Runs[0].ID, "same inputs resolve to the stored run")
	assert.False(t, report.Runs[0].Stored)
}

func TestRunTextReport(t *testing.T) {
	_, contacts, cfg := chainInputs(t)
	cmd := NewRunCommand(&RootOptions{Format: "text"})

	out, err := execute(cmd, "--contacts", contacts, "--infectious", "a", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Population: 3  Contacts: 2  Runs: 1")
	assert.Contains(t, out, "final S=0 E=1 I=1 R=1  transitions=4")
	assert.Contains(t, out, "moment")
	assert.NotContains(t, out, "id=")
}

func TestRunRawSamples(t *testing.T) {
	dir, _, cfg := chainInputs(t)
	samples := writeFile(t, dir, "samples.csv", "time,id_1,id_2,contact_duration\n20,a,b,20\n40,a,b,20\n")
	cmd := NewRunCommand(&RootOptions{Format: "json"})

	out, err := execute(cmd, "--contacts", samples, "--raw", "--infectious", "a", "--config", cfg)
	require.NoError(t, err)

	var report RunReport
	decodeResponse(t, out, &report)
	assert.Equal(t, 2, report.Population)
	assert.Equal(t, 1, report.Contacts)
}
