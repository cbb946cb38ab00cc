package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/contagion/internal/contact"
)

func TestValidateValidTable(t *testing.T) {
	_, contacts, _ := chainInputs(t)
	cmd := NewValidateCommand(&RootOptions{Format: "json"})

	out, err := execute(cmd, "--contacts", contacts, "--infectious", "a,z")
	require.NoError(t, err)

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.Contacts)
	assert.Equal(t, 3, result.Individuals)
	assert.Equal(t, 4, result.Boundaries)
	assert.Equal(t, []contact.ID{"z"}, result.Missing)
	assert.Empty(t, result.Problems)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	dir := t.TempDir()
	contacts := writeFile(t, dir, "bad.csv", `id_1,id_2,start_moment,end_moment
a,b,0,4
c,c,0,5
a,c,0,3
b,c,6,5
`)
	cmd := NewValidateCommand(&RootOptions{Format: "json"})

	out, err := execute(cmd, "--contacts", contacts)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodePrecondition, resp.Error.Code)

	assert.False(t, result.Valid)
	require.Len(t, result.Problems, 3)
	assert.Equal(t, ValidationProblem{Record: 1, Reason: contact.ReasonSelfContact, Line: "c,c,0,5"}, result.Problems[0])
	assert.Equal(t, contact.ReasonUnsorted, result.Problems[1].Reason)
	assert.Equal(t, contact.ReasonNegativeDuration, result.Problems[2].Reason)
}

func TestValidateTextOutput(t *testing.T) {
	dir := t.TempDir()
	contacts := writeFile(t, dir, "bad.csv", "id_1,id_2,start_moment,end_moment\nc,c,0,5\n")
	cmd := NewValidateCommand(&RootOptions{Format: "text"})

	out, err := execute(cmd, "--contacts", contacts)
	require.Error(t, err)
	assert.Contains(t, out, "✗ record 0: self_contact (c,c,0,5)")
	assert.Contains(t, out, "1 problem(s) in 1 contacts")
}

func TestValidateUnparsableCSV(t *testing.T) {
	dir := t.TempDir()
	contacts := writeFile(t, dir, "bad.csv", "id_1,id_2\na,b\n")
	cmd := NewValidateCommand(&RootOptions{Format: "text"})

	out, err := execute(cmd, "--contacts", contacts)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}
