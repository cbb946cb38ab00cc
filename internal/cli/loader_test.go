package cli

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/contagion/internal/contact"
	"github.com/roach88/contagion/internal/epidemic"
)

func TestBuildPopulation(t *testing.T) {
	table := contact.Table{
		{A: "b", B: "c", Start: 0, End: 1},
		{A: "a", B: "c", Start: 0, End: 2},
	}

	pop := BuildPopulation(table, []string{"c", " c", "a"}, []string{"z", "b", ""})

	assert.Equal(t, []contact.ID{"a", "c"}, pop.Infectious)
	assert.Equal(t, []contact.ID{"b", "z"}, pop.Susceptible)
}

func TestLoadTable_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.csv", "id_1,id_2,start_moment,end_moment\na,b,x,1\n")

	tests := []struct {
		name string
		path string
		raw  bool
		code string
	}{
		{"missing", filepath.Join(dir, "missing.csv"), false, ErrCodeNotFound},
		{"bad number", bad, false, ErrCodeParse},
		{"table read as samples", bad, true, ErrCodeParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTable(tt.path, tt.raw)
			require.Error(t, err)
			var le *LoadError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.code, le.Code)
			assert.Equal(t, tt.code, loadErrorCode(err))
		})
	}
}

func TestLoadInputs(t *testing.T) {
	_, contacts, _ := chainInputs(t)

	in, err := LoadInputs(InputOptions{Contacts: contacts, Infectious: []string{"a"}, Susceptible: []string{"d"}})
	require.NoError(t, err)
	assert.Len(t, in.Table, 2)
	assert.Equal(t, epidemic.Population{
		Susceptible: []contact.ID{"b", "c", "d"},
		Infectious:  []contact.ID{"a"},
	}, in.Population)
}

func TestPropagationErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodePrecondition, propagationErrorCode(&epidemic.Error{Code: epidemic.ErrCodeUnsortedTable}))
	assert.Equal(t, ErrCodeParameter, propagationErrorCode(&epidemic.Error{Code: epidemic.ErrCodeInvalidParameter}))
	assert.Equal(t, ErrCodeInvariant, propagationErrorCode(&epidemic.Error{Code: epidemic.ErrCodeInvariant}))
	assert.Equal(t, ErrCodeGeneric, propagationErrorCode(errors.New("boom")))
}
