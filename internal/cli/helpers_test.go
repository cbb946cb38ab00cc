package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/contagion/internal/testutil"
)

// chainContacts infects b from a, then c from b. With chainConfig every
// contact infects, so the outcome does not depend on the seed.
const chainContacts = `id_1,id_2,start_moment,end_moment
a,b,0,2
b,c,10,12
`

const chainConfig = `infect_rate: 1
t_incubation: 5
t_recovery: 10
t_loss_immunity: 100
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// chainInputs writes the chain table and config into a temp dir.
func chainInputs(t *testing.T) (dir, contacts, cfg string) {
	t.Helper()
	dir = t.TempDir()
	contacts = writeFile(t, dir, "contacts.csv", chainContacts)
	cfg = writeFile(t, dir, "model.yaml", chainConfig)
	return dir, contacts, cfg
}

// execute runs cmd with args and returns everything written to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// storeChainRun stores the chain run under ID "run-1" and returns the
// database and contacts paths.
func storeChainRun(t *testing.T) (db, contacts string) {
	t.Helper()
	dir, contacts, cfg := chainInputs(t)
	db = filepath.Join(dir, "runs.db")

	cmd := newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		RunIDs:      testutil.NewFixedRunIDGenerator("run-1"),
	})
	_, err := execute(cmd, "--contacts", contacts, "--infectious", "a", "--config", cfg, "--db", db)
	require.NoError(t, err)
	return db, contacts
}

// decodeResponse unmarshals a JSON CLI response, decoding Data into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	if data != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return CLIResponse{Status: resp.Status, Error: resp.Error}
}
