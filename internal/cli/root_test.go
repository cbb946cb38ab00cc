package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "contagion", cmd.Use)
	assert.Contains(t, cmd.Long, "SEIR")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "normalize", "validate", "test", "runs", "trace", "replay"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	for _, name := range []string{"contacts", "raw", "infectious", "susceptible", "config", "seed", "runs", "workers", "window-mode", "db", "label"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "flag --%s", name)
	}
	assert.Equal(t, "1", runCmd.Flags().Lookup("runs").DefValue)
}

func TestNormalizeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	normCmd, _, err := cmd.Find([]string{"normalize"})
	require.NoError(t, err)

	outputFlag := normCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
}

func TestRunsSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, args := range [][]string{{"runs", "list"}, {"runs", "show"}} {
		sub, _, err := cmd.Find(args)
		require.NoError(t, err)
		assert.Equal(t, args[1], sub.Name())
	}
}

func TestInvalidFormat(t *testing.T) {
	_, contacts, _ := chainInputs(t)
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"validate", "--contacts", contacts, "--format", "xml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootExecutesSubcommand(t *testing.T) {
	_, contacts, _ := chainInputs(t)
	cmd := NewRootCommand()

	out, err := execute(cmd, "validate", "--contacts", contacts)
	require.NoError(t, err)
	assert.Contains(t, out, "Table valid: 2 contacts, 3 individuals, 4 boundaries")
}
