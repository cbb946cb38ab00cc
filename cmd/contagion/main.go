// Command contagion propagates SEIR epidemics over temporal contact tables.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/contagion/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		return
	}

	// ExitErrors have already been reported by the command's formatter.
	// Anything else is a flag or argument error from cobra.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(cli.GetExitCode(err))
}
