// Command pnmlctl runs and debugs PNML-YAML workflow nets from the
// command line.
package main

import (
	"fmt"
	"os"

	"github.com/evoflow/pnmlcore/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
